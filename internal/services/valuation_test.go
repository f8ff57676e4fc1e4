package services

import (
	"math"
	"testing"
	"time"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
)

func testPortfolio(holdings map[string]models.Holding) *models.Portfolio {
	return &models.Portfolio{
		UserID:    "user1",
		Holdings:  holdings,
		Watchlist: []string{},
		CreatedAt: time.Now(),
	}
}

func fixedPrices(prices map[string]float64) PriceLookup {
	return func(coinID string) (float64, error) {
		price, exists := prices[coinID]
		if !exists {
			return 0, ErrPriceUnavailable
		}
		return price, nil
	}
}

func TestValuatePortfolio_Basic(t *testing.T) {
	portfolio := testPortfolio(map[string]models.Holding{
		"bitcoin": {CoinID: "bitcoin", Amount: 2, AvgPrice: 10000},
	})

	valuation := ValuatePortfolio(portfolio, fixedPrices(map[string]float64{"bitcoin": 15000}))

	if len(valuation.Holdings) != 1 {
		t.Fatalf("esperaba 1 holding, obtuve %d", len(valuation.Holdings))
	}
	hv := valuation.Holdings[0]
	if hv.CurrentValue != 30000 {
		t.Errorf("esperaba valor 30000, obtuve %v", hv.CurrentValue)
	}
	if hv.CostBasis != 20000 {
		t.Errorf("esperaba costo 20000, obtuve %v", hv.CostBasis)
	}
	if hv.Profit != 10000 {
		t.Errorf("esperaba ganancia 10000, obtuve %v", hv.Profit)
	}
	if hv.ProfitPercentage != 50 {
		t.Errorf("esperaba 50%%, obtuve %v", hv.ProfitPercentage)
	}
	if !hv.PriceAvailable {
		t.Errorf("el precio estaba disponible")
	}
}

func TestValuatePortfolio_ZeroAvgPriceNoNaN(t *testing.T) {
	// Un avg_price en cero no puede producir NaN ni infinito
	portfolio := testPortfolio(map[string]models.Holding{
		"bitcoin": {CoinID: "bitcoin", Amount: 1, AvgPrice: 0},
	})

	valuation := ValuatePortfolio(portfolio, fixedPrices(map[string]float64{"bitcoin": 100}))

	hv := valuation.Holdings[0]
	if hv.ProfitPercentage != 0 {
		t.Errorf("esperaba 0%%, obtuve %v", hv.ProfitPercentage)
	}
	if math.IsNaN(valuation.ProfitPercentage) || math.IsInf(valuation.ProfitPercentage, 0) {
		t.Errorf("el porcentaje agregado no es finito: %v", valuation.ProfitPercentage)
	}
}

func TestValuatePortfolio_MissingPriceFlagged(t *testing.T) {
	// Sin precio disponible el holding se marca y se valúa a su costo,
	// no a cero
	portfolio := testPortfolio(map[string]models.Holding{
		"memecoin": {CoinID: "memecoin", Amount: 10, AvgPrice: 5},
	})

	valuation := ValuatePortfolio(portfolio, fixedPrices(map[string]float64{}))

	hv := valuation.Holdings[0]
	if hv.PriceAvailable {
		t.Errorf("el precio no estaba disponible")
	}
	if hv.CurrentValue != 50 {
		t.Errorf("esperaba valor al costo (50), obtuve %v", hv.CurrentValue)
	}
	if hv.ProfitPercentage != 0 || hv.Profit != 0 {
		t.Errorf("sin precio no hay ganancia: profit=%v pct=%v", hv.Profit, hv.ProfitPercentage)
	}
}

func TestValuatePortfolio_AggregateFromTotals(t *testing.T) {
	// El porcentaje agregado sale del costo total, no del promedio de los
	// porcentajes por holding
	portfolio := testPortfolio(map[string]models.Holding{
		"bitcoin":  {CoinID: "bitcoin", Amount: 1, AvgPrice: 10000}, // +100%
		"smallcap": {CoinID: "smallcap", Amount: 1, AvgPrice: 10},   // -50%
	})

	valuation := ValuatePortfolio(portfolio, fixedPrices(map[string]float64{
		"bitcoin":  20000,
		"smallcap": 5,
	}))

	// Costo total 10010, valor total 20005, ganancia 9995
	wantPct := 9995.0 / 10010.0 * 100
	if math.Abs(valuation.ProfitPercentage-wantPct) > 1e-9 {
		t.Errorf("esperaba %v%%, obtuve %v%%", wantPct, valuation.ProfitPercentage)
	}
	if valuation.TotalCurrentValue != 20005 {
		t.Errorf("esperaba valor total 20005, obtuve %v", valuation.TotalCurrentValue)
	}
	if valuation.TotalInvested != 10010 {
		t.Errorf("esperaba inversión total 10010, obtuve %v", valuation.TotalInvested)
	}

	// Los holdings salen ordenados por moneda
	if valuation.Holdings[0].CoinID != "bitcoin" || valuation.Holdings[1].CoinID != "smallcap" {
		t.Errorf("holdings desordenados: %v, %v", valuation.Holdings[0].CoinID, valuation.Holdings[1].CoinID)
	}
}

func TestValuatePortfolio_EmptyPortfolio(t *testing.T) {
	valuation := ValuatePortfolio(testPortfolio(map[string]models.Holding{}), fixedPrices(nil))

	if len(valuation.Holdings) != 0 {
		t.Errorf("esperaba 0 holdings, obtuve %d", len(valuation.Holdings))
	}
	if valuation.TotalCurrentValue != 0 || valuation.ProfitPercentage != 0 {
		t.Errorf("portafolio vacío con totales distintos de cero: %+v", valuation)
	}
}
