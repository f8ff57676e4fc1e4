package services

import (
	"math"
	"sort"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
)

// PriceLookup resuelve el precio actual de una moneda. Devuelve error
// cuando el precio no está disponible, que no es lo mismo que precio cero.
type PriceLookup func(coinID string) (float64, error)

// ValuatePortfolio calcula el valor actual, la ganancia y los totales del
// portafolio a precios de mercado. Es una función pura sobre un snapshot:
// no persiste nada y es segura de ejecutar concurrentemente y en timers.
func ValuatePortfolio(portfolio *models.Portfolio, lookup PriceLookup) *models.PortfolioValuation {
	valuation := &models.PortfolioValuation{
		Holdings:  make([]models.HoldingValuation, 0, len(portfolio.Holdings)),
		Watchlist: portfolio.Watchlist,
	}

	for _, holding := range portfolio.Holdings {
		hv := models.HoldingValuation{
			CoinID:    holding.CoinID,
			Amount:    holding.Amount,
			AvgPrice:  holding.AvgPrice,
			CostBasis: holding.Amount * holding.AvgPrice,
		}

		price, err := lookup(holding.CoinID)
		if err != nil {
			// Sin precio no hay cómo valuar: marcamos el holding y lo
			// dejamos a su costo de compra en lugar de valuarlo en cero
			hv.PriceAvailable = false
			hv.CurrentValue = hv.CostBasis
		} else {
			hv.PriceAvailable = true
			hv.CurrentPrice = price
			hv.CurrentValue = holding.Amount * price
			hv.Profit = hv.CurrentValue - hv.CostBasis
			hv.ProfitPercentage = safePercentage(price-holding.AvgPrice, holding.AvgPrice)
		}

		valuation.TotalCurrentValue += hv.CurrentValue
		valuation.TotalInvested += hv.CostBasis
		valuation.TotalProfit += hv.Profit
		valuation.Holdings = append(valuation.Holdings, hv)
	}

	// El mapa de holdings no tiene orden; ordenamos por moneda para que
	// la respuesta sea estable
	sort.Slice(valuation.Holdings, func(i, j int) bool {
		return valuation.Holdings[i].CoinID < valuation.Holdings[j].CoinID
	})

	// El porcentaje agregado sale del costo total, no del promedio de los
	// porcentajes por holding, para no sobrepesar posiciones chicas
	valuation.ProfitPercentage = safePercentage(valuation.TotalProfit, valuation.TotalInvested)

	return valuation
}

// safePercentage calcula parte/base*100 devolviendo 0 en lugar de
// NaN o infinito cuando la base es cero o el resultado no es finito
func safePercentage(part, base float64) float64 {
	if base == 0 {
		return 0
	}
	pct := part / base * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0
	}
	return pct
}
