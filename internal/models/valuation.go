package models

// HoldingValuation es un holding con sus campos derivados a precios
// actuales. Se calcula al vuelo, nunca se persiste.
type HoldingValuation struct {
	CoinID           string  `json:"coin_id"`
	Amount           float64 `json:"amount"`
	AvgPrice         float64 `json:"avg_price"`
	CurrentPrice     float64 `json:"current_price"`
	CurrentValue     float64 `json:"current_value"`
	CostBasis        float64 `json:"cost_basis"`
	Profit           float64 `json:"profit"`
	ProfitPercentage float64 `json:"profit_percentage"`

	// PriceAvailable distingue "no hay precio" de "el precio es cero".
	// Cuando es false, CurrentValue se calcula con el costo de compra.
	PriceAvailable bool `json:"price_available"`
}

// PortfolioValuation es el resumen del dashboard: cada holding valuado
// más los totales agregados del portafolio
type PortfolioValuation struct {
	Holdings          []HoldingValuation `json:"holdings"`
	TotalCurrentValue float64            `json:"total_current_value"`
	TotalInvested     float64            `json:"total_invested"`
	TotalProfit       float64            `json:"total_profit"`
	ProfitPercentage  float64            `json:"profit_percentage"`
	Watchlist         []string           `json:"watchlist"`
}
