package models

import "time"

// Lados de un trade
const (
	TradeSideBuy  = "buy"
	TradeSideSell = "sell"
)

// TradeRequest es el cuerpo que recibe el endpoint de trading
type TradeRequest struct {
	CoinID string  `json:"coin_id" binding:"required"`
	Side   string  `json:"side" binding:"required,oneof=buy sell"`
	Amount float64 `json:"amount" binding:"required"`
	Price  float64 `json:"price" binding:"required"`
}

// TradeRecord es el registro inmutable de un trade ejecutado. Una vez
// escrito nunca se modifica ni se borra. La clave lógica ordena por
// (timestamp, sequence) por usuario.
type TradeRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CoinID    string    `json:"coin_id"`
	Side      string    `json:"side"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`

	// Sequence desempata trades del mismo usuario con el mismo timestamp
	Sequence uint64 `json:"sequence"`
}
