package models

import "time"

// Holding representa la posición del usuario en una criptomoneda.
// Solo existe mientras amount > 0: una venta que agota la posición
// elimina el holding del portafolio en lugar de dejarlo en cero.
type Holding struct {
	CoinID      string    `json:"coin_id"`
	Amount      float64   `json:"amount"`
	AvgPrice    float64   `json:"avg_price"` // Precio promedio ponderado de compra
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Portfolio es el estado completo de un usuario: sus posiciones y su
// lista de seguimiento. Se guarda como un único registro en el almacén
// bajo la clave portfolio:{userId}.
type Portfolio struct {
	UserID    string             `json:"user_id"`
	Holdings  map[string]Holding `json:"holdings"`
	Watchlist []string           `json:"watchlist"`
	CreatedAt time.Time          `json:"created_at"`

	// Version se incrementa en cada escritura. El repositorio la compara
	// antes de escribir para detectar modificaciones concurrentes.
	Version int64 `json:"version"`
}

// NewPortfolio crea el portafolio vacío por defecto de un usuario
func NewPortfolio(userID string) *Portfolio {
	return &Portfolio{
		UserID:    userID,
		Holdings:  make(map[string]Holding),
		Watchlist: []string{},
		CreatedAt: time.Now().UTC(),
	}
}

// HasInWatchlist indica si la moneda ya está en la lista de seguimiento
func (p *Portfolio) HasInWatchlist(coinID string) bool {
	for _, id := range p.Watchlist {
		if id == coinID {
			return true
		}
	}
	return false
}
