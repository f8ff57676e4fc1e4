package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/store"
)

// Cantidad de reintentos ante errores transitorios del almacén o
// conflictos de versión. Los errores de validación no se reintentan.
const maxRetries = 3

// PortfolioRepository implementa el ledger de trading simulado sobre el
// almacén clave-valor. Toda mutación del portafolio de un usuario pasa
// por acá, serializada por usuario y con verificación de versión antes
// de cada escritura.
type PortfolioRepository struct {
	store   store.KVStore
	locks   *userLocks
	history *TradeHistory
}

func NewPortfolioRepository(kv store.KVStore, history *TradeHistory) *PortfolioRepository {
	return &PortfolioRepository{
		store:   kv,
		locks:   newUserLocks(),
		history: history,
	}
}

func portfolioKey(userID string) string {
	return "portfolio:" + userID
}

// loadPortfolio lee el portafolio del usuario, creando uno vacío en
// memoria si todavía no existe (se persiste recién en el primer guardado
// o en GetPortfolio)
func (r *PortfolioRepository) loadPortfolio(ctx context.Context, userID string) (*models.Portfolio, error) {
	data, err := r.store.Get(ctx, portfolioKey(userID))
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return models.NewPortfolio(userID), nil
		}
		return nil, err
	}

	var portfolio models.Portfolio
	if err := json.Unmarshal(data, &portfolio); err != nil {
		return nil, fmt.Errorf("portafolio corrupto para usuario %s: %w", userID, err)
	}
	if portfolio.Holdings == nil {
		portfolio.Holdings = make(map[string]models.Holding)
	}
	if portfolio.Watchlist == nil {
		portfolio.Watchlist = []string{}
	}
	return &portfolio, nil
}

// savePortfolio escribe el portafolio verificando que nadie lo haya
// modificado desde que lo leímos. expectedVersion es la versión que tenía
// el registro al leerlo; si la versión guardada cambió, devolvemos
// ErrConcurrentModification para que el llamador recargue y reintente.
func (r *PortfolioRepository) savePortfolio(ctx context.Context, portfolio *models.Portfolio, expectedVersion int64) error {
	current, err := r.store.Get(ctx, portfolioKey(portfolio.UserID))
	if err != nil && !errors.Is(err, store.ErrKeyNotFound) {
		return err
	}
	if err == nil {
		var stored models.Portfolio
		if jsonErr := json.Unmarshal(current, &stored); jsonErr == nil && stored.Version != expectedVersion {
			return ErrConcurrentModification
		}
	} else if expectedVersion != 0 {
		// Leímos un portafolio que ya no existe: alguien lo reemplazó
		return ErrConcurrentModification
	}

	portfolio.Version = expectedVersion + 1
	data, err := json.Marshal(portfolio)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, portfolioKey(portfolio.UserID), data)
}

// GetPortfolio devuelve el portafolio del usuario, creándolo y
// persistiéndolo en el primer acceso
func (r *PortfolioRepository) GetPortfolio(ctx context.Context, userID string) (*models.Portfolio, error) {
	data, err := r.store.Get(ctx, portfolioKey(userID))
	if err == nil {
		var portfolio models.Portfolio
		if jsonErr := json.Unmarshal(data, &portfolio); jsonErr != nil {
			return nil, fmt.Errorf("portafolio corrupto para usuario %s: %w", userID, jsonErr)
		}
		if portfolio.Holdings == nil {
			portfolio.Holdings = make(map[string]models.Holding)
		}
		if portfolio.Watchlist == nil {
			portfolio.Watchlist = []string{}
		}
		return &portfolio, nil
	}
	if !errors.Is(err, store.ErrKeyNotFound) {
		return nil, err
	}

	// Primer acceso: crear el portafolio por defecto bajo el lock del
	// usuario para no pisar un trade en curso
	lock := r.locks.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	portfolio, err := r.loadPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	if portfolio.Version == 0 {
		if err := r.savePortfolio(ctx, portfolio, 0); err != nil {
			return nil, err
		}
		log.Printf("Portafolio creado para usuario %s", userID)
	}
	return portfolio, nil
}

// ExecuteTrade aplica una compra o venta contra el portafolio del usuario
// y anota el trade en el historial. Devuelve el portafolio actualizado.
func (r *PortfolioRepository) ExecuteTrade(ctx context.Context, userID, coinID, side string, amount, price float64) (*models.Portfolio, error) {
	// Validar antes de tocar el almacén
	if amount <= 0 || price <= 0 {
		return nil, ErrInvalidAmount
	}
	if side != models.TradeSideBuy && side != models.TradeSideSell {
		return nil, fmt.Errorf("%w: side debe ser buy o sell", ErrInvalidAmount)
	}

	return r.mutate(ctx, userID, func(portfolio *models.Portfolio) error {
		now := time.Now().UTC()

		switch side {
		case models.TradeSideBuy:
			holding, exists := portfolio.Holdings[coinID]
			if exists {
				// Promedio ponderado: sumar los costos antes de dividir,
				// en este orden, para no perder precisión
				newAmount := holding.Amount + amount
				holding.AvgPrice = ((holding.Amount * holding.AvgPrice) + (amount * price)) / newAmount
				holding.Amount = newAmount
				holding.LastUpdated = now
			} else {
				holding = models.Holding{
					CoinID:      coinID,
					Amount:      amount,
					AvgPrice:    price,
					CreatedAt:   now,
					LastUpdated: now,
				}
			}
			portfolio.Holdings[coinID] = holding

		case models.TradeSideSell:
			holding, exists := portfolio.Holdings[coinID]
			if !exists || amount > holding.Amount {
				return ErrInsufficientHoldings
			}
			holding.Amount -= amount
			if holding.Amount == 0 {
				// Una posición agotada se elimina, nunca se guarda en cero
				delete(portfolio.Holdings, coinID)
			} else {
				// La venta no cambia el precio promedio del resto
				holding.LastUpdated = now
				portfolio.Holdings[coinID] = holding
			}
		}
		return nil
	}, func() (string, *models.TradeRecord, error) {
		return r.history.Append(ctx, userID, coinID, side, amount, price)
	})
}

// AddToWatchlist agrega la moneda a la lista de seguimiento. Agregar una
// moneda ya presente es un no-op exitoso.
func (r *PortfolioRepository) AddToWatchlist(ctx context.Context, userID, coinID string) (*models.Portfolio, error) {
	return r.mutate(ctx, userID, func(portfolio *models.Portfolio) error {
		if !portfolio.HasInWatchlist(coinID) {
			portfolio.Watchlist = append(portfolio.Watchlist, coinID)
		}
		return nil
	}, nil)
}

// RemoveFromWatchlist quita la moneda de la lista de seguimiento. Quitar
// una moneda ausente es un no-op exitoso.
func (r *PortfolioRepository) RemoveFromWatchlist(ctx context.Context, userID, coinID string) (*models.Portfolio, error) {
	return r.mutate(ctx, userID, func(portfolio *models.Portfolio) error {
		filtered := portfolio.Watchlist[:0]
		for _, id := range portfolio.Watchlist {
			if id != coinID {
				filtered = append(filtered, id)
			}
		}
		portfolio.Watchlist = filtered
		return nil
	}, nil)
}

// GetTradeHistory devuelve los trades del usuario del más viejo al más nuevo
func (r *PortfolioRepository) GetTradeHistory(ctx context.Context, userID string) ([]models.TradeRecord, error) {
	return r.history.ListByUser(ctx, userID)
}

// mutate ejecuta una modificación del portafolio bajo el lock del usuario,
// con verificación de versión y reintentos acotados ante errores
// transitorios. apply calcula el nuevo estado; si recordTrade no es nil,
// anota el trade antes de guardar el portafolio y lo anula si el guardado
// falla definitivamente.
func (r *PortfolioRepository) mutate(
	ctx context.Context,
	userID string,
	apply func(*models.Portfolio) error,
	recordTrade func() (string, *models.TradeRecord, error),
) (*models.Portfolio, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	// Una petición cancelada no debe empezar a aplicarse; una vez tomado
	// el lock corre hasta el final
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := r.locks.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		portfolio, err := r.loadPortfolio(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrStoreUnavailable) {
				lastErr = err
				continue
			}
			return nil, err
		}
		expectedVersion := portfolio.Version

		// Los errores de validación se devuelven tal cual, sin reintentos
		// y sin ninguna escritura
		if err := apply(portfolio); err != nil {
			return nil, err
		}

		var recordKey string
		var record *models.TradeRecord
		if recordTrade != nil {
			recordKey, record, err = recordTrade()
			if err != nil {
				if errors.Is(err, store.ErrStoreUnavailable) {
					lastErr = err
					continue
				}
				return nil, err
			}
		}

		err = r.savePortfolio(ctx, portfolio, expectedVersion)
		if err == nil {
			return portfolio, nil
		}

		// El portafolio no se guardó: anular el trade ya anotado para que
		// ninguna de las dos escrituras sea visible
		if record != nil {
			r.history.Void(ctx, recordKey, record)
		}
		if errors.Is(err, ErrConcurrentModification) || errors.Is(err, store.ErrStoreUnavailable) {
			lastErr = err
			log.Printf("Reintentando operación para usuario %s (intento %d): %v", userID, attempt+1, err)
			continue
		}
		return nil, err
	}
	return nil, lastErr
}
