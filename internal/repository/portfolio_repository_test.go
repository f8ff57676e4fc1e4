package repository

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/store"
)

func newTestRepo() (*PortfolioRepository, *store.MemoryStore) {
	kv := store.NewMemoryStore()
	history := NewTradeHistory(kv)
	return NewPortfolioRepository(kv, history), kv
}

func TestExecuteTrade_BuySellScenario(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	// Comprar 2 BTC a 10000
	portfolio, err := repo.ExecuteTrade(ctx, "user1", "bitcoin", models.TradeSideBuy, 2, 10000)
	if err != nil {
		t.Fatalf("primera compra falló: %v", err)
	}
	holding := portfolio.Holdings["bitcoin"]
	if holding.Amount != 2 || holding.AvgPrice != 10000 {
		t.Fatalf("esperaba amount=2 avg=10000, obtuve amount=%v avg=%v", holding.Amount, holding.AvgPrice)
	}

	// Comprar 1 BTC a 13000: promedio ponderado (2*10000 + 1*13000) / 3 = 11000
	portfolio, err = repo.ExecuteTrade(ctx, "user1", "bitcoin", models.TradeSideBuy, 1, 13000)
	if err != nil {
		t.Fatalf("segunda compra falló: %v", err)
	}
	holding = portfolio.Holdings["bitcoin"]
	if holding.Amount != 3 || holding.AvgPrice != 11000 {
		t.Fatalf("esperaba amount=3 avg=11000, obtuve amount=%v avg=%v", holding.Amount, holding.AvgPrice)
	}

	// Vender 1 BTC a 15000: la venta no cambia el precio promedio
	portfolio, err = repo.ExecuteTrade(ctx, "user1", "bitcoin", models.TradeSideSell, 1, 15000)
	if err != nil {
		t.Fatalf("venta falló: %v", err)
	}
	holding = portfolio.Holdings["bitcoin"]
	if holding.Amount != 2 || holding.AvgPrice != 11000 {
		t.Fatalf("esperaba amount=2 avg=11000, obtuve amount=%v avg=%v", holding.Amount, holding.AvgPrice)
	}

	// El historial tiene los 3 trades en orden buy/buy/sell
	trades, err := repo.GetTradeHistory(ctx, "user1")
	if err != nil {
		t.Fatalf("GetTradeHistory falló: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("esperaba 3 trades, obtuve %d", len(trades))
	}
	wantSides := []string{models.TradeSideBuy, models.TradeSideBuy, models.TradeSideSell}
	for i, side := range wantSides {
		if trades[i].Side != side {
			t.Errorf("trade %d: esperaba side %s, obtuve %s", i, side, trades[i].Side)
		}
	}
}

func TestExecuteTrade_InsufficientHoldings(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	if _, err := repo.ExecuteTrade(ctx, "user1", "bitcoin", models.TradeSideBuy, 2, 10000); err != nil {
		t.Fatalf("compra inicial falló: %v", err)
	}

	// Vender más de lo que hay no cambia nada
	_, err := repo.ExecuteTrade(ctx, "user1", "bitcoin", models.TradeSideSell, 5, 10000)
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Fatalf("esperaba ErrInsufficientHoldings, obtuve %v", err)
	}

	portfolio, err := repo.GetPortfolio(ctx, "user1")
	if err != nil {
		t.Fatalf("GetPortfolio falló: %v", err)
	}
	if holding := portfolio.Holdings["bitcoin"]; holding.Amount != 2 || holding.AvgPrice != 10000 {
		t.Errorf("la venta fallida modificó el holding: amount=%v avg=%v", holding.Amount, holding.AvgPrice)
	}

	trades, _ := repo.GetTradeHistory(ctx, "user1")
	if len(trades) != 1 {
		t.Errorf("la venta fallida no debe aparecer en el historial, hay %d trades", len(trades))
	}

	// Vender sin haber comprado nunca también falla
	_, err = repo.ExecuteTrade(ctx, "user2", "ethereum", models.TradeSideSell, 1, 100)
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Errorf("venta sin holding: esperaba ErrInsufficientHoldings, obtuve %v", err)
	}
}

func TestExecuteTrade_SellExhaustsHolding(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	if _, err := repo.ExecuteTrade(ctx, "user1", "solana", models.TradeSideBuy, 2, 100); err != nil {
		t.Fatalf("compra falló: %v", err)
	}

	// Vender exactamente todo elimina el holding del mapa
	portfolio, err := repo.ExecuteTrade(ctx, "user1", "solana", models.TradeSideSell, 2, 120)
	if err != nil {
		t.Fatalf("venta total falló: %v", err)
	}
	if _, exists := portfolio.Holdings["solana"]; exists {
		t.Fatalf("el holding agotado debería haberse eliminado")
	}

	// Una venta posterior de esa moneda falla
	_, err = repo.ExecuteTrade(ctx, "user1", "solana", models.TradeSideSell, 1, 120)
	if !errors.Is(err, ErrInsufficientHoldings) {
		t.Errorf("esperaba ErrInsufficientHoldings, obtuve %v", err)
	}
}

func TestExecuteTrade_InvalidAmount(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	tests := []struct {
		name   string
		side   string
		amount float64
		price  float64
	}{
		{"monto cero", models.TradeSideBuy, 0, 100},
		{"monto negativo", models.TradeSideBuy, -1, 100},
		{"precio cero", models.TradeSideBuy, 1, 0},
		{"precio negativo", models.TradeSideSell, 1, -5},
		{"side inválido", "short", 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.ExecuteTrade(ctx, "user1", "bitcoin", tt.side, tt.amount, tt.price)
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("esperaba ErrInvalidAmount, obtuve %v", err)
			}
		})
	}

	// Ninguna petición inválida debe haber tocado el almacén
	trades, _ := repo.GetTradeHistory(ctx, "user1")
	if len(trades) != 0 {
		t.Errorf("las peticiones inválidas no deben generar trades, hay %d", len(trades))
	}
}

func TestExecuteTrade_WeightedAverage(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	// El promedio final es el ponderado de todas las compras
	buys := []struct{ amount, price float64 }{
		{1, 100}, {3, 200}, {0.5, 50},
	}
	var totalAmount, totalCost float64
	for _, buy := range buys {
		if _, err := repo.ExecuteTrade(ctx, "user1", "cardano", models.TradeSideBuy, buy.amount, buy.price); err != nil {
			t.Fatalf("compra falló: %v", err)
		}
		totalAmount += buy.amount
		totalCost += buy.amount * buy.price
	}

	portfolio, _ := repo.GetPortfolio(ctx, "user1")
	holding := portfolio.Holdings["cardano"]
	wantAvg := totalCost / totalAmount
	if math.Abs(holding.AvgPrice-wantAvg) > 1e-9 {
		t.Errorf("esperaba avg=%v, obtuve %v", wantAvg, holding.AvgPrice)
	}
	if math.Abs(holding.Amount-totalAmount) > 1e-9 {
		t.Errorf("esperaba amount=%v, obtuve %v", totalAmount, holding.Amount)
	}
}

func TestWatchlist_Idempotent(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	// Agregar dos veces deja una sola entrada
	if _, err := repo.AddToWatchlist(ctx, "user1", "ethereum"); err != nil {
		t.Fatalf("AddToWatchlist falló: %v", err)
	}
	portfolio, err := repo.AddToWatchlist(ctx, "user1", "ethereum")
	if err != nil {
		t.Fatalf("AddToWatchlist repetido falló: %v", err)
	}
	if len(portfolio.Watchlist) != 1 || portfolio.Watchlist[0] != "ethereum" {
		t.Fatalf("esperaba watchlist [ethereum], obtuve %v", portfolio.Watchlist)
	}

	// Quitar una moneda ausente es un no-op exitoso
	portfolio, err = repo.RemoveFromWatchlist(ctx, "user1", "dogecoin")
	if err != nil {
		t.Fatalf("RemoveFromWatchlist de moneda ausente falló: %v", err)
	}
	if len(portfolio.Watchlist) != 1 {
		t.Fatalf("la watchlist no debía cambiar, obtuve %v", portfolio.Watchlist)
	}

	// Quitar la moneda presente la elimina
	portfolio, err = repo.RemoveFromWatchlist(ctx, "user1", "ethereum")
	if err != nil {
		t.Fatalf("RemoveFromWatchlist falló: %v", err)
	}
	if len(portfolio.Watchlist) != 0 {
		t.Fatalf("esperaba watchlist vacía, obtuve %v", portfolio.Watchlist)
	}
}

func TestExecuteTrade_ConcurrentBuysSameUser(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	// N compras concurrentes de 1 unidad: el total final debe ser N,
	// nunca menos (sin updates perdidos)
	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ExecuteTrade(ctx, "user1", "solana", models.TradeSideBuy, 1, 100); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("compra concurrente falló: %v", err)
	}

	portfolio, err := repo.GetPortfolio(ctx, "user1")
	if err != nil {
		t.Fatalf("GetPortfolio falló: %v", err)
	}
	holding := portfolio.Holdings["solana"]
	if holding.Amount != n {
		t.Errorf("update perdido: esperaba amount=%d, obtuve %v", n, holding.Amount)
	}
	if holding.AvgPrice != 100 {
		t.Errorf("esperaba avg=100, obtuve %v", holding.AvgPrice)
	}

	trades, _ := repo.GetTradeHistory(ctx, "user1")
	if len(trades) != n {
		t.Errorf("esperaba %d trades en el historial, obtuve %d", n, len(trades))
	}
	// El orden (timestamp, sequence) debe ser estrictamente creciente
	for i := 1; i < len(trades); i++ {
		prev, cur := trades[i-1], trades[i]
		if cur.Timestamp.Before(prev.Timestamp) {
			t.Fatalf("historial desordenado en la posición %d", i)
		}
		if cur.Timestamp.Equal(prev.Timestamp) && cur.Sequence <= prev.Sequence {
			t.Fatalf("claves de orden repetidas en la posición %d", i)
		}
	}
}

func TestExecuteTrade_StoreUnavailable(t *testing.T) {
	repo, kv := newTestRepo()
	ctx := context.Background()

	kv.FailPuts = true
	_, err := repo.ExecuteTrade(ctx, "user1", "bitcoin", models.TradeSideBuy, 1, 100)
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Fatalf("esperaba ErrStoreUnavailable, obtuve %v", err)
	}

	// Ninguna escritura parcial debe ser visible
	kv.FailPuts = false
	portfolio, err := repo.GetPortfolio(ctx, "user1")
	if err != nil {
		t.Fatalf("GetPortfolio falló: %v", err)
	}
	if len(portfolio.Holdings) != 0 {
		t.Errorf("el trade fallido dejó holdings: %v", portfolio.Holdings)
	}
	trades, _ := repo.GetTradeHistory(ctx, "user1")
	if len(trades) != 0 {
		t.Errorf("el trade fallido dejó registros en el historial: %d", len(trades))
	}
}

func TestExecuteTrade_CancelledContext(t *testing.T) {
	repo, _ := newTestRepo()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ExecuteTrade(ctx, "user1", "bitcoin", models.TradeSideBuy, 1, 100)
	if err == nil {
		t.Fatal("esperaba error con contexto cancelado")
	}

	// La petición cancelada no debe haberse aplicado
	portfolio, err := repo.GetPortfolio(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetPortfolio falló: %v", err)
	}
	if len(portfolio.Holdings) != 0 {
		t.Errorf("la petición cancelada modificó el portafolio")
	}
}

func TestExecuteTrade_UsersIndependent(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	if _, err := repo.ExecuteTrade(ctx, "user1", "bitcoin", models.TradeSideBuy, 1, 100); err != nil {
		t.Fatalf("compra de user1 falló: %v", err)
	}
	if _, err := repo.ExecuteTrade(ctx, "user2", "bitcoin", models.TradeSideBuy, 3, 200); err != nil {
		t.Fatalf("compra de user2 falló: %v", err)
	}

	p1, _ := repo.GetPortfolio(ctx, "user1")
	p2, _ := repo.GetPortfolio(ctx, "user2")
	if p1.Holdings["bitcoin"].Amount != 1 || p2.Holdings["bitcoin"].Amount != 3 {
		t.Errorf("los portafolios se mezclaron entre usuarios")
	}

	t1, _ := repo.GetTradeHistory(ctx, "user1")
	t2, _ := repo.GetTradeHistory(ctx, "user2")
	if len(t1) != 1 || len(t2) != 1 {
		t.Errorf("historiales cruzados: user1=%d user2=%d", len(t1), len(t2))
	}
}

func TestGetPortfolio_CreatesDefaultOnFirstAccess(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	portfolio, err := repo.GetPortfolio(ctx, "nuevo")
	if err != nil {
		t.Fatalf("GetPortfolio falló: %v", err)
	}
	if len(portfolio.Holdings) != 0 || len(portfolio.Watchlist) != 0 {
		t.Errorf("el portafolio nuevo no está vacío: %+v", portfolio)
	}
	if portfolio.CreatedAt.IsZero() {
		t.Errorf("el portafolio nuevo no tiene fecha de creación")
	}

	// El segundo acceso devuelve el mismo portafolio persistido
	again, err := repo.GetPortfolio(ctx, "nuevo")
	if err != nil {
		t.Fatalf("segundo GetPortfolio falló: %v", err)
	}
	if !again.CreatedAt.Equal(portfolio.CreatedAt) || again.Version != portfolio.Version {
		t.Errorf("el portafolio no quedó persistido en el primer acceso")
	}
}
