package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
)

// PortfolioReader define lo que el actualizador necesita del repositorio
type PortfolioReader interface {
	GetPortfolio(ctx context.Context, userID string) (*models.Portfolio, error)
}

// UserLister define lo que el actualizador necesita del repositorio de usuarios
type UserLister interface {
	GetAllUserIds(ctx context.Context) ([]string, error)
}

// PriceUpdater recalcula periódicamente la valuación del portafolio de
// cada usuario y la deja en caché para que el dashboard responda sin
// pegarle a CoinGecko en cada request. Solo lee: nunca toca el ledger.
type PriceUpdater struct {
	interval      time.Duration
	portfolios    PortfolioReader
	users         UserLister
	isRunning     bool
	stopChan      chan struct{}
	mutex         sync.Mutex
	lastUpdated   time.Time
	cachedResults map[string]*models.PortfolioValuation
}

// NewPriceUpdater crea un nuevo actualizador. Los repositorios se inyectan:
// el ciclo de vida del almacén es del servicio que nos hospeda.
func NewPriceUpdater(interval time.Duration, portfolios PortfolioReader, users UserLister) *PriceUpdater {
	return &PriceUpdater{
		interval:      interval,
		portfolios:    portfolios,
		users:         users,
		cachedResults: make(map[string]*models.PortfolioValuation),
	}
}

// Start inicia el servicio de actualización de valuaciones
func (p *PriceUpdater) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.isRunning {
		return
	}

	p.isRunning = true
	p.stopChan = make(chan struct{})

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		// Actualizar inmediatamente al iniciar
		p.updateAllValuations()

		for {
			select {
			case <-ticker.C:
				p.updateAllValuations()
			case <-p.stopChan:
				return
			}
		}
	}()

	log.Printf("Servicio de actualización de valuaciones iniciado con intervalo de %v", p.interval)
}

// Stop detiene el servicio
func (p *PriceUpdater) Stop() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.isRunning {
		return
	}

	p.isRunning = false
	close(p.stopChan)
	log.Printf("Servicio de actualización de valuaciones detenido")
}

// updateAllValuations recalcula la valuación de todos los usuarios
func (p *PriceUpdater) updateAllValuations() {
	ctx := context.Background()

	users, err := p.users.GetAllUserIds(ctx)
	if err != nil {
		log.Printf("Error al obtener usuarios: %v", err)
		return
	}

	for _, userID := range users {
		p.updateUserValuation(ctx, userID)
	}

	p.mutex.Lock()
	p.lastUpdated = time.Now()
	p.mutex.Unlock()
	log.Printf("Actualización de valuaciones completada para %d usuarios", len(users))
}

// updateUserValuation recalcula y cachea la valuación de un usuario
func (p *PriceUpdater) updateUserValuation(ctx context.Context, userID string) {
	portfolio, err := p.portfolios.GetPortfolio(ctx, userID)
	if err != nil {
		log.Printf("Error al obtener portafolio para usuario %s: %v", userID, err)
		return
	}

	valuation := ValuatePortfolio(portfolio, CurrentPrice)

	p.mutex.Lock()
	p.cachedResults[userID] = valuation
	p.mutex.Unlock()
}

// GetCachedValuation obtiene la valuación en caché para un usuario
func (p *PriceUpdater) GetCachedValuation(userID string) (*models.PortfolioValuation, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	result, exists := p.cachedResults[userID]
	return result, exists
}

// Invalidate descarta la valuación cacheada de un usuario. Se llama
// después de un trade para que el dashboard no muestre datos viejos.
func (p *PriceUpdater) Invalidate(userID string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	delete(p.cachedResults, userID)
}

// GetLastUpdated obtiene la última vez que se actualizaron las valuaciones
func (p *PriceUpdater) GetLastUpdated() time.Time {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.lastUpdated
}
