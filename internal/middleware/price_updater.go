package middleware

import (
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/services"
)

// Variable global para almacenar la instancia del actualizador de valuaciones
var priceUpdaterInstance *services.PriceUpdater

// SetPriceUpdater establece la instancia del actualizador de valuaciones
func SetPriceUpdater(updater *services.PriceUpdater) {
	priceUpdaterInstance = updater
}

// GetPriceUpdater obtiene la instancia del actualizador de valuaciones
func GetPriceUpdater() *services.PriceUpdater {
	return priceUpdaterInstance
}
