package middleware

import (
	"errors"
	"net/http"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/repository"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/store"
	"github.com/gin-gonic/gin"
)

// ExecuteTrade procesa una compra o venta simulada del usuario autenticado
func ExecuteTrade(c *gin.Context) {
	userID := c.GetString("userId")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario no autenticado"})
		return
	}

	var req models.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, err := portfolioRepo.ExecuteTrade(c.Request.Context(), userID, req.CoinID, req.Side, req.Amount, req.Price)
	if err != nil {
		status, message := tradeErrorResponse(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	// Descartar la valuación cacheada para que el dashboard refleje el trade
	if updater := GetPriceUpdater(); updater != nil {
		updater.Invalidate(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Trade ejecutado exitosamente",
		"portfolio": portfolio,
	})
}

// GetTradeHistory devuelve el historial de trades del usuario, del más
// nuevo al más viejo para mostrarlo directo en el dashboard
func GetTradeHistory(c *gin.Context) {
	userID := c.GetString("userId")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario no autenticado"})
		return
	}

	trades, err := portfolioRepo.GetTradeHistory(c.Request.Context(), userID)
	if err != nil {
		status, message := tradeErrorResponse(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	// El log guarda del más viejo al más nuevo; el dashboard lo muestra al revés
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}

	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

// tradeErrorResponse traduce los errores del ledger a códigos HTTP
func tradeErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrInvalidAmount):
		return http.StatusBadRequest, "El monto y el precio deben ser mayores que cero"
	case errors.Is(err, repository.ErrInsufficientHoldings):
		return http.StatusBadRequest, "Fondos insuficientes para esta venta"
	case errors.Is(err, repository.ErrNotAuthenticated):
		return http.StatusUnauthorized, "Usuario no autenticado"
	case errors.Is(err, repository.ErrConcurrentModification):
		return http.StatusConflict, "El portafolio fue modificado por otra operación, intente nuevamente"
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "El almacén no está disponible, intente nuevamente"
	default:
		return http.StatusInternalServerError, "Error al ejecutar la operación"
	}
}
