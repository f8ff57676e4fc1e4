package middleware

import (
	"net/http"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/services"
	"github.com/gin-gonic/gin"
)

// GetPortfolio devuelve el portafolio del usuario autenticado, creándolo
// vacío en el primer acceso
func GetPortfolio(c *gin.Context) {
	userID := c.GetString("userId")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario no autenticado"})
		return
	}

	portfolio, err := portfolioRepo.GetPortfolio(c.Request.Context(), userID)
	if err != nil {
		status, message := tradeErrorResponse(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

// AddToWatchlist agrega una moneda a la lista de seguimiento del usuario.
// Agregar una moneda ya presente devuelve éxito sin duplicarla.
func AddToWatchlist(c *gin.Context) {
	userID := c.GetString("userId")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario no autenticado"})
		return
	}

	var req struct {
		CoinID string `json:"coin_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, err := portfolioRepo.AddToWatchlist(c.Request.Context(), userID, req.CoinID)
	if err != nil {
		status, message := tradeErrorResponse(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

// RemoveFromWatchlist quita una moneda de la lista de seguimiento.
// Quitar una moneda ausente también devuelve éxito.
func RemoveFromWatchlist(c *gin.Context) {
	userID := c.GetString("userId")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario no autenticado"})
		return
	}

	coinID := c.Param("coinId")
	if coinID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Falta el id de la moneda"})
		return
	}

	portfolio, err := portfolioRepo.RemoveFromWatchlist(c.Request.Context(), userID, coinID)
	if err != nil {
		status, message := tradeErrorResponse(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

// GetDashboard devuelve la valuación del portafolio a precios actuales.
// Usa la valuación cacheada por el actualizador si existe; si no, la
// calcula en el momento.
func GetDashboard(c *gin.Context) {
	userID := c.GetString("userId")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Usuario no autenticado"})
		return
	}

	if updater := GetPriceUpdater(); updater != nil {
		if cached, exists := updater.GetCachedValuation(userID); exists {
			c.JSON(http.StatusOK, gin.H{
				"dashboard":    cached,
				"last_updated": updater.GetLastUpdated(),
			})
			return
		}
	}

	portfolio, err := portfolioRepo.GetPortfolio(c.Request.Context(), userID)
	if err != nil {
		status, message := tradeErrorResponse(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	valuation := services.ValuatePortfolio(portfolio, services.CurrentPrice)
	c.JSON(http.StatusOK, gin.H{"dashboard": valuation})
}
