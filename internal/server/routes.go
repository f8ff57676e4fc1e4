package routes

import (
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.Engine) {
	// Autenticación nativa
	router.POST("/signup", middleware.Signup)
	router.POST("/login", middleware.Login)
	router.POST("/logout", middleware.AuthMiddleware(), middleware.Logout)

	// Webhook de Clerk (verificado con Svix, no pasa por AuthMiddleware)
	router.POST("/webhooks/clerk", middleware.ClerkWebhookHandler)

	// Proxy público de datos de mercado
	api := router.Group("/api")
	{
		api.GET("/global", middleware.GetGlobalMarket)
		api.GET("/coins/markets", middleware.GetCoinsMarkets)
		api.GET("/coins/:id", middleware.GetCoinDetail)
		api.GET("/coins/:id/market_chart", middleware.GetCoinMarketChart)
		api.GET("/search", middleware.SearchCoins)
	}

	// Rutas protegidas: portafolio, trading y watchlist
	protected := router.Group("/")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/portfolio", middleware.GetPortfolio)
		protected.POST("/trades", middleware.ExecuteTrade)
		protected.GET("/trades", middleware.GetTradeHistory)
		protected.POST("/watchlist", middleware.AddToWatchlist)
		protected.DELETE("/watchlist/:coinId", middleware.RemoveFromWatchlist)
		protected.GET("/dashboard", middleware.GetDashboard)
	}
}
