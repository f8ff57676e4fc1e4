package middleware

import (
	"net/http"
	"net/url"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/services"
	"github.com/gin-gonic/gin"
)

// Handlers que reenvían las consultas de mercado a CoinGecko. El frontend
// nunca habla con el proveedor directamente: todo pasa por acá para poder
// cachear y para no exponer la API externa.

// GetGlobalMarket devuelve los datos globales del mercado
func GetGlobalMarket(c *gin.Context) {
	proxyJSON(c, "/global", url.Values{})
}

// GetCoinsMarkets devuelve la tabla principal de monedas
func GetCoinsMarkets(c *gin.Context) {
	params := url.Values{}
	params.Set("vs_currency", c.DefaultQuery("vs_currency", "usd"))
	params.Set("order", c.DefaultQuery("order", "market_cap_desc"))
	params.Set("per_page", c.DefaultQuery("per_page", "100"))
	params.Set("page", c.DefaultQuery("page", "1"))
	params.Set("sparkline", c.DefaultQuery("sparkline", "true"))
	params.Set("price_change_percentage", c.DefaultQuery("price_change_percentage", "7d"))
	proxyJSON(c, "/coins/markets", params)
}

// GetCoinDetail devuelve el detalle de una moneda
func GetCoinDetail(c *gin.Context) {
	params := url.Values{}
	params.Set("localization", c.DefaultQuery("localization", "false"))
	params.Set("tickers", c.DefaultQuery("tickers", "false"))
	params.Set("market_data", c.DefaultQuery("market_data", "true"))
	params.Set("community_data", c.DefaultQuery("community_data", "false"))
	params.Set("developer_data", c.DefaultQuery("developer_data", "false"))
	proxyJSON(c, "/coins/"+c.Param("id"), params)
}

// GetCoinMarketChart devuelve la serie histórica de precios de una moneda
func GetCoinMarketChart(c *gin.Context) {
	params := url.Values{}
	params.Set("vs_currency", c.DefaultQuery("vs_currency", "usd"))
	params.Set("days", c.DefaultQuery("days", "7"))
	proxyJSON(c, "/coins/"+c.Param("id")+"/market_chart", params)
}

// SearchCoins busca monedas por nombre o ticker
func SearchCoins(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El parámetro query es requerido"})
		return
	}
	params := url.Values{}
	params.Set("query", query)
	proxyJSON(c, "/search", params)
}

// proxyJSON reenvía la consulta y responde el JSON crudo del proveedor
func proxyJSON(c *gin.Context, path string, params url.Values) {
	body, status, err := services.ProxyCoinGecko(path, params)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error al consultar el proveedor de datos de mercado"})
		return
	}
	c.Data(status, "application/json", body)
}
