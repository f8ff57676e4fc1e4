package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// ErrPriceUnavailable indica que no hay precio para la moneda. Es distinto
// de un precio igual a cero: la valuación marca estos holdings en lugar de
// valuarlos en cero silenciosamente.
var ErrPriceUnavailable = errors.New("precio no disponible")

// CryptoData contiene la información de precio de una criptomoneda
type CryptoData struct {
	Price       float64 `json:"price"`
	MarketCap   float64 `json:"market_cap"`
	Volume24h   float64 `json:"volume_24h"`
	Change24h   float64 `json:"change_24h"`
	LastUpdated string  `json:"last_updated"`
}

// Caché para almacenar precios y reducir llamadas a la API
var (
	priceCache   = make(map[string]cachedPrice)
	priceCacheMu sync.Mutex
)

type cachedPrice struct {
	Data      CryptoData
	Timestamp time.Time
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// GetCryptoPriceFromCoinGecko obtiene el precio actual de una criptomoneda
// desde CoinGecko, usando el caché si el precio tiene menos de 5 minutos
func GetCryptoPriceFromCoinGecko(coinID string) (CryptoData, error) {
	priceCacheMu.Lock()
	if cached, exists := priceCache[coinID]; exists && time.Since(cached.Timestamp) < 5*time.Minute {
		priceCacheMu.Unlock()
		return cached.Data, nil
	}
	priceCacheMu.Unlock()

	reqURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_market_cap=true&include_24hr_vol=true&include_24hr_change=true&include_last_updated_at=true",
		coinGeckoBaseURL, url.QueryEscape(coinID))

	resp, err := httpClient.Get(reqURL)
	if err != nil {
		log.Printf("Error al obtener precio de %s: %v", coinID, err)
		return CryptoData{}, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("CoinGecko devolvió %d para %s", resp.StatusCode, coinID)
		return CryptoData{}, ErrPriceUnavailable
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Error al leer respuesta para %s: %v", coinID, err)
		return CryptoData{}, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	var result map[string]map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		log.Printf("Error al parsear JSON para %s: %v", coinID, err)
		return CryptoData{}, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	tokenData, exists := result[coinID]
	if !exists {
		return CryptoData{}, ErrPriceUnavailable
	}

	data := CryptoData{
		Price:       getFloat(tokenData, "usd"),
		MarketCap:   getFloat(tokenData, "usd_market_cap"),
		Volume24h:   getFloat(tokenData, "usd_24h_vol"),
		Change24h:   getFloat(tokenData, "usd_24h_change"),
		LastUpdated: time.Unix(int64(getFloat(tokenData, "last_updated_at")), 0).Format(time.RFC3339),
	}

	priceCacheMu.Lock()
	priceCache[coinID] = cachedPrice{Data: data, Timestamp: time.Now()}
	priceCacheMu.Unlock()

	return data, nil
}

// CurrentPrice devuelve solo el precio actual en USD de una moneda
func CurrentPrice(coinID string) (float64, error) {
	data, err := GetCryptoPriceFromCoinGecko(coinID)
	if err != nil {
		return 0, err
	}
	return data.Price, nil
}

// ProxyCoinGecko reenvía una consulta a CoinGecko y devuelve el JSON crudo.
// Lo usan los endpoints /api/* que alimentan las tablas y gráficos del
// frontend sin exponer la API externa al navegador.
func ProxyCoinGecko(path string, params url.Values) ([]byte, int, error) {
	reqURL := coinGeckoBaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	resp, err := httpClient.Get(reqURL)
	if err != nil {
		return nil, http.StatusBadGateway, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, http.StatusBadGateway, err
	}
	return body, resp.StatusCode, nil
}

// getFloat extrae un valor float64 de un mapa
func getFloat(data map[string]interface{}, key string) float64 {
	if val, exists := data[key]; exists {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case string:
			var f float64
			fmt.Sscanf(v, "%f", &f)
			return f
		}
	}
	return 0
}
