package main

import (
	"log"
	"os"
	"time"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/middleware"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/repository"
	routes "github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/server"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/services"
	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Cargar variables de entorno
	if err := godotenv.Load(); err != nil {
		log.Printf("No se pudo cargar el archivo .env: %v", err)
	}

	// Crear el router de Gin
	router := gin.Default()

	// Configurar CORS
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"http://localhost:3000"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "Svix-Id", "Svix-Timestamp", "Svix-Signature"}
	config.AllowCredentials = true
	config.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(config))

	// Inicializar el almacén clave-valor según el backend configurado
	kv, err := openStore()
	if err != nil {
		log.Fatalf("Error al inicializar el almacén: %v", err)
	}
	defer kv.Close()

	// Construir los repositorios con el almacén inyectado
	history := repository.NewTradeHistory(kv)
	portfolios := repository.NewPortfolioRepository(kv, history)
	users := repository.NewUserRepository(kv)

	// Inicializar auth (JWT nativo y Clerk opcional)
	middleware.InitAuth(users, portfolios)
	middleware.InitClerk()

	// Iniciar el servicio de actualización de valuaciones (cada 15 segundos)
	priceUpdater := services.NewPriceUpdater(15*time.Second, portfolios, users)
	priceUpdater.Start()
	defer priceUpdater.Stop()

	// Hacer disponible el actualizador para los handlers
	middleware.SetPriceUpdater(priceUpdater)

	// Configurar las rutas
	routes.RegisterRoutes(router)

	// Iniciar el servidor
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Error al iniciar el servidor: %v", err)
	}
}

// openStore elige el backend del almacén según STORE_BACKEND:
// redis (por defecto), postgres o memory para desarrollo local
func openStore() (store.KVStore, error) {
	backend := os.Getenv("STORE_BACKEND")
	switch backend {
	case "postgres":
		return store.NewPostgresStore(os.Getenv("DATABASE_URL"))
	case "memory":
		log.Printf("Usando almacén en memoria: los datos se pierden al reiniciar")
		return store.NewMemoryStore(), nil
	default:
		url := os.Getenv("REDIS_URL")
		if url == "" {
			url = "redis://localhost:6379/0"
		}
		return store.NewRedisStore(url)
	}
}
