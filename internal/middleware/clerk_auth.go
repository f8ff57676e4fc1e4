package middleware

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AgusMolinaCode/CryptoTracker_Api.git/internal/models"
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"
)

var userClient *user.Client

// InitClerk initializes the Clerk client using the recommended pattern
func InitClerk() {
	secretKey := os.Getenv("CLERK_SECRET_KEY")
	if secretKey == "" {
		log.Printf("WARNING: CLERK_SECRET_KEY environment variable is not set. Clerk features will be disabled.")
		return
	}

	// Set global Clerk key (recommended approach)
	clerk.SetKey(secretKey)

	// Also initialize user client for API operations
	config := &clerk.ClientConfig{}
	config.Key = &secretKey
	userClient = user.NewClient(config)

	log.Printf("Clerk initialized successfully")
}

// ClerkAuthMiddleware validates Clerk JWT tokens using the proper SDK approach.
// It is the drop-in alternative to AuthMiddleware for deployments that use
// Clerk instead of the native email/password flow.
func ClerkAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check if Clerk is initialized
		if userClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Clerk authentication not available"})
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token no proporcionado"})
			c.Abort()
			return
		}

		tokenString := strings.Replace(authHeader, "Bearer ", "", 1)

		// Verify the JWT token with Clerk using proper SDK method
		claims, err := jwt.Verify(c.Request.Context(), &jwt.VerifyParams{
			Token: tokenString,
		})

		if err != nil {
			log.Printf("JWT verification failed: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido"})
			c.Abort()
			return
		}

		// Extract user ID from claims (Subject contains the user ID)
		userID := claims.Subject
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token inválido: no se pudo extraer el ID del usuario"})
			c.Abort()
			return
		}

		c.Set("userId", userID)
		c.Set("clerkClaims", claims)
		c.Next()
	}
}

// ClerkWebhookHandler handles Clerk webhooks for user events using Svix
func ClerkWebhookHandler(c *gin.Context) {
	// Get the webhook signing secret from environment
	webhookSecret := os.Getenv("CLERK_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Printf("ERROR: CLERK_WEBHOOK_SECRET environment variable is not set")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
		return
	}

	// Read the raw body
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("ERROR: reading request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read request body"})
		return
	}

	// Initialize Svix webhook with secret
	wh, err := svix.NewWebhook(webhookSecret)
	if err != nil {
		log.Printf("ERROR: creating Svix webhook: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initialize webhook verification"})
		return
	}

	// Verify the webhook using Svix
	if err := wh.Verify(body, c.Request.Header); err != nil {
		log.Printf("ERROR: Svix webhook verification failed: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
		return
	}

	// Parse the webhook payload from the body we already read
	var webhookData map[string]interface{}
	if err := json.Unmarshal(body, &webhookData); err != nil {
		log.Printf("ERROR: parsing JSON payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	// Extract the event type
	eventType, ok := webhookData["type"].(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing event type"})
		return
	}

	log.Printf("Processing webhook event: %s", eventType)

	switch eventType {
	case "user.created":
		handleUserCreated(c, webhookData)
	case "user.updated":
		handleUserUpdated(c, webhookData)
	case "user.deleted":
		// Account deletion does not touch portfolios or trade history;
		// those records stay in the store
		log.Printf("user.deleted received, keeping portfolio data")
		c.JSON(http.StatusOK, gin.H{"message": "Event received"})
	default:
		// For other events, just return success
		log.Printf("Event type %s not handled", eventType)
		c.JSON(http.StatusOK, gin.H{"message": "Event received but not handled"})
	}
}

// handleUserCreated creates the user record and seeds their empty portfolio
// when they sign up through Clerk
func handleUserCreated(c *gin.Context, webhookData map[string]interface{}) {
	userID, email, name, ok := extractUserFields(webhookData)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook data structure"})
		return
	}

	newUser := &models.User{
		ID:        userID,
		Email:     email,
		Name:      name,
		Password:  "", // No password needed for Clerk users
		CreatedAt: time.Now(),
	}

	if err := userRepo.CreateUser(c.Request.Context(), newUser); err != nil {
		log.Printf("ERROR: creating user in store: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	// Seed the default empty portfolio so the dashboard has something to
	// render on first login
	if _, err := portfolioRepo.GetPortfolio(c.Request.Context(), userID); err != nil {
		log.Printf("ERROR: seeding portfolio for %s: %v", userID, err)
	}

	log.Printf("User created successfully: ID=%s, Email=%s", userID, email)
	c.JSON(http.StatusOK, gin.H{"message": "User created successfully"})
}

// handleUserUpdated updates user information in the store
func handleUserUpdated(c *gin.Context, webhookData map[string]interface{}) {
	userID, email, name, ok := extractUserFields(webhookData)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook data structure"})
		return
	}

	updated := &models.User{
		ID:    userID,
		Email: email,
		Name:  name,
	}

	if err := userRepo.UpdateUser(c.Request.Context(), updated); err != nil {
		log.Printf("ERROR: updating user in store: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	log.Printf("User updated successfully: ID=%s, Email=%s", userID, email)
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

// extractUserFields pulls id, primary email and display name out of a
// Clerk webhook payload
func extractUserFields(webhookData map[string]interface{}) (userID, email, name string, ok bool) {
	data, valid := webhookData["data"].(map[string]interface{})
	if !valid {
		return "", "", "", false
	}

	userID, valid = data["id"].(string)
	if !valid || userID == "" {
		return "", "", "", false
	}

	emailAddresses, valid := data["email_addresses"].([]interface{})
	if !valid || len(emailAddresses) == 0 {
		return "", "", "", false
	}

	for _, emailAddr := range emailAddresses {
		if emailMap, isMap := emailAddr.(map[string]interface{}); isMap {
			if addr, isStr := emailMap["email_address"].(string); isStr && addr != "" {
				email = addr
				break
			}
		}
	}
	if email == "" {
		return "", "", "", false
	}

	firstName, _ := data["first_name"].(string)
	lastName, _ := data["last_name"].(string)
	name = strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		name = strings.Split(email, "@")[0] // Use email username as fallback
	}

	return userID, email, name, true
}
