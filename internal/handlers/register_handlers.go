package handlers

import (
	"net/http"

	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/finvault/ledgerd/internal/middleware"
	"github.com/finvault/ledgerd/internal/notifier"
	"github.com/finvault/ledgerd/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies
// through interfaces from the composition root.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	hub *notifier.Hub,
	limiterInstance *limiter.Limiter,
) {
	// Public endpoints.
	r.GET("/", getRoot)
	r.GET("/health", getHealth(hub))

	// Everything else requires a valid API key and is rate limited.
	api := r.Group("/",
		middleware.RateLimit(limiterInstance),
		middleware.APIKeyAuth(services.APIKey, cfg.DisableAuth),
	)

	registerAccountRoutes(api, services.Account, services.Transaction)
	registerTransactionRoutes(api, services.Transaction)
	registerStreamRoutes(api, services.Account, hub)
}

func getRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "ledgerd",
		"version":     "1.0.0",
		"description": "Idempotent ledger transaction engine with live notifications",
		"endpoints": gin.H{
			"accounts": "/accounts",
			"health":   "/health",
			"stream":   "/ws/transactions/{accountNumber}",
		},
		"features": []string{
			"Idempotency support",
			"Websocket live updates",
			"CSV export",
			"API key authentication",
		},
	})
}

func getHealth(hub *notifier.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":               "healthy",
			"service":              "ledgerd",
			"websocketConnections": hub.CountTotal(),
			"notifications":        stats,
		})
	}
}
