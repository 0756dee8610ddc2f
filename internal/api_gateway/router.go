package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/transfer-verification-engine/internal/api_gateway/handler"
	"github.com/transfer-verification-engine/internal/api_gateway/middleware"
	"github.com/transfer-verification-engine/internal/config"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	auth config.AuthConfig,
	accountHandler *handler.AccountHandler,
	transferHandler *handler.TransferHandler,
	adminHandler *handler.AdminHandler,
	checks map[string]HealthChecker,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	// API v1 endpoints, all behind bearer auth
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(auth.JWTSecret, auth.Issuer))
	{
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.GET("/:id/ledger", accountHandler.ListLedger)
		}

		transfers := v1.Group("/transfers")
		{
			transfers.POST("", transferHandler.Initiate)
			transfers.GET("", transferHandler.List)
			transfers.GET("/reference/:reference", transferHandler.GetByReference)
			transfers.GET("/:id", transferHandler.Get)
			transfers.GET("/:id/events", transferHandler.ListEvents)
			transfers.POST("/:id/gates/:gate", transferHandler.SubmitGate)
		}

		v1.POST("/otp", transferHandler.IssueOTP)

		admin := v1.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))
		{
			admin.POST("/transfers/:id/fail", adminHandler.Fail)
			admin.POST("/transfers/:id/reverse", adminHandler.Reverse)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Readiness reports each dependency so orchestrators can hold traffic
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				logger.Warn("Readiness check failed", "dependency", name, "error", err)
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		c.JSON(status, gin.H{"checks": results, "timestamp": time.Now().UTC()})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
