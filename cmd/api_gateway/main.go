package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/transfer-verification-engine/internal/api_gateway"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/data/mongo"
	"github.com/transfer-verification-engine/internal/data/postgres"
	"github.com/transfer-verification-engine/internal/logger"
	"github.com/transfer-verification-engine/internal/platform/persistence"
	"github.com/transfer-verification-engine/internal/transfer_engine/components"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	checks := map[string]api_gateway.HealthChecker{"postgres": postgresDB}

	repos := components.Repositories{
		Accounts:       postgres.NewAccountRepository(log, postgresDB),
		Transfers:      postgres.NewTransferRepository(log, postgresDB),
		Ledger:         postgres.NewLedgerRepository(log, postgresDB),
		Outbox:         postgres.NewOutboxRepository(log, postgresDB),
		PINs:           postgres.NewPINRepository(log, postgresDB),
		KnowledgeCodes: postgres.NewKnowledgeCodeRepository(log, postgresDB),
		OTPs:           postgres.NewOTPRepository(log, postgresDB),
	}

	// The audit trail is read-only here; without MongoDB the events endpoint reports it unavailable
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Warn("MongoDB unavailable, transfer audit trail disabled", "error", err)
	} else {
		repos.AuditLog = mongo.NewAuditRepository(log, mongoDB.Database())
		checks["mongodb"] = mongoDB
	}

	// Attempt counters are shared across replicas only when Redis is enabled
	var redisStore *persistence.Redis
	var redisClient redis.Cmdable
	if cfg.Redis.Enabled {
		redisStore, err = persistence.NewRedis(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		redisClient = redisStore.Client()
		checks["redis"] = redisStore
	}
	limiter := components.NewLimiter(redisClient, cfg.Redis, log)

	engine := components.CreateEngine(postgresDB, repos, limiter, log, cfg)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, engine.Transfers, engine.Accounts, checks)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain HTTP first so no request outlives its database
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if mongoDB != nil {
		if err = mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	if redisStore != nil {
		if err = redisStore.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
