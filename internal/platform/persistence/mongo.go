package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/transfer-verification-engine/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const mongoAppName = "transfer-verification-engine"

// MongoDB holds the connection to the transfer audit trail store
type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
}

// auditClientOptions tunes the client for an append-only audit trail:
// majority acknowledged writes, retried once by the driver, and reads that
// may fall back to secondaries when the primary is away.
func auditClientOptions(cfg *config.MongoDBConfig) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.URI).
		SetAppName(mongoAppName).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetServerSelectionTimeout(cfg.Timeout).
		SetWriteConcern(writeconcern.Majority()).
		SetRetryWrites(true).
		SetReadPreference(readpref.PrimaryPreferred())
}

// NewMongoDB connects to the audit store and waits up to cfg.Timeout for it to answer
func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	clientOptions := auditClientOptions(cfg)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	started := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.PrimaryPreferred()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to audit store",
		"hosts", clientOptions.Hosts,
		"database", cfg.Database,
		"ping", time.Since(started),
	)

	return &MongoDB{
		logger:   logger,
		client:   client,
		database: client.Database(cfg.Database),
	}, nil
}

// Ping backs the readiness check
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.PrimaryPreferred())
}

// Database is handed to the audit repository
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed audit store connection", "database", m.database.Name())
	return nil
}
