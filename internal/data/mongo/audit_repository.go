package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/transfer-verification-engine/internal/domain/transfer"
)

const (
	// AuditCollectionName is the name of the transfer event collection in MongoDB
	AuditCollectionName = "transfer_events"
)

// AuditRepository implements the transfer.AuditLog interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique event index and the per-transfer timeline index
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_event_id"),
		},
		{
			Keys:    bson.D{{Key: "transfer_id", Value: 1}, {Key: "occurred_at", Value: 1}},
			Options: options.Index().SetName("idx_transfer_timeline"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to create audit indexes", "error", err)
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}

	return nil
}

// Record inserts the event. The unique event_id index turns redelivered
// messages into no-ops.
func (r *AuditRepository) Record(ctx context.Context, event *transfer.Event) error {
	collection := r.db.Collection(AuditCollectionName)

	if _, err := collection.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Audit event already recorded", "event_id", event.EventID.String())
			return nil
		}
		r.logger.Error("Failed to record audit event",
			"event_id", event.EventID.String(),
			"event_type", string(event.Type),
			"error", err)
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// ListByTransfer returns the transfer's events in the order they occurred
func (r *AuditRepository) ListByTransfer(ctx context.Context, transferID uuid.UUID, limit, offset int) ([]*transfer.Event, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"transfer_id": transferID}
	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit events",
			"transfer_id", transferID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]*transfer.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode audit events",
			"transfer_id", transferID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit events: %w", err)
	}

	return events, nil
}

// CountByTransfer counts the events recorded for a transfer
func (r *AuditRepository) CountByTransfer(ctx context.Context, transferID uuid.UUID) (int64, error) {
	collection := r.db.Collection(AuditCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"transfer_id": transferID})
	if err != nil {
		r.logger.Error("Failed to count audit events",
			"transfer_id", transferID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	return count, nil
}
