package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/platform/persistence"
)

// PINRepository stores transaction PIN hashes
type PINRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPINRepository creates a new PostgreSQL PIN repository
func NewPINRepository(logger *slog.Logger, db *persistence.PostgresDB) verification.PINRepository {
	return &PINRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// GetHash returns the bcrypt hash of the user's transaction PIN
func (r *PINRepository) GetHash(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT pin_hash FROM transaction_pins WHERE user_id = $1`

	var hash string
	if err := r.querier.QueryRow(ctx, query, userID).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", verification.ErrFactorNotFound{UserID: userID, Factor: "pin"}
		}
		r.logger.Error("Failed to get transaction pin", "user_id", userID.String(), "error", err)
		return "", fmt.Errorf("failed to get transaction pin: %w", err)
	}

	return hash, nil
}

// SetHash creates or replaces the user's PIN hash
func (r *PINRepository) SetHash(ctx context.Context, userID uuid.UUID, hash string) error {
	query := `
		INSERT INTO transaction_pins (user_id, pin_hash, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET pin_hash = EXCLUDED.pin_hash, updated_at = NOW()
	`

	if _, err := r.querier.Exec(ctx, query, userID, hash); err != nil {
		r.logger.Error("Failed to set transaction pin", "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to set transaction pin: %w", err)
	}

	return nil
}
