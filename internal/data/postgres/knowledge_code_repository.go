package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/platform/persistence"
)

// KnowledgeCodeRepository stores IMF, TAX and COT codes
type KnowledgeCodeRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewKnowledgeCodeRepository creates a new PostgreSQL knowledge code repository
func NewKnowledgeCodeRepository(logger *slog.Logger, db *persistence.PostgresDB) verification.KnowledgeCodeRepository {
	return &KnowledgeCodeRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *KnowledgeCodeRepository) WithTx(tx pgx.Tx) verification.KnowledgeCodeRepository {
	return &KnowledgeCodeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetActive returns the user's active code for the gate
func (r *KnowledgeCodeRepository) GetActive(ctx context.Context, userID uuid.UUID, gate shared.Gate) (*verification.KnowledgeCode, error) {
	query := `
		SELECT id, user_id, code_type, code, active, created_at
		FROM knowledge_codes
		WHERE user_id = $1 AND code_type = $2 AND active
		ORDER BY created_at DESC
		LIMIT 1
	`

	var code verification.KnowledgeCode
	err := r.querier.QueryRow(ctx, query, userID, gate).Scan(
		&code.ID,
		&code.UserID,
		&code.Type,
		&code.Code,
		&code.Active,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, verification.ErrFactorNotFound{UserID: userID, Factor: string(gate)}
		}
		r.logger.Error("Failed to get knowledge code", "user_id", userID.String(), "type", string(gate), "error", err)
		return nil, fmt.Errorf("failed to get knowledge code: %w", err)
	}

	return &code, nil
}

// DeactivateAll retires every active code of the gate for the user
func (r *KnowledgeCodeRepository) DeactivateAll(ctx context.Context, userID uuid.UUID, gate shared.Gate) error {
	query := `
		UPDATE knowledge_codes
		SET active = FALSE
		WHERE user_id = $1 AND code_type = $2 AND active
	`

	if _, err := r.querier.Exec(ctx, query, userID, gate); err != nil {
		r.logger.Error("Failed to deactivate knowledge codes", "user_id", userID.String(), "type", string(gate), "error", err)
		return fmt.Errorf("failed to deactivate knowledge codes: %w", err)
	}

	return nil
}

// Create stores a new code
func (r *KnowledgeCodeRepository) Create(ctx context.Context, code *verification.KnowledgeCode) error {
	query := `
		INSERT INTO knowledge_codes (id, user_id, code_type, code, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, code.ID, code.UserID, code.Type, code.Code, code.Active, code.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create knowledge code", "user_id", code.UserID.String(), "type", string(code.Type), "error", err)
		return fmt.Errorf("failed to create knowledge code: %w", err)
	}

	return nil
}
