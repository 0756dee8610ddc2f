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

// OTPRepository stores one-time codes
type OTPRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOTPRepository creates a new PostgreSQL one-time code repository
func NewOTPRepository(logger *slog.Logger, db *persistence.PostgresDB) verification.OTPRepository {
	return &OTPRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *OTPRepository) WithTx(tx pgx.Tx) verification.OTPRepository {
	return &OTPRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a freshly issued code
func (r *OTPRepository) Create(ctx context.Context, code *verification.OneTimeCode) error {
	query := `
		INSERT INTO one_time_codes (id, user_id, purpose, code, expires_at, used, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		code.ID,
		code.UserID,
		code.Purpose,
		code.Code,
		code.ExpiresAt,
		code.Used,
		code.Attempts,
		code.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create one-time code", "user_id", code.UserID.String(), "error", err)
		return fmt.Errorf("failed to create one-time code: %w", err)
	}

	return nil
}

// InvalidateUnused marks every outstanding code for the purpose as used
func (r *OTPRepository) InvalidateUnused(ctx context.Context, userID uuid.UUID, purpose string) error {
	query := `
		UPDATE one_time_codes
		SET used = TRUE
		WHERE user_id = $1 AND purpose = $2 AND used = FALSE
	`

	if _, err := r.querier.Exec(ctx, query, userID, purpose); err != nil {
		r.logger.Error("Failed to invalidate one-time codes", "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to invalidate one-time codes: %w", err)
	}

	return nil
}

// GetLatest returns the most recently issued code for the purpose, used or not
func (r *OTPRepository) GetLatest(ctx context.Context, userID uuid.UUID, purpose string) (*verification.OneTimeCode, error) {
	query := `
		SELECT id, user_id, purpose, code, expires_at, used, attempts, verified_at, created_at
		FROM one_time_codes
		WHERE user_id = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var code verification.OneTimeCode
	err := r.querier.QueryRow(ctx, query, userID, purpose).Scan(
		&code.ID,
		&code.UserID,
		&code.Purpose,
		&code.Code,
		&code.ExpiresAt,
		&code.Used,
		&code.Attempts,
		&code.VerifiedAt,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, verification.ErrFactorNotFound{UserID: userID, Factor: "otp"}
		}
		r.logger.Error("Failed to get one-time code", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get one-time code: %w", err)
	}

	return &code, nil
}

// RecordFailedAttempt increments the attempt counter of an unused code and
// marks it used once maxAttempts is reached. It returns the new count.
func (r *OTPRepository) RecordFailedAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (int, error) {
	query := `
		UPDATE one_time_codes
		SET attempts = attempts + 1, used = (attempts + 1 >= $2)
		WHERE id = $1 AND used = FALSE
		RETURNING attempts
	`

	var attempts int
	if err := r.querier.QueryRow(ctx, query, id, maxAttempts).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrAlreadyUsed
		}
		r.logger.Error("Failed to record one-time code attempt", "id", id.String(), "error", err)
		return 0, fmt.Errorf("failed to record one-time code attempt: %w", err)
	}

	return attempts, nil
}

// Consume marks the code used if nobody else has; false means it lost the race
func (r *OTPRepository) Consume(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE one_time_codes
		SET used = TRUE, verified_at = NOW()
		WHERE id = $1 AND used = FALSE
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to consume one-time code", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to consume one-time code: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Invalidate marks a single code used without verifying it
func (r *OTPRepository) Invalidate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE one_time_codes SET used = TRUE WHERE id = $1`

	if _, err := r.querier.Exec(ctx, query, id); err != nil {
		r.logger.Error("Failed to invalidate one-time code", "id", id.String(), "error", err)
		return fmt.Errorf("failed to invalidate one-time code: %w", err)
	}

	return nil
}
