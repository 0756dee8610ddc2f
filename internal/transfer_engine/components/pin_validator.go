package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
	"golang.org/x/crypto/bcrypt"
)

// PINValidator compares a submitted PIN with the user's bcrypt hash
type PINValidator struct {
	pins   verification.PINRepository
	logger *slog.Logger
}

// NewPINValidator creates a PIN validator
func NewPINValidator(pins verification.PINRepository, logger *slog.Logger) service.GateValidator {
	return &PINValidator{
		pins:   pins,
		logger: logger,
	}
}

func (v *PINValidator) Validate(ctx context.Context, userID uuid.UUID, _ shared.Gate, value string) error {
	hash, err := v.pins.GetHash(ctx, userID)
	if err != nil {
		if errors.Is(err, verification.ErrFactorNotFound{}) {
			return shared.ErrNotConfigured
		}
		return fmt.Errorf("failed to load transaction pin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(value)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return shared.ErrMismatch
		}
		v.logger.Error("Stored transaction pin hash is unusable", "user_id", userID.String(), "error", err)
		return fmt.Errorf("failed to compare transaction pin: %w", err)
	}

	return nil
}
