package components

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// OTPValidator redeems the newest one-time code issued for a purpose
type OTPValidator struct {
	otps        verification.OTPRepository
	purpose     string
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

// NewOTPValidator creates a validator that locks a code after maxAttempts wrong guesses
func NewOTPValidator(otps verification.OTPRepository, purpose string, maxAttempts int, logger *slog.Logger) service.GateValidator {
	return &OTPValidator{
		otps:        otps,
		purpose:     purpose,
		maxAttempts: maxAttempts,
		now:         time.Now,
		logger:      logger,
	}
}

func (v *OTPValidator) Validate(ctx context.Context, userID uuid.UUID, _ shared.Gate, value string) error {
	code, err := v.otps.GetLatest(ctx, userID, v.purpose)
	if err != nil {
		if errors.Is(err, verification.ErrFactorNotFound{}) {
			return shared.ErrCodeNotFound
		}
		return fmt.Errorf("failed to load one-time code: %w", err)
	}

	if code.Used {
		return shared.ErrAlreadyUsed
	}

	if code.IsExpired(v.now()) {
		if err := v.otps.Invalidate(ctx, code.ID); err != nil {
			v.logger.Warn("Failed to invalidate expired one-time code", "otp_id", code.ID.String(), "error", err)
		}
		return shared.ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(code.Code), []byte(value)) != 1 {
		attempts, err := v.otps.RecordFailedAttempt(ctx, code.ID, v.maxAttempts)
		if err != nil && !errors.Is(err, shared.ErrAlreadyUsed) {
			return fmt.Errorf("failed to record one-time code attempt: %w", err)
		}
		if attempts >= v.maxAttempts {
			v.logger.Warn("One-time code locked after repeated mismatches", "user_id", userID.String(), "otp_id", code.ID.String())
		}
		return shared.ErrMismatch
	}

	consumed, err := v.otps.Consume(ctx, code.ID)
	if err != nil {
		return fmt.Errorf("failed to consume one-time code: %w", err)
	}
	if !consumed {
		return shared.ErrAlreadyUsed
	}

	return nil
}
