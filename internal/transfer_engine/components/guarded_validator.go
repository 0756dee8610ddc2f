package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/platform/ratelimit"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// GuardedValidator wraps a validator with attempt counting per (gate, user)
type GuardedValidator struct {
	inner       service.GateValidator
	limiter     ratelimit.Limiter
	maxAttempts int
	cooldown    time.Duration
	logger      *slog.Logger
}

// NewGuardedValidator locks the gate for cooldown once maxAttempts submissions failed
func NewGuardedValidator(inner service.GateValidator, limiter ratelimit.Limiter, maxAttempts int, cooldown time.Duration, logger *slog.Logger) service.GateValidator {
	return &GuardedValidator{
		inner:       inner,
		limiter:     limiter,
		maxAttempts: maxAttempts,
		cooldown:    cooldown,
		logger:      logger,
	}
}

func verifyKey(gate shared.Gate, userID uuid.UUID) string {
	return fmt.Sprintf("verify:%s:%s", gate, userID)
}

// countsAsAttempt reports whether err is a wrong or stale value the user submitted
func countsAsAttempt(err error) bool {
	return errors.Is(err, shared.ErrMismatch) ||
		errors.Is(err, shared.ErrExpired) ||
		errors.Is(err, shared.ErrAlreadyUsed) ||
		errors.Is(err, shared.ErrCodeNotFound)
}

// Validate takes an attempt slot before running the inner validator, so a
// burst of parallel submissions cannot evaluate more than maxAttempts values.
// Slots spent on errors that are not the user's fault are handed back.
func (v *GuardedValidator) Validate(ctx context.Context, userID uuid.UUID, gate shared.Gate, value string) error {
	key := verifyKey(gate, userID)

	if err := v.limiter.Reserve(ctx, key, v.maxAttempts, v.cooldown); err != nil {
		return err
	}

	err := v.inner.Validate(ctx, userID, gate, value)
	if err != nil {
		if !countsAsAttempt(err) {
			if releaseErr := v.limiter.Release(ctx, key); releaseErr != nil {
				v.logger.Warn("Failed to release verification attempt", "key", key, "error", releaseErr)
			}
		}
		return err
	}

	if clearErr := v.limiter.Clear(ctx, key); clearErr != nil {
		v.logger.Warn("Failed to clear verification attempts", "key", key, "error", clearErr)
	}
	return nil
}

// GateValidators dispatches each gate to its validator
type GateValidators map[shared.Gate]service.GateValidator

func (m GateValidators) Validate(ctx context.Context, userID uuid.UUID, gate shared.Gate, value string) error {
	validator, ok := m[gate]
	if !ok {
		return shared.ErrInvalidGate
	}
	return validator.Validate(ctx, userID, gate, value)
}
