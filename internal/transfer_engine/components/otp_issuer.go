package components

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/platform/persistence"
	"github.com/transfer-verification-engine/internal/platform/ratelimit"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// OTPIssuerImpl throttles issuance, stores the code and emits OTP_ISSUED for delivery
type OTPIssuerImpl struct {
	db       persistence.TxRunner
	otps     verification.OTPRepository
	events   service.EventRecorder
	limiter  ratelimit.Limiter
	cfg      config.VerificationConfig
	generate func(length int) (string, error)
	logger   *slog.Logger
}

// NewOTPIssuer creates an issuer using the verification settings
func NewOTPIssuer(
	db persistence.TxRunner,
	otps verification.OTPRepository,
	events service.EventRecorder,
	limiter ratelimit.Limiter,
	cfg config.VerificationConfig,
	logger *slog.Logger,
) service.OTPIssuer {
	return &OTPIssuerImpl{
		db:       db,
		otps:     otps,
		events:   events,
		limiter:  limiter,
		cfg:      cfg,
		generate: randomDigits,
		logger:   logger,
	}
}

// randomDigits returns a uniformly random numeric string
func randomDigits(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// Issue invalidates outstanding codes for the purpose and creates a fresh one.
// At most one code per interval and OTPIssuePerWindow codes per window are
// issued; both slots are reserved before the code is generated.
func (i *OTPIssuerImpl) Issue(ctx context.Context, userID uuid.UUID, purpose string) (*verification.OneTimeCode, error) {
	if purpose == "" {
		purpose = i.cfg.OTPPurpose
	}

	intervalKey := fmt.Sprintf("otp:interval:%s:%s", purpose, userID)
	windowKey := fmt.Sprintf("otp:window:%s:%s", purpose, userID)

	if err := i.limiter.Reserve(ctx, intervalKey, 1, i.cfg.OTPIssueInterval); err != nil {
		return nil, err
	}
	if err := i.limiter.Reserve(ctx, windowKey, i.cfg.OTPIssuePerWindow, i.cfg.OTPIssueWindow); err != nil {
		i.release(ctx, intervalKey)
		return nil, err
	}

	digits, err := i.generate(i.cfg.OTPLength)
	if err != nil {
		i.release(ctx, intervalKey, windowKey)
		return nil, fmt.Errorf("failed to generate one-time code: %w", err)
	}
	code := verification.NewOneTimeCode(userID, purpose, digits, i.cfg.OTPExpiry)

	err = i.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		otps := i.otps.WithTx(tx)
		if err := otps.InvalidateUnused(ctx, userID, purpose); err != nil {
			return err
		}
		if err := otps.Create(ctx, code); err != nil {
			return err
		}
		return i.events.Record(ctx, tx, transfer.NewOTPIssuedEvent(userID, purpose, digits))
	})
	if err != nil {
		i.release(ctx, intervalKey, windowKey)
		return nil, fmt.Errorf("failed to issue one-time code: %w", err)
	}

	i.logger.Info("One-time code issued", "user_id", userID.String(), "purpose", purpose, "otp_id", code.ID.String())
	return code, nil
}

// release hands back issuance slots for a code that was never stored
func (i *OTPIssuerImpl) release(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := i.limiter.Release(ctx, key); err != nil {
			i.logger.Warn("Failed to release one-time code issuance slot", "key", key, "error", err)
		}
	}
}
