package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/platform/persistence"
	"golang.org/x/crypto/bcrypt"
)

// FactorManager provisions the secrets that PIN and knowledge code gates check against
type FactorManager struct {
	db     persistence.TxRunner
	pins   verification.PINRepository
	codes  verification.KnowledgeCodeRepository
	cost   int
	logger *slog.Logger
}

// NewFactorManager creates a manager hashing PINs at bcrypt.DefaultCost
func NewFactorManager(db persistence.TxRunner, pins verification.PINRepository, codes verification.KnowledgeCodeRepository, logger *slog.Logger) *FactorManager {
	return &FactorManager{
		db:     db,
		pins:   pins,
		codes:  codes,
		cost:   bcrypt.DefaultCost,
		logger: logger,
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SetPIN stores the bcrypt hash of a 4 to 6 digit PIN
func (m *FactorManager) SetPIN(ctx context.Context, userID uuid.UUID, pin string) error {
	if len(pin) < 4 || len(pin) > 6 || !isDigits(pin) {
		return fmt.Errorf("pin must be 4 to 6 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), m.cost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	if err := m.pins.SetHash(ctx, userID, string(hash)); err != nil {
		return err
	}

	m.logger.Info("Transaction pin set", "user_id", userID.String())
	return nil
}

// RotateKnowledgeCode retires the user's active code of the gate and activates code
func (m *FactorManager) RotateKnowledgeCode(ctx context.Context, userID uuid.UUID, gate shared.Gate, code string) (*verification.KnowledgeCode, error) {
	if !gate.IsKnowledgeCode() {
		return nil, fmt.Errorf("%w: %s is not a knowledge code gate", shared.ErrInvalidGate, gate)
	}
	if code == "" {
		return nil, fmt.Errorf("code must not be empty")
	}

	kc := verification.NewKnowledgeCode(userID, gate, code)
	err := m.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		codes := m.codes.WithTx(tx)
		if err := codes.DeactivateAll(ctx, userID, gate); err != nil {
			return err
		}
		return codes.Create(ctx, kc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rotate %s code: %w", gate, err)
	}

	m.logger.Info("Knowledge code rotated", "user_id", userID.String(), "type", string(gate))
	return kc, nil
}
