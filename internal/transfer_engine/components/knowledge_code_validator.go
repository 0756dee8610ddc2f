package components

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// KnowledgeCodeValidator checks IMF, TAX and COT codes against the user's active code
type KnowledgeCodeValidator struct {
	codes verification.KnowledgeCodeRepository
}

// NewKnowledgeCodeValidator creates a knowledge code validator
func NewKnowledgeCodeValidator(codes verification.KnowledgeCodeRepository) service.GateValidator {
	return &KnowledgeCodeValidator{codes: codes}
}

func (v *KnowledgeCodeValidator) Validate(ctx context.Context, userID uuid.UUID, gate shared.Gate, value string) error {
	if !gate.IsKnowledgeCode() {
		return shared.ErrInvalidGate
	}

	code, err := v.codes.GetActive(ctx, userID, gate)
	if err != nil {
		if errors.Is(err, verification.ErrFactorNotFound{}) {
			return shared.ErrNotConfigured
		}
		return fmt.Errorf("failed to load %s code: %w", gate, err)
	}

	if subtle.ConstantTimeCompare([]byte(code.Code), []byte(value)) != 1 {
		return shared.ErrMismatch
	}

	return nil
}
