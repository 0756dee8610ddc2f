package verification

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

// PINRepository stores bcrypt hashes of transaction PINs
type PINRepository interface {
	GetHash(ctx context.Context, userID uuid.UUID) (string, error)
	SetHash(ctx context.Context, userID uuid.UUID, hash string) error
}

// KnowledgeCodeRepository stores IMF, TAX and COT codes
type KnowledgeCodeRepository interface {
	GetActive(ctx context.Context, userID uuid.UUID, gate shared.Gate) (*KnowledgeCode, error)
	DeactivateAll(ctx context.Context, userID uuid.UUID, gate shared.Gate) error
	Create(ctx context.Context, code *KnowledgeCode) error
	WithTx(tx pgx.Tx) KnowledgeCodeRepository
}

// OTPRepository stores one-time codes
type OTPRepository interface {
	Create(ctx context.Context, code *OneTimeCode) error

	// InvalidateUnused marks every unused code for the purpose as used
	InvalidateUnused(ctx context.Context, userID uuid.UUID, purpose string) error
	GetLatest(ctx context.Context, userID uuid.UUID, purpose string) (*OneTimeCode, error)

	// RecordFailedAttempt increments attempts and locks the code once maxAttempts is reached
	RecordFailedAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) (int, error)

	// Consume marks an unused code as used; false means another caller got there first
	Consume(ctx context.Context, id uuid.UUID) (bool, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
	WithTx(tx pgx.Tx) OTPRepository
}

// ErrFactorNotFound indicates the user has no stored value for a factor
type ErrFactorNotFound struct {
	UserID uuid.UUID
	Factor string
}

func (e ErrFactorNotFound) Error() string {
	return e.Factor + " not found for user: " + e.UserID.String()
}

// Is matches any ErrFactorNotFound when the target is zero
func (e ErrFactorNotFound) Is(target error) bool {
	t, ok := target.(ErrFactorNotFound)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil && t.Factor == "" {
		return true
	}
	return e.UserID == t.UserID && e.Factor == t.Factor
}
