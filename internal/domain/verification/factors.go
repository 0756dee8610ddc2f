package verification

import (
	"time"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

// DefaultOTPPurpose scopes codes issued to authorize transfers
const DefaultOTPPurpose = "transfer"

// KnowledgeCode is an operator-issued secret backing the IMF, TAX or COT gate
type KnowledgeCode struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	Type      shared.Gate `json:"type"`
	Code      string      `json:"-"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewKnowledgeCode creates an active code for the user
func NewKnowledgeCode(userID uuid.UUID, gate shared.Gate, code string) *KnowledgeCode {
	return &KnowledgeCode{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      gate,
		Code:      code,
		Active:    true,
		CreatedAt: time.Now(),
	}
}

// OneTimeCode is a short-lived numeric code delivered out of band
type OneTimeCode struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Purpose    string     `json:"purpose"`
	Code       string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Used       bool       `json:"used"`
	Attempts   int        `json:"attempts"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewOneTimeCode creates an unused code valid for ttl
func NewOneTimeCode(userID uuid.UUID, purpose, code string, ttl time.Duration) *OneTimeCode {
	now := time.Now()
	return &OneTimeCode{
		ID:        uuid.New(),
		UserID:    userID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// IsExpired reports whether the code can no longer be redeemed at now
func (c *OneTimeCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
