package verification

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

func TestNewOneTimeCode(t *testing.T) {
	code := NewOneTimeCode(uuid.New(), DefaultOTPPurpose, "123456", 10*time.Minute)

	assert.False(t, code.Used)
	assert.Equal(t, 0, code.Attempts)
	assert.False(t, code.IsExpired(time.Now()))
	assert.True(t, code.IsExpired(code.ExpiresAt))
	assert.True(t, code.IsExpired(time.Now().Add(11*time.Minute)))
}

func TestNewKnowledgeCode(t *testing.T) {
	userID := uuid.New()
	code := NewKnowledgeCode(userID, shared.GateIMF, "IMF-4411")

	assert.True(t, code.Active)
	assert.Equal(t, userID, code.UserID)
	assert.Equal(t, shared.GateIMF, code.Type)
}

func TestErrFactorNotFound_Is(t *testing.T) {
	userID := uuid.New()
	err := ErrFactorNotFound{UserID: userID, Factor: "pin"}

	assert.True(t, errors.Is(err, ErrFactorNotFound{}))
	assert.True(t, errors.Is(err, ErrFactorNotFound{UserID: userID, Factor: "pin"}))
	assert.False(t, errors.Is(err, ErrFactorNotFound{UserID: userID, Factor: "otp"}))
}
