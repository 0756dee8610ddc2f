package components

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

func TestGateResolver_WalksChainInOrder(t *testing.T) {
	resolver := NewGateResolver(testChains())
	tr := transfer.New(shared.TransferTypeWire, uuid.New(), uuid.New(), 100000, "USD")

	for _, want := range []shared.Gate{shared.GatePIN, shared.GateIMF, shared.GateTax, shared.GateCOT, shared.GateOTP} {
		assert.False(t, resolver.IsComplete(tr))
		next, pending := resolver.NextGate(tr)
		assert.True(t, pending)
		assert.Equal(t, want, next)
		tr.StampGate(next, time.Now())
	}

	next, pending := resolver.NextGate(tr)
	assert.False(t, pending)
	assert.Empty(t, next)
	assert.True(t, resolver.IsComplete(tr))
}

func TestGateResolver_Requires(t *testing.T) {
	resolver := NewGateResolver(testChains())

	assert.True(t, resolver.Requires(shared.TransferTypeWire, shared.GateCOT))
	assert.False(t, resolver.Requires(shared.TransferTypeInternal, shared.GateIMF))
	assert.True(t, resolver.Requires(shared.TransferTypeInternal, shared.GateOTP))
}

func TestGateResolver_RequiredGatesIsACopy(t *testing.T) {
	resolver := NewGateResolver(testChains())

	gates := resolver.RequiredGates(shared.TransferTypeDomestic)
	gates[0] = shared.GateCOT

	assert.Equal(t, []shared.Gate{shared.GatePIN, shared.GateOTP}, resolver.RequiredGates(shared.TransferTypeDomestic))
}

func TestGateResolver_EmptyChainIsNeverComplete(t *testing.T) {
	resolver := NewGateResolver(config.GatesConfig{})
	tr := transfer.New(shared.TransferTypeAccount, uuid.New(), uuid.New(), 100, "USD")

	_, pending := resolver.NextGate(tr)
	assert.False(t, pending)
	assert.False(t, resolver.IsComplete(tr))
}
