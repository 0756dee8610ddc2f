package components

import (
	"slices"

	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// GateResolverImpl walks the configured gate chain of each transfer type
type GateResolverImpl struct {
	chains config.GatesConfig
}

// NewGateResolver creates a resolver over validated gate chains
func NewGateResolver(chains config.GatesConfig) service.GateResolver {
	return &GateResolverImpl{chains: chains}
}

// RequiredGates returns a copy of the ordered chain for the type
func (r *GateResolverImpl) RequiredGates(transferType shared.TransferType) []shared.Gate {
	return slices.Clone(r.chains[transferType])
}

// NextGate returns the first gate in the chain without a verification timestamp
func (r *GateResolverImpl) NextGate(t *transfer.Transfer) (shared.Gate, bool) {
	for _, gate := range r.chains[t.Type] {
		if !t.Gates.IsSatisfied(gate) {
			return gate, true
		}
	}
	return "", false
}

// IsComplete reports whether every required gate is satisfied. An unknown
// type has no chain and is never complete.
func (r *GateResolverImpl) IsComplete(t *transfer.Transfer) bool {
	if len(r.chains[t.Type]) == 0 {
		return false
	}
	_, pending := r.NextGate(t)
	return !pending
}

func (r *GateResolverImpl) Requires(transferType shared.TransferType, gate shared.Gate) bool {
	return slices.Contains(r.chains[transferType], gate)
}
