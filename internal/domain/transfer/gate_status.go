package transfer

import (
	"time"

	"github.com/transfer-verification-engine/internal/domain/shared"
)

// GateStatus holds the verification timestamp of every gate a transfer may require
type GateStatus struct {
	PIN *time.Time `json:"pin_verified_at,omitempty"`
	IMF *time.Time `json:"imf_verified_at,omitempty"`
	Tax *time.Time `json:"tax_verified_at,omitempty"`
	COT *time.Time `json:"cot_verified_at,omitempty"`
	OTP *time.Time `json:"otp_verified_at,omitempty"`
}

func (g *GateStatus) slot(gate shared.Gate) **time.Time {
	switch gate {
	case shared.GatePIN:
		return &g.PIN
	case shared.GateIMF:
		return &g.IMF
	case shared.GateTax:
		return &g.Tax
	case shared.GateCOT:
		return &g.COT
	case shared.GateOTP:
		return &g.OTP
	}
	return nil
}

// VerifiedAt returns when the gate was satisfied, nil when it has not been
func (g GateStatus) VerifiedAt(gate shared.Gate) *time.Time {
	s := g.slot(gate)
	if s == nil {
		return nil
	}
	return *s
}

// IsSatisfied reports whether the gate has a verification timestamp
func (g GateStatus) IsSatisfied(gate shared.Gate) bool {
	return g.VerifiedAt(gate) != nil
}

// Stamp sets the gate timestamp once; later stamps keep the first value
func (g *GateStatus) Stamp(gate shared.Gate, at time.Time) {
	s := g.slot(gate)
	if s == nil || *s != nil {
		return
	}
	t := at
	*s = &t
}
