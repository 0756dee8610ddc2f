package components

import (
	"github.com/shopspring/decimal"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// FeeCalculatorImpl applies max(minimum, floor(amount * rate)) per transfer type
type FeeCalculatorImpl struct {
	policies config.FeesConfig
}

// NewFeeCalculator creates a calculator over the configured fee policies
func NewFeeCalculator(policies config.FeesConfig) service.FeeCalculator {
	return &FeeCalculatorImpl{policies: policies}
}

// Fee returns the fee in minor units. Types without a policy are free.
func (c *FeeCalculatorImpl) Fee(transferType shared.TransferType, amount int64) int64 {
	policy, ok := c.policies[transferType]
	if !ok {
		return 0
	}

	fee := decimal.NewFromInt(amount).Mul(policy.Rate).Floor().IntPart()
	if fee < policy.Minimum {
		fee = policy.Minimum
	}
	return fee
}
