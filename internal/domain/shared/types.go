package shared

// TransferType defines the supported money-movement variants
type TransferType string

const (
	TransferTypeWire     TransferType = "WIRE"
	TransferTypeDomestic TransferType = "DOMESTIC"
	TransferTypeInternal TransferType = "INTERNAL"
	TransferTypeAccount  TransferType = "ACCOUNT"
)

// TransferTypes lists every transfer type in a stable order
var TransferTypes = []TransferType{
	TransferTypeWire,
	TransferTypeDomestic,
	TransferTypeInternal,
	TransferTypeAccount,
}

// IsValid reports whether t is a known transfer type
func (t TransferType) IsValid() bool {
	switch t {
	case TransferTypeWire, TransferTypeDomestic, TransferTypeInternal, TransferTypeAccount:
		return true
	}
	return false
}

// IsExternal reports whether funds leave the bank (no destination account in this ledger)
func (t TransferType) IsExternal() bool {
	return t == TransferTypeWire || t == TransferTypeDomestic
}

// TransferStatus defines transfer lifecycle states
type TransferStatus string

const (
	TransferStatusPending    TransferStatus = "PENDING"
	TransferStatusProcessing TransferStatus = "PROCESSING"
	TransferStatusCompleted  TransferStatus = "COMPLETED"
	TransferStatusFailed     TransferStatus = "FAILED"
	TransferStatusReversed   TransferStatus = "REVERSED"
)

// AwaitingGates reports whether the transfer can still accept gate submissions
func (s TransferStatus) AwaitingGates() bool {
	return s == TransferStatusPending || s == TransferStatusProcessing
}

// IsTerminal reports whether no further self-service transition is possible
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusFailed || s == TransferStatusReversed
}

// Gate names one verification factor of a transfer's chain
type Gate string

const (
	GatePIN Gate = "PIN"
	GateIMF Gate = "IMF"
	GateTax Gate = "TAX"
	GateCOT Gate = "COT"
	GateOTP Gate = "OTP"
)

// IsValid reports whether g is a known gate
func (g Gate) IsValid() bool {
	switch g {
	case GatePIN, GateIMF, GateTax, GateCOT, GateOTP:
		return true
	}
	return false
}

// IsKnowledgeCode reports whether g is checked against an operator-issued code
func (g Gate) IsKnowledgeCode() bool {
	return g == GateIMF || g == GateTax || g == GateCOT
}

// FailureReason defines transfer failure categories
type FailureReason string

const (
	FailureReasonInsufficientFunds FailureReason = "INSUFFICIENT_FUNDS"
	FailureReasonAccountInactive   FailureReason = "ACCOUNT_INACTIVE"
	FailureReasonCurrencyMismatch  FailureReason = "CURRENCY_MISMATCH"
	FailureReasonCancelled         FailureReason = "CANCELLED_BY_OPERATOR"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
