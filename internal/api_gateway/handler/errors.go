package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

// domainError binds a sentinel to the status and code clients see
type domainError struct {
	target error
	status int
	code   string
}

var domainErrors = []domainError{
	{shared.ErrOutOfOrder, http.StatusConflict, "GATE_OUT_OF_ORDER"},
	{shared.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
	{shared.ErrVerificationIncomplete, http.StatusConflict, "VERIFICATION_INCOMPLETE"},

	{shared.ErrMismatch, http.StatusUnprocessableEntity, "VERIFICATION_FAILED"},
	{shared.ErrExpired, http.StatusUnprocessableEntity, "CODE_EXPIRED"},
	{shared.ErrAlreadyUsed, http.StatusUnprocessableEntity, "CODE_ALREADY_USED"},
	{shared.ErrCodeNotFound, http.StatusUnprocessableEntity, "CODE_NOT_FOUND"},
	{shared.ErrNotConfigured, http.StatusUnprocessableEntity, "FACTOR_NOT_CONFIGURED"},
	{shared.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
	{shared.ErrAccountInactive, http.StatusUnprocessableEntity, "ACCOUNT_INACTIVE"},

	{shared.ErrInvalidTransferType, http.StatusUnprocessableEntity, "INVALID_TRANSFER_TYPE"},
	{shared.ErrInvalidAmount, http.StatusUnprocessableEntity, "INVALID_AMOUNT"},
	{shared.ErrInvalidCurrency, http.StatusUnprocessableEntity, "INVALID_CURRENCY"},
	{shared.ErrCurrencyMismatch, http.StatusUnprocessableEntity, "CURRENCY_MISMATCH"},
	{shared.ErrInvalidDestination, http.StatusUnprocessableEntity, "INVALID_DESTINATION"},
	{shared.ErrInvalidGate, http.StatusUnprocessableEntity, "INVALID_GATE"},

	// Foreign accounts are indistinguishable from missing ones
	{shared.ErrAccountNotOwned, http.StatusNotFound, "NOT_FOUND"},
	{account.ErrAccountNotFound{}, http.StatusNotFound, "NOT_FOUND"},
	{transfer.ErrTransferNotFound{}, http.StatusNotFound, "NOT_FOUND"},
	{ledger.ErrEntryNotFound{}, http.StatusNotFound, "NOT_FOUND"},
}

// respondWithDomainError translates a service error into the API envelope.
// Anything unrecognised is logged and reported as a 500.
func respondWithDomainError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	var throttled shared.TooManyAttemptsError
	if errors.As(err, &throttled) {
		logger.Warn(msg, "error", err)
		RespondTooManyRequests(c, throttled.RetryAfter, "Too many attempts, try again later")
		return
	}
	if errors.Is(err, shared.ErrTooManyAttempts) {
		logger.Warn(msg, "error", err)
		RespondTooManyRequests(c, 0, "Too many attempts, try again later")
		return
	}

	for _, d := range domainErrors {
		if !errors.Is(err, d.target) {
			continue
		}
		logger.Warn(msg, "error", err, "code", d.code)
		if d.status == http.StatusNotFound {
			RespondNotFound(c, "")
			return
		}
		RespondWithError(c, d.status, d.code, d.target.Error())
		return
	}

	logger.Error(msg, "error", err)
	RespondInternalError(c)
}
