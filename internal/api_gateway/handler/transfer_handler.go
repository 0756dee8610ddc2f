package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/api_gateway/middleware"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// TransferHandler handles HTTP requests for the customer side of the transfer lifecycle
type TransferHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(logger *slog.Logger, transferService service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Initiate creates a pending transfer for the authenticated user
func (h *TransferHandler) Initiate(c *gin.Context) {
	var req InitiateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	sourceAccountID, err := uuid.Parse(req.SourceAccountID)
	if err != nil {
		RespondBadRequest(c, "Invalid source account ID")
		return
	}

	request := &service.InitiateRequest{
		UserID:          middleware.GetUserID(c),
		Type:            shared.TransferType(strings.ToUpper(req.Type)),
		SourceAccountID: sourceAccountID,
		Beneficiary:     req.Beneficiary.toDomain(),
		Amount:          req.Amount,
		Currency:        strings.ToUpper(req.Currency),
		Description:     req.Description,
	}
	if req.DestinationAccountID != "" {
		destination, err := uuid.Parse(req.DestinationAccountID)
		if err != nil {
			RespondBadRequest(c, "Invalid destination account ID")
			return
		}
		request.DestinationAccountID = &destination
	}

	t, err := h.transferService.Initiate(c.Request.Context(), request)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to initiate transfer", err)
		return
	}

	RespondCreated(c, mapTransferToResponse(t))
}

// List returns the caller's transfers, newest first
func (h *TransferHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	transfers, total, err := h.transferService.ListByUser(
		c.Request.Context(),
		middleware.GetUserID(c),
		pagination.PerPage,
		pagination.Offset(),
	)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to list transfers", err)
		return
	}

	responses := make([]TransferResponse, 0, len(transfers))
	for _, t := range transfers {
		responses = append(responses, mapTransferToResponse(t))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Get retrieves one of the caller's transfers by id
func (h *TransferHandler) Get(c *gin.Context) {
	t, ok := h.loadOwnedTransfer(c)
	if !ok {
		return
	}
	RespondOK(c, mapTransferToResponse(t))
}

// GetByReference retrieves one of the caller's transfers by its reference
func (h *TransferHandler) GetByReference(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))

	t, err := h.transferService.GetByReference(c.Request.Context(), reference)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to get transfer by reference", err)
		return
	}
	if !t.IsOwnedBy(middleware.GetUserID(c)) {
		RespondNotFound(c, "Transfer not found")
		return
	}

	RespondOK(c, mapTransferToResponse(t))
}

// SubmitGate verifies one factor of the transfer's gate chain. The final
// gate settles the transfer in the same call.
func (h *TransferHandler) SubmitGate(c *gin.Context) {
	transferID, ok := parseTransferID(c, h.logger)
	if !ok {
		return
	}

	gate := shared.Gate(strings.ToUpper(c.Param("gate")))
	if !gate.IsValid() {
		RespondUnprocessable(c, "INVALID_GATE", "Unknown gate "+c.Param("gate"))
		return
	}

	var req SubmitGateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.transferService.SubmitGate(c.Request.Context(), middleware.GetUserID(c), transferID, gate, req.Value)
	if err != nil {
		respondWithDomainError(c, h.logger, "Gate submission rejected", err)
		return
	}

	response := SubmitGateResponse{
		Transfer: mapTransferToResponse(result.Transfer),
		NextGate: string(result.NextGate),
		Settled:  result.Settled,
	}
	if result.LedgerEntry != nil {
		entry := mapLedgerEntryToResponse(result.LedgerEntry)
		response.LedgerEntry = &entry
	}

	RespondOK(c, response)
}

// ListEvents returns the audit trail of one of the caller's transfers
func (h *TransferHandler) ListEvents(c *gin.Context) {
	t, ok := h.loadOwnedTransfer(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	events, total, err := h.transferService.ListEvents(c.Request.Context(), t.ID, pagination.PerPage, pagination.Offset())
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to list transfer events", err)
		return
	}

	responses := make([]EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, mapEventToResponse(event))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// IssueOTP sends the caller a fresh one-time code through the notification channel.
// The code itself never appears in the response.
func (h *TransferHandler) IssueOTP(c *gin.Context) {
	var req IssueOTPRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	code, err := h.transferService.IssueOTP(c.Request.Context(), middleware.GetUserID(c), req.Purpose)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to issue one-time code", err)
		return
	}

	RespondAccepted(c, OTPIssuedResponse{
		Purpose:   code.Purpose,
		ExpiresAt: code.ExpiresAt.Format(time.RFC3339),
	})
}

// loadOwnedTransfer resolves the :id path parameter and hides transfers
// that belong to someone else behind a 404
func (h *TransferHandler) loadOwnedTransfer(c *gin.Context) (*transfer.Transfer, bool) {
	transferID, ok := parseTransferID(c, h.logger)
	if !ok {
		return nil, false
	}

	t, err := h.transferService.Get(c.Request.Context(), transferID)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to get transfer", err)
		return nil, false
	}
	if !t.IsOwnedBy(middleware.GetUserID(c)) {
		RespondNotFound(c, "Transfer not found")
		return nil, false
	}

	return t, true
}

func parseTransferID(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Warn("Invalid transfer ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transfer ID")
		return uuid.Nil, false
	}
	return id, true
}
