package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// AdminHandler exposes operator actions on any user's transfer
type AdminHandler struct {
	transferService service.TransferService
	logger          *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, transferService service.TransferService) *AdminHandler {
	return &AdminHandler{
		transferService: transferService,
		logger:          logger,
	}
}

// Fail aborts a transfer that is still awaiting gates
func (h *AdminHandler) Fail(c *gin.Context) {
	transferID, ok := parseTransferID(c, h.logger)
	if !ok {
		return
	}

	reason, ok := h.bindReason(c)
	if !ok {
		return
	}

	t, err := h.transferService.Fail(c.Request.Context(), transferID, reason)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to fail transfer", err)
		return
	}

	RespondOK(c, mapTransferToResponse(t))
}

// Reverse unwinds a completed transfer and restores the source balance
func (h *AdminHandler) Reverse(c *gin.Context) {
	transferID, ok := parseTransferID(c, h.logger)
	if !ok {
		return
	}

	reason, ok := h.bindReason(c)
	if !ok {
		return
	}

	t, err := h.transferService.Reverse(c.Request.Context(), transferID, reason)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to reverse transfer", err)
		return
	}

	RespondOK(c, mapTransferToResponse(t))
}

// bindReason reads the optional reason body; an empty body keeps the engine default
func (h *AdminHandler) bindReason(c *gin.Context) (string, bool) {
	var req ReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Warn("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return "", false
		}
	}
	return req.Reason, true
}
