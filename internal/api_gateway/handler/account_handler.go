package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/api_gateway/middleware"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// GetByID retrieves one of the caller's accounts, returning 404 for missing or foreign accounts
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, ok := parseAccountID(c, h.logger)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccount(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to get account", err)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// ListLedger returns the postings that touched one of the caller's accounts
func (h *AccountHandler) ListLedger(c *gin.Context) {
	id, ok := parseAccountID(c, h.logger)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.accountService.ListLedger(
		c.Request.Context(),
		middleware.GetUserID(c),
		id,
		pagination.PerPage,
		pagination.Offset(),
	)
	if err != nil {
		respondWithDomainError(c, h.logger, "Failed to list ledger entries", err)
		return
	}

	responses := make([]LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapLedgerEntryToResponse(entry))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

func parseAccountID(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Warn("Invalid account ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid account ID")
		return uuid.Nil, false
	}
	return id, true
}
