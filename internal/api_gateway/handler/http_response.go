package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/transfer-verification-engine/internal/api_gateway/middleware"
)

// Response is the envelope every endpoint answers with. Exactly one of Data
// and Error is set.
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries a stable machine code next to the human message
type ErrorInfo struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// MetaInfo describes the page returned by list endpoints
type MetaInfo struct {
	Page       int  `json:"page,omitempty"`
	PerPage    int  `json:"per_page,omitempty"`
	TotalPages int  `json:"total_pages,omitempty"`
	TotalItems int  `json:"total_items,omitempty"`
	HasMore    bool `json:"has_more"`
}

func newPageMeta(page, perPage, totalItems int) *MetaInfo {
	meta := &MetaInfo{Page: page, PerPage: perPage, TotalItems: totalItems}
	if perPage > 0 {
		meta.TotalPages = (totalItems + perPage - 1) / perPage
	}
	meta.HasMore = page < meta.TotalPages
	return meta
}

func respond(c *gin.Context, statusCode int, response Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends an error envelope
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	respond(c, statusCode, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

// RespondWithPaginatedData sends one page of a list and mirrors the total in X-Total-Count
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	c.Header("X-Total-Count", strconv.Itoa(totalItems))
	respond(c, statusCode, Response{Data: data, Meta: newPageMeta(page, perPage, totalItems)})
}

func RespondOK(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, Response{Data: data})
}

func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, Response{Data: data})
}

// RespondAccepted is used when the effect completes out of band, such as OTP delivery
func RespondAccepted(c *gin.Context, data interface{}) {
	respond(c, http.StatusAccepted, Response{Data: data})
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondNotFound also covers resources owned by someone else
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondUnprocessable reports a well-formed request that a business rule rejected
func RespondUnprocessable(c *gin.Context, code, message string) {
	RespondWithError(c, http.StatusUnprocessableEntity, code, message)
}

// RespondTooManyRequests reports a locked verification factor. The wait is
// rounded up to whole seconds in both the Retry-After header and the body.
func RespondTooManyRequests(c *gin.Context, retryAfter time.Duration, message string) {
	info := &ErrorInfo{Code: "TOO_MANY_ATTEMPTS", Message: message}
	if retryAfter > 0 {
		info.RetryAfterSeconds = int(math.Ceil(retryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(info.RetryAfterSeconds))
	}
	respond(c, http.StatusTooManyRequests, Response{Error: info})
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
