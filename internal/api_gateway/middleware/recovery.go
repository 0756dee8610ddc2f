package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/platform/metrics"
)

// Recovery converts a handler panic into the standard 500 envelope. Panics
// raised after the response was committed are only logged and counted.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPPanicsRecovered.WithLabelValues(route).Inc()

			attrs := []any{
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()),
				"route", route,
				"method", c.Request.Method,
				"correlation_id", GetCorrelationID(c),
			}
			if userID := GetUserID(c); userID != uuid.Nil {
				attrs = append(attrs, "user_id", userID.String())
			}
			logger.Error("Handler panicked", attrs...)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
		}()

		c.Next()
	}
}
