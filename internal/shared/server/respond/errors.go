package respond

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"docharvest-backend/internal/shared/apperr"
	"docharvest-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

var exposeInternal atomic.Bool

// ExposeInternalErrors controls whether Processing failures keep their message.
func ExposeInternalErrors(expose bool) {
	exposeInternal.Store(expose)
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if clientID := c.GetString("clientId"); clientID != "" {
		fields["client_id"] = clientID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Failure maps err onto a status and writes it. Untyped errors become 500s.
func Failure(c *gin.Context, err error) {
	typed, ok := apperr.As(err)
	if !ok {
		typed = apperr.Processing("internal_error", "internal error", err)
	}

	status := StatusFor(typed)
	message := typed.Message
	if typed.Kind == apperr.KindProcessing {
		if typed.Err != nil {
			telemetry.Error("http.failure_cause", map[string]any{
				"code":       typed.Code,
				"cause":      typed.Err.Error(),
				"request_id": c.GetString("requestId"),
			})
		}
		if !exposeInternal.Load() {
			message = http.StatusText(status)
		}
	}

	var details interface{}
	if len(typed.Details) > 0 {
		details = typed.Details
	}
	Error(c, status, typed.Code, message, details)
}

// StatusFor returns the HTTP status of a typed failure.
func StatusFor(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	}
	if e.Code == apperr.CodeServiceUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
