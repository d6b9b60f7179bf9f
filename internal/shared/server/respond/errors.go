package respond

import (
	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/telemetry"
)

// ErrorBody is the error object every failing endpoint returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody under "error".
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// principal keys are set by the auth and documents layers; respond reads them
// raw to stay free of middleware imports.
var principalKeys = map[string]string{
	"userId":     "user_id",
	"userRole":   "role",
	"documentId": "document_id",
}

// Error logs the failure and aborts with an ErrorResponse. Server errors log
// at error level, client errors at warn.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"route":      c.FullPath(),
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	for key, field := range principalKeys {
		if v, ok := c.Get(key); ok {
			fields[field] = v
		}
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}
