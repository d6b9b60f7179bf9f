package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docmgmt-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if userID := UserIDFromContext(c); userID != 0 {
			fields["user_id"] = userID
			fields["role"] = string(UserRoleFromContext(c))
		}
		if documentID, ok := c.Get("documentId"); ok {
			fields["document_id"] = documentID
		}

		telemetry.Info("request.complete", fields)
	}
}
