package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/models"
)

// AuditWriter persists audit log entries.
type AuditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

// Audit records successful mutations on a catalogue resource. The action is
// derived from the HTTP method and the resource id from the :id route param.
func Audit(writer AuditWriter, logger *zap.Logger, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		action, ok := auditAction(c.Request.Method)
		if !ok || writer == nil || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		entry := &models.AuditLog{
			Action:    action,
			Resource:  resource,
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		if claims, ok := Claims(c); ok {
			userID := claims.UserID
			entry.UserID = &userID
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		entry.NewValues, _ = json.Marshal(map[string]interface{}{
			"path":       c.FullPath(),
			"method":     c.Request.Method,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		})

		// The response is already written; a failed audit write must not change it.
		if err := writer.Create(context.WithoutCancel(c.Request.Context()), entry); err != nil {
			logger.Warn("audit write failed", zap.String("resource", resource), zap.String("action", action), zap.Error(err))
		}
	}
}

func auditAction(method string) (string, bool) {
	switch method {
	case http.MethodPost:
		return models.AuditActionCreate, true
	case http.MethodPut, http.MethodPatch:
		return models.AuditActionUpdate, true
	case http.MethodDelete:
		return models.AuditActionDelete, true
	default:
		return "", false
	}
}
