package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-attendance-api/pkg/response"
)

// DebugErrors allows error envelopes to include the wrapped cause.
// It is only mounted outside production.
func DebugErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(response.DebugErrorsKey, true)
		c.Next()
	}
}
