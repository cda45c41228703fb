package httpapi

import (
	"invoicing-edge/internal/audit"

	"github.com/gin-gonic/gin"
)

// ClientIP attaches the resolved client IP to the request context for audit records.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
