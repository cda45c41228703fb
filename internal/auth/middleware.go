package auth

import (
	"net/http"
	"strings"
	"time"

	"invoicing-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireAccessToken verifies an access token and injects identity into request context.
// It does not perform RBAC checks; those belong to internal/rbac.
//
// The token is taken from the Authorization header, falling back to the
// cookie the auth site sets. revoked may be nil.
func RequireAccessToken(m *Manager, cookieName string, revoked Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c, cookieName)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if revoked != nil {
			gone, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// fail closed: an unreachable denylist cannot vouch for the token
				logger.FromGin(c).Error("revocation lookup failed", "err", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session check unavailable"})
				return
			}
			if gone {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		ctx := WithIdentity(c.Request.Context(), claims.Identity())
		ctx = withToken(ctx, claims)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

func bearerToken(c *gin.Context, cookieName string) string {
	raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if strings.HasPrefix(raw, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
	}
	if cookieName == "" {
		return ""
	}
	v, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}
