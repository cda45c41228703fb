package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"invoicing-edge/internal/access"
	"invoicing-edge/internal/audit"
	"invoicing-edge/internal/auth"
	"invoicing-edge/internal/users"
	"invoicing-edge/internal/verification"
	"invoicing-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth         *auth.Manager
	Users        *users.Service
	Verification *verification.Service
	Revoked      auth.Revocations
	Audit        *audit.Service

	Engine  *access.Engine
	Roles   *access.RoleGate
	Metrics *access.Metrics

	Cookie CookieOptions
	Clock  func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// --- Auth ---

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"max=200"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	User   users.User     `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// Register creates an unverified account, mails a verification link and
// signs the user in. The new session lands on the verification holding page.
func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	u, err := h.Users.Register(ctx, users.RegisterRequest{Email: req.Email, Password: req.Password, Name: req.Name})
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	case errors.Is(err, users.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid email or password"})
		return
	case err != nil:
		logger.FromGin(c).Error("register failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	h.Audit.Record(ctx, audit.EventRegistered, u.ID, u.Email, "")

	if _, err := h.Verification.Issue(ctx, u.ID); err != nil {
		// the account exists; the user can ask for another link
		logger.FromGin(c).Warn("verification issue failed", "user_id", u.ID, "err", err)
	}

	h.startSession(c, http.StatusCreated, u)
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	u, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		h.Audit.Record(ctx, audit.EventLoginFailed, "", req.Email, "")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("login failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.Audit.Record(ctx, audit.EventLogin, u.ID, u.Email, "")
	h.startSession(c, http.StatusOK, u)
}

// Refresh re-reads the profile so the new access token reflects the current
// verification state and role. Refresh tokens are single-use: the presented
// one is revoked before the new pair is issued.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, h.now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	ctx := c.Request.Context()
	if h.Revoked != nil {
		gone, err := h.Revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			logger.FromGin(c).Error("refresh revocation lookup failed", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session check unavailable"})
			return
		}
		if gone {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
	}

	u, err := h.Users.Profile(ctx, claims.UserID)
	if errors.Is(err, users.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("refresh profile lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}

	if err := h.revoke(ctx, claims); err != nil {
		logger.FromGin(c).Error("refresh rotation failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "refresh failed"})
		return
	}
	h.startSession(c, http.StatusOK, u)
}

// Logout revokes the presented access token and, when the body carries it,
// the session's refresh token. Both stay on the denylist until they expire.
func (h Handlers) Logout(c *gin.Context) {
	var req logoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}

	ctx := c.Request.Context()
	uid, _ := auth.UserID(ctx)
	if h.Revoked != nil {
		if jti, exp, ok := auth.TokenID(ctx); ok {
			if err := h.Revoked.Revoke(ctx, jti, exp); err != nil {
				logger.FromGin(c).Error("revoke failed", "err", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "logout failed"})
				return
			}
		}
		if req.RefreshToken != "" {
			claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, h.now())
			switch {
			case err != nil:
				// expired or forged; nothing to revoke
			case claims.UserID != uid:
				logger.FromGin(c).Warn("logout: refresh token belongs to another user", "user_id", uid)
			default:
				if err := h.revoke(ctx, claims); err != nil {
					logger.FromGin(c).Error("refresh revoke failed", "err", err)
					c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "logout failed"})
					return
				}
			}
		}
	}
	h.Audit.Record(ctx, audit.EventLogout, uid, "", "")
	h.Cookie.clear(c)
	c.Status(http.StatusNoContent)
}

func (h Handlers) revoke(ctx context.Context, claims auth.Claims) error {
	if h.Revoked == nil {
		return nil
	}
	return h.Revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Me returns the stored profile, not the token claims.
func (h Handlers) Me(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	u, err := h.Users.Profile(c.Request.Context(), uid)
	if errors.Is(err, users.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("profile lookup failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h Handlers) startSession(c *gin.Context, status int, u users.User) {
	pair, err := h.Auth.IssuePair(h.now(), u.AuthIdentity())
	if err != nil {
		logger.FromGin(c).Error("token issuance failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	h.Cookie.set(c, pair.AccessToken, pair.AccessExpiresAt)
	c.JSON(status, sessionResponse{User: u, Tokens: pair})
}
