package httpapi

import (
	"errors"
	"net/http"

	"invoicing-edge/internal/access"
	"invoicing-edge/internal/auth"
	"invoicing-edge/internal/verification"
	"invoicing-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

type verifyEmailRequest struct {
	Token string `json:"token"`
}

type verifyEmailResponse struct {
	Location string          `json:"location"`
	Tokens   *auth.TokenPair `json:"tokens,omitempty"`
}

// VerifyEmail completes verification for the token the verification page
// received. The token may come in the JSON body or the query string.
//
// A missing token is reported as an error state with 400, never as a redirect.
func (h Handlers) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}

	_, hadSession := access.Readers{access.BearerReader{}, access.CookieReader{Name: h.Cookie.Name}}.ReadCredential(c.Request)

	res, err := h.Verification.Complete(c.Request.Context(), req.Token, hadSession)
	switch {
	case errors.Is(err, verification.ErrMissingToken), errors.Is(err, verification.ErrInvalidToken):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		logger.FromGin(c).Error("verification completion failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "verification unavailable"})
		return
	}

	if res.Tokens != nil {
		h.Cookie.set(c, res.Tokens.AccessToken, res.Tokens.AccessExpiresAt)
	}
	c.JSON(http.StatusOK, verifyEmailResponse{Location: res.Location, Tokens: res.Tokens})
}

// ResendVerification issues a fresh link for the signed-in user.
func (h Handlers) ResendVerification(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	iss, err := h.Verification.Issue(c.Request.Context(), uid)
	if errors.Is(err, verification.ErrAlreadyVerified) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("verification issue failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "could not send verification email"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"expires_at": iss.ExpiresAt})
}
