package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"invoicing-edge/internal/access"
	"invoicing-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

type evaluateRequest struct {
	Path           string `json:"path" binding:"required,startswith=/"`
	Query          string `json:"query"`
	LocalStorage   string `json:"local_storage"`
	SessionStorage string `json:"session_storage"`
}

// EvaluateAccess is the client-evaluated guard: the browser posts the
// navigation and the token it holds in local/session storage, and gets back
// the same decision the server guard would make for that credential.
func (h Handlers) EvaluateAccess(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "path required"})
		return
	}

	// ParseQuery keeps every pair it could decode; one bad pair must not hide a token.
	query, err := url.ParseQuery(strings.TrimPrefix(req.Query, "?"))
	if err != nil {
		logger.FromGin(c).Debug("evaluate: malformed query", "err", err)
	}

	raw, _ := access.Storage{Local: req.LocalStorage, Session: req.SessionStorage}.Credential()
	nav := access.Navigation{Path: access.CleanPath(req.Path), Query: query, Identity: access.IdentityFromCredential(raw)}
	d := h.Engine.Evaluate(nav, h.Roles)
	h.Metrics.Observe(access.SurfaceClient, d)

	c.JSON(http.StatusOK, d)
}

// AccessRoutes serves the route table both frontends build their guards from.
func (h Handlers) AccessRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.Routes())
}
