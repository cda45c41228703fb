package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"invoicing-edge/internal/access"
	"invoicing-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// NewFrontendProxy forwards allowed navigations to the frontend upstream.
func NewFrontendProxy(upstream string) (http.Handler, error) {
	u, err := url.Parse(upstream)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("frontend upstream must be an absolute url, got %q", upstream)
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.From(r.Context()).Error("frontend upstream failed", "err", err)
		w.WriteHeader(http.StatusBadGateway)
	}
	return p, nil
}

// Frontend serves a navigation the guard allowed. Without an upstream it
// answers with the decision itself.
func Frontend(upstream http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if upstream != nil {
			upstream.ServeHTTP(c.Writer, c.Request)
			return
		}
		d, _ := access.DecisionFromGin(c)
		c.JSON(http.StatusOK, gin.H{"path": c.Request.URL.Path, "decision": d})
	}
}
