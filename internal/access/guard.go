package access

import (
	"net/http"

	"invoicing-edge/pkg/logger"

	"github.com/gin-gonic/gin"
)

const decisionKey = "access_decision"

// GuardOptions wires the collaborators of the server-evaluated guard.
type GuardOptions struct {
	// Credentials defaults to the access_token cookie.
	Credentials CredentialReader

	// Sessions, when set, replaces advisory claim inspection with a resolved
	// profile. Resolver errors fail closed.
	Sessions SessionResolver

	// Roles guards the admin area after the engine allowed a navigation.
	Roles *RoleGate

	Metrics *Metrics
}

// Guard evaluates every navigation before the page is served.
// Redirects use 302; verification-link rewrites use 308.
func Guard(e *Engine, opts GuardOptions) gin.HandlerFunc {
	creds := opts.Credentials
	if creds == nil {
		creds = CookieReader{Name: DefaultCookieName}
	}

	return func(c *gin.Context) {
		id := Identity{}
		if raw, ok := creds.ReadCredential(c.Request); ok {
			if opts.Sessions != nil {
				s, err := opts.Sessions.ResolveSession(c.Request.Context(), raw)
				if err != nil {
					logger.FromGin(c).Warn("session resolve failed", "err", err)
				}
				id = IdentityFromSession(s, err)
			} else {
				id = IdentityFromCredential(raw)
			}
		}

		nav := Navigation{Path: CleanPath(c.Request.URL.Path), Query: c.Request.URL.Query(), Identity: id}
		d := e.Evaluate(nav, opts.Roles)
		opts.Metrics.Observe(SurfaceServer, d)
		c.Set(decisionKey, d)

		logger.FromGin(c).Debug("access decision",
			"path", nav.Path,
			"action", d.Action,
			"reason", d.Reason,
			"state", d.State,
		)

		switch d.Action {
		case ActionAllow:
			// Downstream handlers and the frontend proxy see the path that was judged.
			if c.Request.URL.Path != nav.Path {
				c.Request.URL.Path = nav.Path
				c.Request.URL.RawPath = ""
			}
			c.Next()
		case ActionRewrite:
			c.Redirect(http.StatusPermanentRedirect, d.Location)
			c.Abort()
		default:
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
		}
	}
}

// DecisionFromGin returns the decision the guard stored for this request.
func DecisionFromGin(c *gin.Context) (Decision, bool) {
	v, ok := c.Get(decisionKey)
	if !ok {
		return Decision{}, false
	}
	d, ok := v.(Decision)
	return d, ok
}
