package access

import (
	"net/url"
	"path"
	"strings"
)

// Navigation is the engine input: one requested URL plus what is known about the caller.
type Navigation struct {
	Path     string
	Query    url.Values
	Identity Identity
}

// NavigationFromURL splits a raw request URI into a Navigation.
// An unparsable URI is treated as the root path.
func NavigationFromURL(rawURL string, id Identity) Navigation {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Navigation{Path: "/", Query: url.Values{}, Identity: id}
	}
	return Navigation{Path: CleanPath(u.Path), Query: u.Query(), Identity: id}
}

// CleanPath returns the canonical form of a decoded request path: rooted,
// dot segments resolved, duplicate slashes collapsed. A trailing slash is kept.
// Classification only ever sees cleaned paths, so "/verify-email/../settings"
// is judged as "/settings".
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	out := path.Clean(p)
	if out != "/" && strings.HasSuffix(p, "/") {
		out += "/"
	}
	return out
}

// FromVerify reports the marker set right after a completed verification.
func (n Navigation) FromVerify() bool {
	return n.Query.Get(queryFromVerify) == "1"
}

// Engine evaluates the route-access policy.
//
// Priority:
//  1. Rewrites of verification links (before any auth check)
//  2. Verification routes and assets
//  3. Anonymous callers: public allowed, protected sent to login
//  4. Unverified callers sent to the holding page
//  5. Authenticated callers kept off auth-only pages
//  6. Allow
//
// Decide is pure: no I/O, no state, safe to run on every request.
type Engine struct {
	routes RouteTable
}

func NewEngine(routes RouteTable) *Engine {
	return &Engine{routes: routes}
}

func (e *Engine) Routes() RouteTable { return e.routes }

func (e *Engine) Decide(n Navigation) Decision {
	n.Path = CleanPath(n.Path)
	state := n.Identity.State()
	cl := e.routes.Classify(n.Path, n.Query)

	// 1) Rewrites
	if cl.Rewrite != "" {
		return Decision{Action: ActionRewrite, Location: cl.Rewrite, Reason: ReasonVerificationLink, State: state}
	}

	// 2) Never block verification flows or non-navigation traffic
	if cl.Verification {
		return allow(ReasonVerificationRoute, state)
	}
	if cl.Asset {
		return allow(ReasonAsset, state)
	}

	// 3) Anonymous
	if !n.Identity.Authenticated {
		if cl.Class == ClassPublic {
			return allow(ReasonPublic, state)
		}
		return redirect(e.routes.LoginURL(n.Path), ReasonLoginRequired, state)
	}

	// 4) Unverified
	if !n.Identity.EmailVerified && !n.FromVerify() {
		return redirect(e.routes.VerificationHolding, ReasonEmailUnverified, state)
	}

	// 5) Auth-only pages
	if cl.AuthOnly {
		return redirect(e.routes.VerificationHolding, ReasonAuthOnly, state)
	}

	if cl.Class == ClassPublic {
		return allow(ReasonPublic, state)
	}
	return allow(ReasonAuthenticated, state)
}

// Evaluate is Decide followed by the role gate, when one is configured.
func (e *Engine) Evaluate(n Navigation, roles *RoleGate) Decision {
	n.Path = CleanPath(n.Path)
	d := e.Decide(n)
	if roles != nil {
		d = roles.Check(n, d)
	}
	return d
}

// MaxHops bounds Resolve. Normalizing a legacy verification link takes two hops.
const MaxHops = 3

// Resolve follows the decision chain the way a browser would and returns
// every decision made, ending with the first allow. ok is false when the
// chain did not settle within MaxHops. A non-nil roles gate is applied at
// every hop, same as Evaluate.
func (e *Engine) Resolve(n Navigation, roles *RoleGate) (chain []Decision, ok bool) {
	for i := 0; i <= MaxHops; i++ {
		d := e.Evaluate(n, roles)
		chain = append(chain, d)
		if d.Action == ActionAllow {
			return chain, true
		}
		n = NavigationFromURL(d.Location, n.Identity)
	}
	return chain, false
}

// RoleGate guards the admin area. It runs after the engine allowed a
// navigation and is deliberately kept out of Decide.
type RoleGate struct {
	Routes  RouteTable
	Allowed []string
}

// Check returns a redirect to the dashboard when an allowed navigation
// targets the admin area without an admin role.
func (g RoleGate) Check(n Navigation, d Decision) Decision {
	if d.Action != ActionAllow || !g.Routes.IsAdmin(n.Path) {
		return d
	}
	for _, r := range g.Allowed {
		if strings.EqualFold(r, n.Identity.Role) {
			return d
		}
	}
	return redirect(g.Routes.Dashboard, ReasonAdminRequired, d.State)
}
