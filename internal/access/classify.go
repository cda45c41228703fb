package access

import (
	"net/url"
	"strings"
)

// Class is the access bucket of a requested path.
type Class string

const (
	ClassPublic    Class = "public"
	ClassProtected Class = "protected"
)

const (
	queryToken      = "token"
	queryRedirect   = "redirect"
	queryFromVerify = "fromVerify"
)

// Classification is the classifier output for one navigation.
type Classification struct {
	Class Class `json:"class"`

	// AuthOnly is computed independently of Class; a path can be both public and auth-only.
	AuthOnly bool `json:"auth_only"`

	// Verification marks the holding page and the verification target pages.
	Verification bool `json:"verification"`

	// Asset marks static files and public API passthroughs.
	Asset bool `json:"asset"`

	// Rewrite, when set, is the canonical URL the request must be sent to
	// before any auth evaluation happens.
	Rewrite string `json:"rewrite,omitempty"`
}

// Classify buckets a path. Rules are ordered; the first one that applies wins.
func (t RouteTable) Classify(path string, query url.Values) Classification {
	if path == "" {
		path = "/"
	}
	out := Classification{AuthOnly: t.IsAuthOnly(path)}
	token := query.Get(queryToken)

	// Mis-delivered links of the shape /dashboard/verify-email/<token>.
	if t.LegacyVerification != "" && matchPrefix(path, t.LegacyVerification) {
		rest := strings.Trim(strings.TrimPrefix(path, strings.TrimSuffix(t.LegacyVerification, "/")), "/")
		if seg, _, _ := strings.Cut(rest, "/"); seg != "" {
			token = seg
		}
		out.Class = ClassPublic
		out.Verification = true
		out.Rewrite = t.verificationQueryURL(token)
		return out
	}

	if token != "" && (path == t.VerificationHolding || path == t.Verification) {
		out.Class = ClassPublic
		out.Verification = true
		out.Rewrite = t.verificationPathURL(token)
		return out
	}

	if t.IsVerificationRoute(path) {
		out.Class = ClassPublic
		out.Verification = true
		return out
	}

	if t.IsAsset(path) {
		out.Class = ClassPublic
		out.Asset = true
		return out
	}

	if token != "" && !t.IsPasswordRoute(path) {
		out.Class = ClassPublic
		out.Rewrite = t.verificationPathURL(token)
		return out
	}

	if t.IsPublic(path) {
		out.Class = ClassPublic
		return out
	}
	out.Class = ClassProtected
	return out
}

// verificationPathURL builds /verify-email/<token>.
func (t RouteTable) verificationPathURL(token string) string {
	return strings.TrimSuffix(t.Verification, "/") + "/" + url.PathEscape(token)
}

// verificationQueryURL builds /verify-email?token=<token>, or the bare page
// when there is no token so it can render its missing-token state.
func (t RouteTable) verificationQueryURL(token string) string {
	if token == "" {
		return t.Verification
	}
	return t.Verification + "?" + url.Values{queryToken: {token}}.Encode()
}

// LoginURL is the login page with the original path attached for the return trip.
func (t RouteTable) LoginURL(path string) string {
	return t.Login + "?" + url.Values{queryRedirect: {path}}.Encode()
}

// VerificationLink is the link mailed to the user.
func (t RouteTable) VerificationLink(token string) string {
	return t.verificationPathURL(token)
}

// PostVerificationURL is the dashboard with the marker that lets a stale
// credential through the unverified funnel once.
func (t RouteTable) PostVerificationURL() string {
	return t.Dashboard + "?" + url.Values{queryFromVerify: {"1"}}.Encode()
}
