package access

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are decoded, UNVERIFIED token payload fields.
//
// SECURITY: the signature is never checked here. Claims only steer UX
// redirects; the API (auth.Manager.Verify) remains the sole enforcement point.
// Never use them to authorize access to data.
type Claims struct {
	Subject       string `json:"sub,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
	Role          string `json:"role,omitempty"`
}

var inspector = jwt.NewParser()

// InspectClaims decodes the payload segment of a three-part token.
// Any malformed input yields (Claims{}, false); it never panics.
func InspectClaims(raw string) (Claims, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, false
	}

	mc := jwt.MapClaims{}
	_, _, err := inspector.ParseUnverified(raw, mc)
	// An unknown "alg" is reported after the payload was decoded.
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return Claims{}, false
	}
	if len(mc) == 0 {
		return Claims{}, false
	}

	c := Claims{
		Subject: stringClaim(mc, "sub"),
		Email:   stringClaim(mc, "email"),
		Role:    stringClaim(mc, "role"),
	}
	if c.Subject == "" {
		c.Subject = stringClaim(mc, "user_id")
	}
	if v, ok := mc["emailVerified"]; ok {
		c.EmailVerified = v == true
	} else {
		c.EmailVerified = mc["email_verified"] == true
	}
	return c, true
}

func stringClaim(mc jwt.MapClaims, key string) string {
	if s, ok := mc[key].(string); ok {
		return s
	}
	return ""
}
