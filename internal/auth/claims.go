package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
//
// emailVerified is camelCase because both frontends read it straight from
// the payload to steer redirects. That read is advisory; Verify is the
// authority.
type Claims struct {
	jwt.RegisteredClaims

	UserID        string    `json:"user_id"`
	Email         string    `json:"email,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	Role          string    `json:"role,omitempty"`
	TokenType     TokenType `json:"token_type"`
}

// Identity is the subject a token pair is issued for.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
	Role          string
}

func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, EmailVerified: c.EmailVerified, Role: c.Role}
}
