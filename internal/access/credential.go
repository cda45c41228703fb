package access

import (
	"context"
	"net/http"
	"strings"
)

// DefaultCookieName is where the auth site stores the access token.
const DefaultCookieName = "access_token"

// CredentialReader extracts a bearer credential from ambient request storage.
type CredentialReader interface {
	ReadCredential(r *http.Request) (string, bool)
}

// CookieReader reads the credential from a named cookie.
type CookieReader struct {
	Name string
}

func (c CookieReader) ReadCredential(r *http.Request) (string, bool) {
	name := c.Name
	if name == "" {
		name = DefaultCookieName
	}
	ck, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(ck.Value)
	return v, v != ""
}

// BearerReader reads "Authorization: Bearer <token>".
type BearerReader struct{}

func (BearerReader) ReadCredential(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(raw, "Bearer ") {
		return "", false
	}
	v := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	return v, v != ""
}

// Readers tries each reader in order; the first hit wins.
type Readers []CredentialReader

func (rs Readers) ReadCredential(r *http.Request) (string, bool) {
	for _, rd := range rs {
		if v, ok := rd.ReadCredential(r); ok {
			return v, true
		}
	}
	return "", false
}

// Storage is the browser storage snapshot a client-evaluated guard sends.
type Storage struct {
	Local   string `json:"local_storage"`
	Session string `json:"session_storage"`
}

// Credential returns local storage first, then session storage.
func (s Storage) Credential() (string, bool) {
	if v := strings.TrimSpace(s.Local); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(s.Session); v != "" {
		return v, true
	}
	return "", false
}

// Identity is what the decision engine knows about the caller.
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role,omitempty"`
}

// IdentityFromCredential derives an advisory identity from a raw credential.
// A credential whose payload cannot be decoded still counts as present, but
// never as verified.
func IdentityFromCredential(raw string) Identity {
	if strings.TrimSpace(raw) == "" {
		return Identity{}
	}
	id := Identity{Authenticated: true}
	if c, ok := InspectClaims(raw); ok {
		id.EmailVerified = c.EmailVerified
		id.Role = c.Role
	}
	return id
}

// Session is the profile resolved by the session-management collaborator.
type Session struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Role          string `json:"role"`
}

// SessionResolver resolves a credential into a fresh profile.
type SessionResolver interface {
	ResolveSession(ctx context.Context, credential string) (Session, error)
}

// IdentityFromSession fails closed: a resolver error means anonymous.
func IdentityFromSession(s Session, err error) Identity {
	if err != nil || s.UserID == "" {
		return Identity{}
	}
	return Identity{Authenticated: true, EmailVerified: s.EmailVerified, Role: s.Role}
}

// SessionState is the per-session state observed across navigations.
type SessionState string

const (
	StateAnonymous               SessionState = "anonymous"
	StateAuthenticatedUnverified SessionState = "authenticated_unverified"
	StateAuthenticatedVerified   SessionState = "authenticated_verified"
)

func (id Identity) State() SessionState {
	switch {
	case !id.Authenticated:
		return StateAnonymous
	case !id.EmailVerified:
		return StateAuthenticatedUnverified
	default:
		return StateAuthenticatedVerified
	}
}
