package users

import (
	"context"
	"time"

	"invoicing-edge/internal/access"
	"invoicing-edge/internal/auth"
)

// SessionResolver turns a credential into a fresh profile for the guards.
// Unlike claim inspection it verifies the signature and re-reads the record,
// so a verification completed since the token was minted is visible.
type SessionResolver struct {
	Auth  *auth.Manager
	Users *Service
	// Revoked may be nil.
	Revoked auth.Revocations
	Now     func() time.Time
}

func (r SessionResolver) ResolveSession(ctx context.Context, credential string) (access.Session, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	claims, err := r.Auth.Verify(credential, auth.TokenTypeAccess, now())
	if err != nil {
		return access.Session{}, err
	}
	if r.Revoked != nil {
		gone, err := r.Revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return access.Session{}, err
		}
		if gone {
			return access.Session{}, ErrNotFound
		}
	}
	u, err := r.Users.Profile(ctx, claims.UserID)
	if err != nil {
		return access.Session{}, err
	}
	return access.Session{UserID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified, Role: u.Role}, nil
}

// AuthIdentity is the identity a fresh token pair is minted for.
func (u User) AuthIdentity() auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, EmailVerified: u.EmailVerified, Role: u.Role}
}
