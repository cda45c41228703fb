package auth

import (
	"context"
	"errors"
	"time"
)

type ctxKey int

const (
	ctxIdentity ctxKey = iota
	ctxTokenID
)

var ErrNoIdentity = errors.New("identity not in context")

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, error) {
	if id, ok := ctx.Value(ctxIdentity).(Identity); ok && id.UserID != "" {
		return id, nil
	}
	return Identity{}, ErrNoIdentity
}

func UserID(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", errors.New("user_id not in context")
	}
	return id.UserID, nil
}

func Role(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil || id.Role == "" {
		return "", errors.New("role not in context")
	}
	return id.Role, nil
}

type tokenRef struct {
	id        string
	expiresAt time.Time
}

// withToken records the verified access token's jti and expiry for logout.
func withToken(ctx context.Context, c Claims) context.Context {
	ref := tokenRef{id: c.ID}
	if c.ExpiresAt != nil {
		ref.expiresAt = c.ExpiresAt.Time
	}
	return context.WithValue(ctx, ctxTokenID, ref)
}

// TokenID returns the jti and expiry of the access token that authenticated the request.
func TokenID(ctx context.Context) (string, time.Time, bool) {
	ref, ok := ctx.Value(ctxTokenID).(tokenRef)
	if !ok || ref.id == "" {
		return "", time.Time{}, false
	}
	return ref.id, ref.expiresAt, true
}
