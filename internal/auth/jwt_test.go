package auth

import (
	"testing"
	"time"

	"invoicing-edge/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		JWTIssuer:       "issuer",
		JWTAudience:     "aud",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager(t)

	now := time.Unix(1700000000, 0).UTC()
	pair, err := m.IssuePair(now, Identity{UserID: "user-1", Email: "a@example.com", EmailVerified: true, Role: "USER"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, now.Add(15*time.Minute), pair.AccessExpiresAt)

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-1", Email: "a@example.com", EmailVerified: true, Role: "USER"}, claims.Identity())
	assert.NotEmpty(t, claims.ID)
}

func TestRefreshTokenCarriesSubjectOnly(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()
	pair, err := m.IssuePair(now, Identity{UserID: "u", Email: "e", EmailVerified: true, Role: "ADMIN"})
	require.NoError(t, err)

	claims, err := m.Verify(pair.RefreshToken, TokenTypeRefresh, now)
	require.NoError(t, err)
	assert.Equal(t, "u", claims.UserID)
	assert.Empty(t, claims.Role)
	assert.False(t, claims.EmailVerified)
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, err := m.IssuePair(time.Now(), Identity{UserID: "u", Role: "USER"})
	require.NoError(t, err)

	_, err = m.Verify(p.RefreshToken, TokenTypeAccess, time.Now())
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()
	p, err := m.IssuePair(now, Identity{UserID: "u", Role: "USER"})
	require.NoError(t, err)

	_, err = m.Verify(p.AccessToken, TokenTypeAccess, now.Add(time.Hour))
	assert.Error(t, err)

	other, _ := NewManager(config.AuthConfig{JWTSecret: "other", JWTIssuer: "issuer", JWTAudience: "aud", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	_, err = other.Verify(p.AccessToken, TokenTypeAccess, now)
	assert.Error(t, err)
}

func TestIssuePairRequiresSubject(t *testing.T) {
	m := newTestManager(t)
	_, err := m.IssuePair(time.Now(), Identity{Role: "USER"})
	assert.ErrorIs(t, err, ErrMissingSubject)
}
