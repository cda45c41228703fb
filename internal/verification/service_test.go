package verification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"invoicing-edge/internal/access"
	"invoicing-edge/internal/audit"
	"invoicing-edge/internal/auth"
	"invoicing-edge/internal/config"
	"invoicing-edge/internal/users"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct{ links []string }

func (r *recordingSender) SendVerification(_ context.Context, _ users.User, link string) error {
	r.links = append(r.links, link)
	return nil
}

type failingIssuer struct{}

func (failingIssuer) IssuePair(time.Time, auth.Identity) (auth.TokenPair, error) {
	return auth.TokenPair{}, errors.New("signer unavailable")
}

type failingAccounts struct{ Accounts }

func (failingAccounts) MarkEmailVerified(context.Context, string) (users.User, error) {
	return users.User{}, errors.New("db down")
}

type fixture struct {
	svc     *Service
	users   *users.Service
	sender  *recordingSender
	audit   *audit.MemoryRepo
	metrics *Metrics
	user    users.User
}

func newFixture(t *testing.T, mutate func(*Options)) fixture {
	t.Helper()
	userSvc := users.NewService(users.NewMemoryRepo())
	u, err := userSvc.Register(context.Background(), users.RegisterRequest{Email: "a@example.com", Password: "long-enough"})
	require.NoError(t, err)

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "s", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	require.NoError(t, err)

	sender := &recordingSender{}
	auditRepo := audit.NewMemoryRepo()
	metrics := NewMetrics(prometheus.NewRegistry())
	opts := Options{
		Store:    NewMemoryStore(),
		Accounts: userSvc,
		Issuer:   m,
		Routes:   access.DefaultRouteTable(),
		TTL:      time.Hour,
		Sender:   sender,
		Audit:    audit.NewService(auditRepo),
		Metrics:  metrics,
	}
	if mutate != nil {
		mutate(&opts)
	}
	return fixture{svc: NewService(opts), users: userSvc, sender: sender, audit: auditRepo, metrics: metrics, user: u}
}

func TestIssue_SendsPathLink(t *testing.T) {
	f := newFixture(t, nil)

	iss, err := f.svc.Issue(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(iss.Link, "/verify-email/"))
	assert.Equal(t, []string{iss.Link}, f.sender.links)
	assert.Len(t, f.audit.OfType(audit.EventVerificationIssued), 1)
}

func TestComplete_MissingToken(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Complete(context.Background(), "  ", false)
	assert.ErrorIs(t, err, ErrMissingToken)
	assert.Equal(t, "missing verification token", err.Error())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.completions.WithLabelValues(OutcomeMissingToken)))
}

func TestComplete_InvalidToken(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Complete(context.Background(), "nope", true)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestComplete_MarksVerifiedAndMintsFreshCredential(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	iss, err := f.svc.Issue(ctx, f.user.ID)
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, iss.Token, true)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard?fromVerify=1", res.Location)
	require.NotNil(t, res.Tokens)

	claims, ok := access.InspectClaims(res.Tokens.AccessToken)
	require.True(t, ok)
	assert.True(t, claims.EmailVerified)

	u, err := f.users.Profile(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.Len(t, f.audit.OfType(audit.EventEmailVerified), 1)

	// single use
	_, err = f.svc.Complete(ctx, iss.Token, true)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.Issue(ctx, f.user.ID)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestComplete_CollaboratorFailureDegradesLocation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Options)
		hadSession bool
		want       string
	}{
		{"issuer fails with session", func(o *Options) { o.Issuer = failingIssuer{} }, true, "/login"},
		{"issuer fails without session", func(o *Options) { o.Issuer = failingIssuer{} }, false, "/email-verification"},
		{"mark fails with session", func(o *Options) { o.Accounts = failingAccounts{o.Accounts} }, true, "/login"},
		{"mark fails without session", func(o *Options) { o.Accounts = failingAccounts{o.Accounts} }, false, "/email-verification"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.mutate)
			ctx := context.Background()
			iss, err := f.svc.Issue(ctx, f.user.ID)
			require.NoError(t, err)

			res, err := f.svc.Complete(ctx, iss.Token, tt.hadSession)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Location)
			assert.Nil(t, res.Tokens)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.completions.WithLabelValues(OutcomeDegraded)))
		})
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.clock = func() time.Time { return now }
	require.NoError(t, s.Put(context.Background(), "tok", "u1", time.Minute))

	s.clock = func() time.Time { return now.Add(2 * time.Minute) }
	_, err := s.Consume(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
