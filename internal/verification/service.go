package verification

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicing-edge/internal/access"
	"invoicing-edge/internal/audit"
	"invoicing-edge/internal/auth"
	"invoicing-edge/internal/users"
	"invoicing-edge/pkg/logger"
)

var (
	// ErrMissingToken is an error state for the verification page, not a routing failure.
	ErrMissingToken    = errors.New("missing verification token")
	ErrInvalidToken    = errors.New("verification token is invalid or expired")
	ErrAlreadyVerified = errors.New("email already verified")
)

const tokenBytes = 32

// Accounts is the slice of users.Service verification needs.
type Accounts interface {
	Profile(ctx context.Context, id string) (users.User, error)
	MarkEmailVerified(ctx context.Context, id string) (users.User, error)
}

// Issuer mints the refreshed credential after verification.
type Issuer interface {
	IssuePair(now time.Time, id auth.Identity) (auth.TokenPair, error)
}

// Sender delivers the verification link. Delivery itself lives outside this service.
type Sender interface {
	SendVerification(ctx context.Context, u users.User, link string) error
}

// LogSender writes the link to the request logger instead of mailing it.
type LogSender struct{}

func (LogSender) SendVerification(ctx context.Context, u users.User, link string) error {
	logger.From(ctx).Info("verification link issued", "user_id", u.ID, "link", link)
	return nil
}

type Options struct {
	Store    TokenStore
	Accounts Accounts
	Issuer   Issuer
	Routes   access.RouteTable
	TTL      time.Duration

	// Optional.
	Sender  Sender
	Audit   *audit.Service
	Metrics *Metrics
}

type Service struct {
	opts  Options
	clock func() time.Time
}

func NewService(opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Sender == nil {
		opts.Sender = LogSender{}
	}
	return &Service{opts: opts, clock: time.Now}
}

type Issued struct {
	Token     string
	Link      string
	ExpiresAt time.Time
}

// Issue creates a single-use token for userID and hands the link to the Sender.
func (s *Service) Issue(ctx context.Context, userID string) (Issued, error) {
	u, err := s.opts.Accounts.Profile(ctx, userID)
	if err != nil {
		return Issued{}, err
	}
	if u.EmailVerified {
		return Issued{}, ErrAlreadyVerified
	}

	tok, err := newToken()
	if err != nil {
		return Issued{}, err
	}
	if err := s.opts.Store.Put(ctx, tok, u.ID, s.opts.TTL); err != nil {
		return Issued{}, fmt.Errorf("store verification token: %w", err)
	}

	out := Issued{
		Token:     tok,
		Link:      s.opts.Routes.VerificationLink(tok),
		ExpiresAt: s.clock().Add(s.opts.TTL),
	}
	if err := s.opts.Sender.SendVerification(ctx, u, out.Link); err != nil {
		return Issued{}, fmt.Errorf("send verification: %w", err)
	}
	s.opts.Audit.Record(ctx, audit.EventVerificationIssued, u.ID, u.Email, "")
	return out, nil
}

// Result is where the browser goes after a completion attempt.
type Result struct {
	Location string
	// Tokens is set only when a refreshed credential was minted.
	Tokens *auth.TokenPair
	User   users.User
}

// Complete redeems a verification token.
//
// Once the token is consumed the call never fails: if marking the account or
// minting the refreshed credential fails, the failure is logged and the
// browser is sent to login (hadSession) or back to the holding page.
func (s *Service) Complete(ctx context.Context, token string, hadSession bool) (Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.opts.Metrics.observe(OutcomeMissingToken)
		return Result{}, ErrMissingToken
	}

	userID, err := s.opts.Store.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			s.opts.Metrics.observe(OutcomeInvalidToken)
			return Result{}, ErrInvalidToken
		}
		s.opts.Metrics.observe(OutcomeStoreFailure)
		return Result{}, fmt.Errorf("consume verification token: %w", err)
	}

	log := logger.From(ctx).With("user_id", userID)
	degraded := Result{Location: s.opts.Routes.VerificationHolding}
	if hadSession {
		degraded.Location = s.opts.Routes.Login
	}

	u, err := s.opts.Accounts.MarkEmailVerified(ctx, userID)
	if err != nil {
		log.Warn("mark email verified failed", "err", err)
		s.opts.Metrics.observe(OutcomeDegraded)
		return degraded, nil
	}
	s.opts.Audit.Record(ctx, audit.EventEmailVerified, u.ID, u.Email, "")

	pair, err := s.opts.Issuer.IssuePair(s.clock(), u.AuthIdentity())
	if err != nil {
		log.Warn("refresh credential after verification failed", "err", err)
		s.opts.Metrics.observe(OutcomeDegraded)
		degraded.User = u
		return degraded, nil
	}

	s.opts.Metrics.observe(OutcomeVerified)
	return Result{
		Location: s.opts.Routes.PostVerificationURL(),
		Tokens:   &pair,
		User:     u,
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
