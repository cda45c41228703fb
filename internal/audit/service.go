package audit

import (
	"context"
	"errors"
	"time"

	"invoicing-edge/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records authentication events.
//
// Audit is internal-only. Callers use Record, which never fails the request.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// Record appends an event and logs, rather than returns, any failure.
// A nil Service is a no-op.
func (s *Service) Record(ctx context.Context, typ EventType, userID, email, message string) {
	if s == nil {
		return
	}
	err := s.Append(ctx, Event{Type: typ, UserID: userID, Email: email, Message: message})
	if err != nil {
		logger.From(ctx).Warn("audit append failed", "type", string(typ), "err", err)
	}
}
