package audit

import "time"

// Event is an immutable, append-only record of an authentication event.
//
// Invariants:
// - Events are never updated or deleted.
// - actor and ip capture are best-effort; do not block sign-in or verification on audit failures.
//
// Storage (Postgres): table auth_events with an INSERT-only grant.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// UserID is the account the event is about. Empty for failed logins on unknown emails.
	UserID string `json:"user_id,omitempty" db:"user_id"`
	Email  string `json:"email,omitempty" db:"email"`

	// IPAddress is the resolved client IP (see WithClientIP).
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventRegistered         EventType = "registered"
	EventLogin              EventType = "login"
	EventLoginFailed        EventType = "login_failed"
	EventLogout             EventType = "logout"
	EventVerificationIssued EventType = "verification_issued"
	EventEmailVerified      EventType = "email_verified"
)
