package audit

import (
	"context"
	"database/sql"
)

// NOTE: assumes
//
//	CREATE TABLE auth_events (
//	  id         uuid PRIMARY KEY,
//	  type       text NOT NULL,
//	  user_id    text,
//	  email      text,
//	  ip_address text,
//	  message    text,
//	  created_at timestamptz NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO auth_events (id, type, user_id, email, ip_address, message, created_at)
VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),$7)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, string(e.Type), e.UserID, e.Email, e.IPAddress, e.Message, e.CreatedAt)
	return err
}
