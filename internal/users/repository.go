package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"invoicing-edge/pkg/utils"
)

// NOTE: This repository assumes the following table exists:
//
//	CREATE TABLE users (
//	  id                uuid PRIMARY KEY,
//	  email             text NOT NULL CONSTRAINT users_email_key UNIQUE,
//	  name              text NOT NULL DEFAULT '',
//	  password_hash     text NOT NULL,
//	  role              text NOT NULL,
//	  email_verified    boolean NOT NULL DEFAULT false,
//	  email_verified_at timestamptz,
//	  created_at        timestamptz NOT NULL,
//	  updated_at        timestamptz NOT NULL
//	);

// Repository is the persistence contract for user records.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// MarkEmailVerified returns the record as stored after the change.
	MarkEmailVerified(ctx context.Context, id string, at time.Time) (User, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const userColumns = `id, email, name, password_hash, role, email_verified, email_verified_at, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (` + userColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.Role,
		u.EmailVerified,
		u.EmailVerifiedAt,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if utils.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, q, email))
}

// MarkEmailVerified locks the row, flips the flag and returns the updated
// record in one transaction. Repeated calls leave a verified row untouched.
func (r *PostgresRepo) MarkEmailVerified(ctx context.Context, id string, at time.Time) (User, error) {
	const (
		lock   = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
		update = `
UPDATE users
SET email_verified = true,
    email_verified_at = $2,
    updated_at = $2
WHERE id = $1
`
	)

	var out User
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx, lock, id))
		if err != nil {
			return err
		}
		if u.EmailVerified && u.EmailVerifiedAt != nil {
			out = u
			return nil
		}
		if _, err := tx.ExecContext(ctx, update, id, at); err != nil {
			return err
		}
		u.EmailVerified = true
		u.EmailVerifiedAt = &at
		u.UpdatedAt = at
		out = u
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var verifiedAt sql.NullTime
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Role,
		&u.EmailVerified,
		&verifiedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		u.EmailVerifiedAt = &t
	}
	return u, nil
}
