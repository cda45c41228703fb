package users

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepo(db), mock
}

func TestPostgresRepo_CreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), User{ID: "u1", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetByIDScansNullableVerification(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@example.com", "Ada", "hash", "USER", true, now, now, now))

	u, err := repo.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	require.NotNil(t, u.EmailVerifiedAt)
	assert.Equal(t, now, *u.EmailVerifiedAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("u2").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var userCols = []string{"id", "email", "name", "password_hash", "role", "email_verified", "email_verified_at", "created_at", "updated_at"}

func TestPostgresRepo_MarkEmailVerifiedNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectRollback()

	_, err := repo.MarkEmailVerified(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_MarkEmailVerifiedUpdatesInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := created.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@example.com", "Ada", "hash", "USER", false, nil, created, created))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs("u1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := repo.MarkEmailVerified(context.Background(), "u1", at)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	require.NotNil(t, u.EmailVerifiedAt)
	assert.Equal(t, at, *u.EmailVerifiedAt)
	assert.Equal(t, at, u.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_MarkEmailVerifiedKeepsVerifiedRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@example.com", "Ada", "hash", "USER", true, first, first, first))
	mock.ExpectCommit()

	u, err := repo.MarkEmailVerified(context.Background(), "u1", first.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, *u.EmailVerifiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_MarkEmailVerifiedRollsBackOnUpdateError(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@example.com", "Ada", "hash", "USER", false, nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := repo.MarkEmailVerified(context.Background(), "u1", now)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
