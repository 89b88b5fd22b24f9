package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierr "github.com/victorgomez09/portal/internal/auth"
	"github.com/victorgomez09/portal/internal/auth/models"
)

func newMock(t *testing.T) (*SQLiteDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &SQLiteDB{Queries: NewQueries(db), db: db}, mock
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users`).WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+audit_logs`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(q *Queries) error {
		u := &models.User{Email: "a@example.com", Role: models.RoleClient}
		if err := q.CreateUser(context.Background(), u); err != nil {
			return err
		}
		assert.Equal(t, int64(7), u.ID)
		return q.CreateAuditLog(context.Background(), &models.AuditLog{UserID: &u.ID, Action: "register"})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackWhenStepFails(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users`).WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+audit_logs`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.WithTx(context.Background(), func(q *Queries) error {
		u := &models.User{Email: "a@example.com", Role: models.RoleClient}
		if err := q.CreateUser(context.Background(), u); err != nil {
			return err
		}
		return q.CreateAuditLog(context.Background(), &models.AuditLog{UserID: &u.ID, Action: "register"})
	})
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackAndRethrowsPanic(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaput", func() {
		_ = store.WithTx(context.Background(), func(q *Queries) error {
			panic("kaput")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	called := false
	err := store.WithTx(context.Background(), func(q *Queries) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestWithTx_CommitErrorIsReturned(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	err := store.WithTx(context.Background(), func(q *Queries) error { return nil })
	require.ErrorContains(t, err, "commit failed")
}

func TestIncrementFailedLogins_UnknownUser(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`(?s)UPDATE\s+users.*RETURNING\s+failed_login_attempts`).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}))

	_, err := store.IncrementFailedLogins(context.Background(), 99)
	assert.ErrorIs(t, err, apierr.ErrUserNotFound)
}
