package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/flowcraft-ai/flowcraft-backend/internal/quota/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*SubscriptionRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSubscriptionRepository(db), mock
}

func TestCheckAndConsume(t *testing.T) {
	t.Run("active pro passes without touching the counter", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("select is_pro, pro_expires_at").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"is_pro", "pro_expires_at"}).
				AddRow(true, time.Now().Add(24*time.Hour)))

		err := repo.CheckAndConsume(context.Background(), "user-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("free account decrements its counter", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("select is_pro, pro_expires_at").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"is_pro", "pro_expires_at"}).AddRow(false, nil))
		mock.ExpectExec("remaining_versions - 1").
			WithArgs("user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CheckAndConsume(context.Background(), "user-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lapsed pro falls through to the counter", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("select is_pro, pro_expires_at").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"is_pro", "pro_expires_at"}).
				AddRow(true, time.Now().Add(-time.Hour)))
		mock.ExpectExec("remaining_versions - 1").
			WithArgs("user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CheckAndConsume(context.Background(), "user-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero remaining is quota exhausted", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("select is_pro, pro_expires_at").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"is_pro", "pro_expires_at"}).AddRow(false, nil))
		mock.ExpectExec("remaining_versions - 1").
			WithArgs("user-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.CheckAndConsume(context.Background(), "user-1")
		assert.ErrorIs(t, err, domain.ErrQuotaExhausted)
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("select is_pro, pro_expires_at").
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		err := repo.CheckAndConsume(context.Background(), "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGrantPro(t *testing.T) {
	t.Run("overwrites pro expiry", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec("set is_pro = true").
			WithArgs("user-1", 30).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.GrantPro(context.Background(), "user-1", 30)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive durations locally", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		err := repo.GrantPro(context.Background(), "user-1", 0)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec("set is_pro = true").
			WithArgs("ghost", 30).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.GrantPro(context.Background(), "ghost", 30)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestStatus(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	exp := now.Add(10 * 24 * time.Hour)

	mock.ExpectQuery("from subscriptions").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "is_pro", "pro_expires_at", "remaining_versions", "created_at", "updated_at",
		}).AddRow("sub-1", "user-1", true, exp, 3, now, now))

	sub, err := repo.Status(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, sub.IsPro)
	require.NotNil(t, sub.ProExpiresAt)
	assert.Equal(t, 3, sub.RemainingVersions)
	assert.True(t, sub.Active(now))
	assert.False(t, sub.Active(exp.Add(time.Minute)))
}

func TestResetExpired(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("set is_pro = false").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ResetExpired(context.Background(), 3)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
