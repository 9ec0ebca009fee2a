package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*DiagramRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewDiagramRepository(db), mock
}

func TestCreateWithInitialVersion(t *testing.T) {
	t.Run("inserts diagram and version 1 in one transaction", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("insert into diagrams").
			WithArgs(sqlmock.AnyArg(), "user-1", "proj-1", "Login Flow", "login flow", "graph TD").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec("insert into diagram_versions").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "login flow", "graph TD", "initial version").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		d, err := repo.CreateWithInitialVersion(context.Background(), "user-1", "proj-1", "Login Flow", "login flow", "graph TD")
		require.NoError(t, err)
		assert.Equal(t, 1, d.CurrentVersion)
		assert.Equal(t, "Login Flow", d.Title)
		assert.NotEmpty(t, d.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects blank description before touching the database", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		_, err := repo.CreateWithInitialVersion(context.Background(), "user-1", "proj-1", "T", "   ", "graph TD")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version insert failure rolls the diagram back", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("insert into diagrams").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec("insert into diagram_versions").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		_, err := repo.CreateWithInitialVersion(context.Background(), "user-1", "proj-1", "T", "d", "graph TD")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAppendVersion(t *testing.T) {
	t.Run("locks the diagram, writes current+1 and advances the pointer", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("for update").
			WithArgs("diag-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "current_version"}).AddRow("user-1", 3))
		mock.ExpectQuery("insert into diagram_versions").
			WithArgs(sqlmock.AnyArg(), "diag-1", 4, "new desc", "new code", "tweaked layout").
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectExec("update diagrams").
			WithArgs(4, "new desc", "new code", "diag-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ver, err := repo.AppendVersion(context.Background(), "diag-1", "user-1", "new desc", "new code", "tweaked layout")
		require.NoError(t, err)
		assert.Equal(t, 4, ver.VersionNumber)
		assert.Equal(t, "tweaked layout", ver.Comment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("refuses a diagram owned by someone else", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("for update").
			WithArgs("diag-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "current_version"}).AddRow("someone-else", 3))
		mock.ExpectRollback()

		_, err := repo.AppendVersion(context.Background(), "diag-1", "user-1", "d", "c", "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing or tombstoned diagram maps to not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("for update").
			WithArgs("diag-gone").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := repo.AppendVersion(context.Background(), "diag-gone", "user-1", "d", "c", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRollback(t *testing.T) {
	t.Run("truncates above target and rewinds the pointer", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("for update").
			WithArgs("diag-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "current_version"}).AddRow("user-1", 5))
		mock.ExpectQuery("select description, mermaid_code").
			WithArgs("diag-1", 2).
			WillReturnRows(sqlmock.NewRows([]string{"description", "mermaid_code"}).AddRow("old desc", "old code"))
		mock.ExpectExec("delete from diagram_versions").
			WithArgs("diag-1", 2).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec("update diagrams").
			WithArgs(2, "old desc", "old code", "diag-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Rollback(context.Background(), "diag-1", "user-1", 2)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing target version aborts before any delete", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("for update").
			WithArgs("diag-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "current_version"}).AddRow("user-1", 5))
		mock.ExpectQuery("select description, mermaid_code").
			WithArgs("diag-1", 9).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.Rollback(context.Background(), "diag-1", "user-1", 9)
		assert.ErrorIs(t, err, domain.ErrVersionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive target is an invalid argument", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		for _, target := range []int{0, -1} {
			err := repo.Rollback(context.Background(), "diag-1", "user-1", target)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetByID(t *testing.T) {
	diagramRows := func(userID string) *sqlmock.Rows {
		now := time.Now()
		return sqlmock.NewRows([]string{
			"id", "user_id", "project_id", "title", "description", "mermaid_code",
			"current_version", "created_at", "updated_at", "deleted_at",
		}).AddRow("diag-1", userID, "proj-1", "T", "d", "c", 2, now, now, nil)
	}

	t.Run("returns the owner's diagram", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("from diagrams").WithArgs("diag-1").WillReturnRows(diagramRows("user-1"))

		d, err := repo.GetByID(context.Background(), "diag-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, d.CurrentVersion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hides other accounts' diagrams behind unauthorized", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("from diagrams").WithArgs("diag-1").WillReturnRows(diagramRows("someone-else"))

		_, err := repo.GetByID(context.Background(), "diag-1", "user-1")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("maps no rows to not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("from diagrams").WithArgs("diag-gone").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), "diag-gone", "user-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSoftDeleteAndTitle(t *testing.T) {
	t.Run("soft delete on an unknown diagram is not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("set deleted_at = now").
			WithArgs("diag-gone", "user-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SoftDelete(context.Background(), "diag-gone", "user-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("blank title is rejected locally", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		err := repo.UpdateTitle(context.Background(), "diag-1", "user-1", "  ")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rename touches only the owned, live row", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("set title").
			WithArgs("diag-1", "user-1", "Renamed").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateTitle(context.Background(), "diag-1", "user-1", "Renamed")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListVersions(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("from diagrams").WithArgs("diag-1").WillReturnRows(sqlmock.NewRows([]string{
		"id", "user_id", "project_id", "title", "description", "mermaid_code",
		"current_version", "created_at", "updated_at", "deleted_at",
	}).AddRow("diag-1", "user-1", "proj-1", "T", "d", "c", 2, now, now, nil))

	mock.ExpectQuery("from diagram_versions").
		WithArgs("diag-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "diagram_id", "version_number", "description", "mermaid_code", "comment", "created_at",
		}).
			AddRow("v1", "diag-1", 1, "d1", "c1", "initial version", now).
			AddRow("v2", "diag-1", 2, "d2", "c2", "", now))

	versions, err := repo.ListVersions(context.Background(), "diag-1", "user-1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Equal(t, "initial version", versions[0].Comment)
	assert.Equal(t, 2, versions[1].VersionNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
