package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/domain"
	"github.com/google/uuid"
)

// DiagramRepository is the append-only version ledger plus the
// rollback engine. Every write that touches both a version row and the
// diagram's denormalized pointer runs in one transaction, so the
// pointer never drifts ahead of or behind the version set on a
// completed call.
type DiagramRepository struct {
	db *sql.DB
}

func NewDiagramRepository(db *sql.DB) *DiagramRepository {
	return &DiagramRepository{db: db}
}

// CreateWithInitialVersion inserts a diagram together with version 1.
// Version 1 always carries the fixed "initial version" comment and is
// never removed by rollback.
func (r *DiagramRepository) CreateWithInitialVersion(ctx context.Context, userID, projectID, title, description, code string) (*domain.Diagram, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("description required")
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("mermaid code required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	d := domain.Diagram{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProjectID:      projectID,
		Title:          title,
		Description:    description,
		MermaidCode:    code,
		CurrentVersion: 1,
	}

	err = tx.QueryRowContext(ctx, `
insert into diagrams (id, user_id, project_id, title, description, mermaid_code, current_version)
values ($1, $2, $3, $4, $5, $6, 1)
returning created_at, updated_at
`, d.ID, userID, projectID, title, description, code).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert diagram: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
insert into diagram_versions (id, diagram_id, version_number, description, mermaid_code, comment)
values ($1, $2, 1, $3, $4, $5)
`, uuid.NewString(), d.ID, description, code, domain.InitialVersionComment)
	if err != nil {
		return nil, fmt.Errorf("insert initial version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &d, nil
}

// AppendVersion writes versionNumber = currentVersion+1 and advances
// the diagram's pointer, description and denormalized code in the same
// transaction. The diagram row is locked first so two appends on one
// diagram serialize instead of reusing a number.
func (r *DiagramRepository) AppendVersion(ctx context.Context, diagramID, userID, newDescription, newCode, comment string) (*domain.Version, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ownerID, current, err := lockDiagram(ctx, tx, diagramID)
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, domain.ErrUnauthorized
	}

	ver := domain.Version{
		ID:            uuid.NewString(),
		DiagramID:     diagramID,
		VersionNumber: current + 1,
		Description:   newDescription,
		MermaidCode:   newCode,
		Comment:       comment,
	}

	err = tx.QueryRowContext(ctx, `
insert into diagram_versions (id, diagram_id, version_number, description, mermaid_code, comment)
values ($1, $2, $3, $4, $5, nullif($6,''))
returning created_at
`, ver.ID, diagramID, ver.VersionNumber, newDescription, newCode, comment).Scan(&ver.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
update diagrams
set current_version = $1,
    description = $2,
    mermaid_code = $3,
    updated_at = now()
where id = $4
`, ver.VersionNumber, newDescription, newCode, diagramID)
	if err != nil {
		return nil, fmt.Errorf("update diagram pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &ver, nil
}

// Rollback truncates history to the target version: every version with
// a higher number is deleted and the diagram's pointer, description
// and code are rewound to the target's values. Destructive, no redo.
// Rolling back to the current version is a legal no-op that still
// performs the field copy.
func (r *DiagramRepository) Rollback(ctx context.Context, diagramID, userID string, targetVersion int) error {
	if targetVersion < 1 {
		return domain.ErrInvalidArgument
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	ownerID, _, err := lockDiagram(ctx, tx, diagramID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return domain.ErrUnauthorized
	}

	var targetDescription, targetCode string
	err = tx.QueryRowContext(ctx, `
select description, mermaid_code
from diagram_versions
where diagram_id = $1
  and version_number = $2
`, diagramID, targetVersion).Scan(&targetDescription, &targetCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrVersionNotFound
		}
		return fmt.Errorf("load target version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
delete from diagram_versions
where diagram_id = $1
  and version_number > $2
`, diagramID, targetVersion)
	if err != nil {
		return fmt.Errorf("truncate versions: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
update diagrams
set current_version = $1,
    description = $2,
    mermaid_code = $3,
    updated_at = now()
where id = $4
`, targetVersion, targetDescription, targetCode, diagramID)
	if err != nil {
		return fmt.Errorf("rewind diagram: %w", err)
	}

	return tx.Commit()
}

// lockDiagram takes the row lock for a non-deleted diagram and returns
// its owner and current version.
func lockDiagram(ctx context.Context, tx *sql.Tx, diagramID string) (ownerID string, currentVersion int, err error) {
	err = tx.QueryRowContext(ctx, `
select user_id, current_version
from diagrams
where id = $1
  and deleted_at is null
for update
`, diagramID).Scan(&ownerID, &currentVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrNotFound
		}
		return "", 0, err
	}
	return ownerID, currentVersion, nil
}

// GetByID loads a non-deleted diagram and enforces ownership.
func (r *DiagramRepository) GetByID(ctx context.Context, id, userID string) (*domain.Diagram, error) {
	d, err := r.scanDiagram(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, domain.ErrUnauthorized
	}
	return d, nil
}

func (r *DiagramRepository) scanDiagram(ctx context.Context, id string, withDeleted bool) (*domain.Diagram, error) {
	q := `
select id, user_id, project_id, title, description, mermaid_code, current_version,
       created_at, updated_at, deleted_at
from diagrams
where id = $1
`
	if !withDeleted {
		q += "  and deleted_at is null\n"
	}

	var d domain.Diagram
	var deletedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.UserID, &d.ProjectID, &d.Title, &d.Description,
		&d.MermaidCode, &d.CurrentVersion, &d.CreatedAt, &d.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	return &d, nil
}

// ListVersions returns the diagram's versions ordered by version
// number ascending. Ownership is enforced.
func (r *DiagramRepository) ListVersions(ctx context.Context, diagramID, userID string) ([]domain.Version, error) {
	if _, err := r.GetByID(ctx, diagramID, userID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
select id, diagram_id, version_number, description, mermaid_code, coalesce(comment,''), created_at
from diagram_versions
where diagram_id = $1
order by version_number asc
`, diagramID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Version
	for rows.Next() {
		var v domain.Version
		if err := rows.Scan(&v.ID, &v.DiagramID, &v.VersionNumber, &v.Description, &v.MermaidCode, &v.Comment, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByUser returns the account's diagrams, most recently updated
// first.
func (r *DiagramRepository) ListByUser(ctx context.Context, userID string) ([]domain.Diagram, error) {
	return r.list(ctx, `
select id, user_id, project_id, title, description, mermaid_code, current_version, created_at, updated_at
from diagrams
where user_id = $1
  and deleted_at is null
order by updated_at desc
`, userID)
}

// ListByProject returns a project's diagrams for the owning account.
func (r *DiagramRepository) ListByProject(ctx context.Context, projectID, userID string) ([]domain.Diagram, error) {
	return r.list(ctx, `
select id, user_id, project_id, title, description, mermaid_code, current_version, created_at, updated_at
from diagrams
where project_id = $1
  and user_id = $2
  and deleted_at is null
order by updated_at desc
`, projectID, userID)
}

func (r *DiagramRepository) list(ctx context.Context, query string, args ...any) ([]domain.Diagram, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Diagram
	for rows.Next() {
		var d domain.Diagram
		if err := rows.Scan(&d.ID, &d.UserID, &d.ProjectID, &d.Title, &d.Description,
			&d.MermaidCode, &d.CurrentVersion, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SoftDelete tombstones a diagram. Append, rollback and share
// resolution all refuse tombstoned rows.
func (r *DiagramRepository) SoftDelete(ctx context.Context, id, userID string) error {
	return r.execOwned(ctx, `
update diagrams
set deleted_at = now(),
    updated_at = now()
where id = $1
  and user_id = $2
  and deleted_at is null
`, id, userID)
}

// Restore clears a diagram's tombstone.
func (r *DiagramRepository) Restore(ctx context.Context, id, userID string) error {
	d, err := r.scanDiagram(ctx, id, true)
	if err != nil {
		return err
	}
	if d.UserID != userID {
		return domain.ErrUnauthorized
	}

	_, err = r.db.ExecContext(ctx, `
update diagrams
set deleted_at = null,
    updated_at = now()
where id = $1
`, id)
	return err
}

// UpdateTitle renames a diagram without touching its history.
func (r *DiagramRepository) UpdateTitle(ctx context.Context, id, userID, title string) error {
	if strings.TrimSpace(title) == "" {
		return domain.ErrInvalidArgument
	}
	return r.execOwned(ctx, `
update diagrams
set title = $3,
    updated_at = now()
where id = $1
  and user_id = $2
  and deleted_at is null
`, id, userID, title)
}

func (r *DiagramRepository) execOwned(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
