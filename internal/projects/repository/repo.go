package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/flowcraft-ai/flowcraft-backend/internal/projects/domain"
	"github.com/google/uuid"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, userID, name, description string) (*domain.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("project name required")
	}

	p := domain.Project{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: description,
	}

	err := r.db.QueryRowContext(ctx, `
insert into projects (id, user_id, name, description)
values ($1, $2, $3, nullif($4,''))
returning created_at, updated_at
`, p.ID, userID, name, description).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	return &p, nil
}

// GetByID loads a project and enforces ownership.
func (r *ProjectRepository) GetByID(ctx context.Context, id, userID string) (*domain.Project, error) {
	var p domain.Project
	var desc sql.NullString
	var ownerID string

	err := r.db.QueryRowContext(ctx, `
select id, user_id, name, coalesce(description,''), created_at, updated_at
from projects
where id = $1
  and deleted_at is null
`, id).Scan(&p.ID, &ownerID, &p.Name, &desc, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if ownerID != userID {
		return nil, domain.ErrUnauthorized
	}

	p.UserID = ownerID
	p.Description = desc.String
	return &p, nil
}

func (r *ProjectRepository) ListByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
select id, user_id, name, coalesce(description,''), created_at, updated_at
from projects
where user_id = $1
  and deleted_at is null
order by updated_at desc
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) SoftDelete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
update projects
set deleted_at = now(),
    updated_at = now()
where id = $1
  and user_id = $2
  and deleted_at is null
`, id, userID)
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
