package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/domain"
	"github.com/google/uuid"
)

// ShareTokenRepository mints and resolves capability tokens for
// read-only access to a diagram's latest version.
type ShareTokenRepository struct {
	db *sql.DB
}

func NewShareTokenRepository(db *sql.DB) *ShareTokenRepository {
	return &ShareTokenRepository{db: db}
}

// Create mints a token for the diagram. A nil expiresAt never expires.
func (r *ShareTokenRepository) Create(ctx context.Context, diagramID string, expiresAt *time.Time) (*domain.ShareToken, error) {
	tok := domain.ShareToken{
		ID:        uuid.NewString(),
		DiagramID: diagramID,
		ExpiresAt: expiresAt,
	}

	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: *expiresAt, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
insert into share_tokens (id, diagram_id, expires_at)
values ($1, $2, $3)
returning created_at
`, tok.ID, diagramID, exp).Scan(&tok.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create share token: %w", err)
	}

	return &tok, nil
}

// Resolve maps a token to the shared-diagram projection and the
// token's expiry (nil when it never expires). No ownership check:
// holding the token is the capability. The latest version is
// recomputed as max(version_number) over the version set rather than
// read from the diagram's denormalized pointer.
func (r *ShareTokenRepository) Resolve(ctx context.Context, token string, now time.Time) (*domain.SharedDiagram, *time.Time, error) {
	var diagramID string
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
select diagram_id, expires_at
from share_tokens
where id = $1
`, token).Scan(&diagramID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("load share token: %w", err)
	}

	var expiry *time.Time
	if expiresAt.Valid {
		if !expiresAt.Time.After(now) {
			return nil, nil, domain.ErrTokenExpired
		}
		t := expiresAt.Time
		expiry = &t
	}

	var shared domain.SharedDiagram
	err = r.db.QueryRowContext(ctx, `
select d.id, d.title, d.description, v.mermaid_code, v.version_number, u.id, u.username
from diagrams d
join users u on u.id = d.user_id
join diagram_versions v on v.diagram_id = d.id
where d.id = $1
  and d.deleted_at is null
order by v.version_number desc
limit 1
`, diagramID).Scan(
		&shared.ID, &shared.Title, &shared.Description,
		&shared.MermaidCode, &shared.VersionNumber,
		&shared.Owner.ID, &shared.Owner.Username,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("load shared diagram: %w", err)
	}

	return &shared, expiry, nil
}
