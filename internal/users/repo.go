package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("user not found")

type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

type UpsertUser struct {
	FirebaseUID string
	Username    string
	Email       string
}

// PublicInfo is the projection of a user exposed through share links.
type PublicInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// EnsureUser upserts the account row for an authenticated identity and
// guarantees a free-tier subscription row exists beside it. Returns
// the internal user id.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser, freeTierVersions int) (string, error) {
	if strings.TrimSpace(u.FirebaseUID) == "" {
		return "", fmt.Errorf("firebase_uid required")
	}

	username := strings.TrimSpace(u.Username)
	if username == "" {
		// Fall back to the mailbox part of the email, then the uid.
		if at := strings.IndexByte(u.Email, '@'); at > 0 {
			username = u.Email[:at]
		} else {
			username = u.FirebaseUID
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `
insert into users (id, firebase_uid, username, email, updated_at)
values ($1, $2, $3, nullif($4,''), now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, users.email),
  updated_at = now()
returning id
`, uuid.NewString(), u.FirebaseUID, username, u.Email).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
insert into subscriptions (id, user_id, is_pro, remaining_versions)
values ($1, $2, false, $3)
on conflict (user_id) do nothing
`, uuid.NewString(), id, freeTierVersions)
	if err != nil {
		return "", fmt.Errorf("ensure subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return id, nil
}

// GetPublicInfo returns the share-link projection of a user.
func (r *Repo) GetPublicInfo(ctx context.Context, userID string) (*PublicInfo, error) {
	var info PublicInfo
	err := r.db.QueryRowContext(ctx, `
select id, username
from users
where id = $1
  and deleted_at is null
`, userID).Scan(&info.ID, &info.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &info, nil
}
