package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flowcraft-ai/flowcraft-backend/internal/quota/domain"
)

// SubscriptionRepository provides persistence for per-account quota
// state. Consumption is a single conditional UPDATE so concurrent
// attempts on one account cannot both pass on the last remaining
// generation.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// CheckAndConsume gates one generation attempt. Pro accounts pass
// without mutation; free accounts atomically decrement their counter
// or fail with ErrQuotaExhausted.
func (r *SubscriptionRepository) CheckAndConsume(ctx context.Context, userID string) error {
	var isPro bool
	var proExpiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
select is_pro, pro_expires_at
from subscriptions
where user_id = $1
`, userID).Scan(&isPro, &proExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("load subscription: %w", err)
	}

	if isPro && (!proExpiresAt.Valid || proExpiresAt.Time.After(time.Now())) {
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
update subscriptions
set remaining_versions = remaining_versions - 1,
    updated_at = now()
where user_id = $1
  and remaining_versions > 0
`, userID)
	if err != nil {
		return fmt.Errorf("consume quota: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrQuotaExhausted
	}

	return nil
}

// GrantPro sets pro status with a fresh expiry. Re-application
// overwrites the expiry rather than stacking.
func (r *SubscriptionRepository) GrantPro(ctx context.Context, userID string, durationDays int) error {
	if durationDays <= 0 {
		return fmt.Errorf("duration days must be positive")
	}

	res, err := r.db.ExecContext(ctx, `
update subscriptions
set is_pro = true,
    pro_expires_at = now() + make_interval(days => $2),
    updated_at = now()
where user_id = $1
`, userID, durationDays)
	if err != nil {
		return fmt.Errorf("grant pro: %w", err)
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

// Status returns the account's subscription row.
func (r *SubscriptionRepository) Status(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	var proExpiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
select id, user_id, is_pro, pro_expires_at, remaining_versions, created_at, updated_at
from subscriptions
where user_id = $1
`, userID).Scan(
		&sub.ID, &sub.UserID, &sub.IsPro, &proExpiresAt,
		&sub.RemainingVersions, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load subscription: %w", err)
	}

	if proExpiresAt.Valid {
		t := proExpiresAt.Time
		sub.ProExpiresAt = &t
	}

	return &sub, nil
}

// ResetExpired flips every lapsed pro row back to the free tier and
// returns how many rows were reset. Safe to run concurrently with
// consumption; last write wins.
func (r *SubscriptionRepository) ResetExpired(ctx context.Context, freeTierVersions int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
update subscriptions
set is_pro = false,
    pro_expires_at = null,
    remaining_versions = $1,
    updated_at = now()
where is_pro = true
  and pro_expires_at is not null
  and pro_expires_at < now()
`, freeTierVersions)
	if err != nil {
		return 0, fmt.Errorf("reset expired subscriptions: %w", err)
	}

	return res.RowsAffected()
}
