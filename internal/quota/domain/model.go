package domain

import (
	"errors"
	"time"
)

// Subscription is the per-account quota state. RemainingVersions is
// only consulted while IsPro is false.
type Subscription struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	IsPro             bool       `json:"isPro"`
	ProExpiresAt      *time.Time `json:"proExpiresAt,omitempty"`
	RemainingVersions int        `json:"remainingVersions"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Active reports whether pro status is in force at the given instant.
func (s *Subscription) Active(now time.Time) bool {
	if !s.IsPro {
		return false
	}
	return s.ProExpiresAt == nil || s.ProExpiresAt.After(now)
}

var (
	ErrNotFound = errors.New("subscription not found")

	// ErrQuotaExhausted is distinguishable from generic failure so the
	// client can prompt an upgrade. Non-retryable.
	ErrQuotaExhausted = errors.New("no remaining version generations, please upgrade to Pro")
)
