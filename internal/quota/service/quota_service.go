package service

import (
	"context"

	"github.com/flowcraft-ai/flowcraft-backend/internal/quota/domain"
	"github.com/flowcraft-ai/flowcraft-backend/internal/quota/repository"
)

// QuotaService handles subscription and quota business logic
type QuotaService struct {
	repo *repository.SubscriptionRepository
}

// NewQuotaService creates a new quota service
func NewQuotaService(repo *repository.SubscriptionRepository) *QuotaService {
	return &QuotaService{repo: repo}
}

// CheckAndConsume gates a generation attempt for the account.
func (s *QuotaService) CheckAndConsume(ctx context.Context, userID string) error {
	return s.repo.CheckAndConsume(ctx, userID)
}

// GrantPro upgrades the account for the given number of days. This is
// the only mutation path for pro status.
func (s *QuotaService) GrantPro(ctx context.Context, userID string, durationDays int) error {
	return s.repo.GrantPro(ctx, userID, durationDays)
}

// Status returns the account's current subscription state.
func (s *QuotaService) Status(ctx context.Context, userID string) (*domain.Subscription, error) {
	return s.repo.Status(ctx, userID)
}
