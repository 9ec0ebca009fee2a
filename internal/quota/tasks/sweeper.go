package tasks

import (
	"context"
	"log"
	"time"

	"github.com/flowcraft-ai/flowcraft-backend/internal/quota/repository"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically resets lapsed pro subscriptions back to the
// free tier. An account that regains pro status between passes is
// untouched: the sweep only matches rows already expired when it runs.
type Sweeper struct {
	cron     *cron.Cron
	repo     *repository.SubscriptionRepository
	freeTier int
	spec     string
}

func NewSweeper(repo *repository.SubscriptionRepository, spec string, freeTierVersions int) *Sweeper {
	if spec == "" {
		spec = "@hourly"
	}
	return &Sweeper{
		cron:     cron.New(),
		repo:     repo,
		freeTier: freeTierVersions,
		spec:     spec,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.Run); err != nil {
		return err
	}

	log.Printf("[info] operation=subscription_sweep message=scheduler started spec=%s", s.spec)
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Run performs one sweep pass. Exported so a deploy hook can force a
// pass outside the schedule.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.repo.ResetExpired(ctx, s.freeTier)
	if err != nil {
		log.Printf("[error] operation=subscription_sweep error=%v", err)
		return
	}

	if n > 0 {
		log.Printf("[info] operation=subscription_sweep message=reset expired subscriptions count=%d", n)
	}
}
