package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const stalePendingAge = 7 * 24 * time.Hour

// Pruner is the repo operation the scheduler needs.
type Pruner interface {
	DeleteStalePending(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Scheduler struct {
	store  Pruner
	logger *slog.Logger
}

func NewScheduler(store Pruner, logger *slog.Logger) *Scheduler {
	return &Scheduler{store: store, logger: logger}
}

// Start prunes stale PENDING mail_log rows nightly at midnight.
func (s *Scheduler) Start() *cron.Cron {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc("0 0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		n, err := s.store.DeleteStalePending(ctx, stalePendingAge)
		if err != nil {
			s.logger.Error("mail log prune failed", "error", err)
			return
		}
		s.logger.Info("mail log pruned", "removed", n)
	})
	if err != nil {
		s.logger.Error("failed to register mail prune job", "error", err)
		return c
	}

	c.Start()
	return c
}
