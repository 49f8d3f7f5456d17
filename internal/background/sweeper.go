package background

import (
	"context"
	"log/slog"
	"time"
)

const sweepTimeout = 30 * time.Second

// LockoutClearer is implemented by the account repositories
type LockoutClearer interface {
	ClearExpiredLockouts(ctx context.Context, now time.Time) (int64, error)
}

// LockoutSweeper periodically resets lockouts whose end time has passed, so
// listings and counters reflect expiry without waiting for the next login
type LockoutSweeper struct {
	store    LockoutClearer
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
}

func NewLockoutSweeper(store LockoutClearer, logger *slog.Logger, interval time.Duration) *LockoutSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &LockoutSweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
// It always returns nil so it can share an errgroup with the server.
func (s *LockoutSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			s.logger.Info("lockout sweeper stopped")
			return nil
		}
	}
}

func (s *LockoutSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	cleared, err := s.store.ClearExpiredLockouts(sweepCtx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("failed to clear expired lockouts", slog.Any("error", err))
		}
		return
	}

	if cleared > 0 {
		s.logger.Info("expired lockouts cleared", slog.Int64("accounts", cleared))
	}
}
