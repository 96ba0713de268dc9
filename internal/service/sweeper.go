package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/booking"
	"github.com/Shivanand-hulikatti/meeting-room-booking/internal/repository"
)

const sweepLease = "expired-reservations"

// Leaser grants one holder at a time the right to run a named task.
type Leaser interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// Sweeper deletes reservations whose end time has passed.
type Sweeper struct {
	store    repository.Store
	clock    booking.Clock
	lease    Leaser
	interval time.Duration
	leaseTTL time.Duration
}

// NewSweeper constructs a Sweeper that runs every interval while it holds
// the lease.
func NewSweeper(store repository.Store, clock booking.Clock, lease Leaser, interval, leaseTTL time.Duration) *Sweeper {
	return &Sweeper{store: store, clock: clock, lease: lease, interval: interval, leaseTTL: leaseTTL}
}

// Sweep removes every reservation that ended strictly before now and
// returns how many were removed. Running it twice is harmless.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "expired reservations swept", "count", n, "now", booking.Format(now))
	}
	return n, nil
}

// SweepNow sweeps at the current clock time.
func (s *Sweeper) SweepNow(ctx context.Context) (int64, error) {
	return s.Sweep(ctx, s.clock.Now())
}

// Run sweeps every interval until ctx is cancelled. With several instances
// sharing one store, only the holder of the lease sweeps on a given tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("sweeper started", "interval", s.interval.String())
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := s.lease.Release(releaseCtx, sweepLease); err != nil {
				slog.Warn("sweep lease release failed", "err", err)
			}
			cancel()
			slog.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	ok, err := s.lease.Acquire(ctx, sweepLease, s.leaseTTL)
	if err != nil {
		slog.Warn("sweep lease unavailable", "err", err)
		return
	}
	if !ok {
		return
	}
	if _, err := s.SweepNow(ctx); err != nil {
		slog.Error("sweep failed", "err", err)
	}
}
