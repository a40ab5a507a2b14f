package core

// scheduler.go keeps the shared record stores warm. Screens still refresh
// explicitly after their own mutations; the scheduler only picks up edits
// made elsewhere (the AppSheet app itself, other admins).

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// NamedRefresher is a store the scheduler can reload.
type NamedRefresher interface {
	Refresher
	Name() string
}

// RefreshScheduler reloads stores on a cron schedule.
type RefreshScheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	stores  []NamedRefresher
}

// NewRefreshScheduler validates spec (standard cron or @every) and registers
// one job that refreshes every store in turn.
func NewRefreshScheduler(spec string, timeout time.Duration, stores ...NamedRefresher) (*RefreshScheduler, error) {
	if timeout <= 0 {
		timeout = time.Minute
	}
	s := &RefreshScheduler{
		cron:    cron.New(),
		timeout: timeout,
		stores:  stores,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("schedule store refresh %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *RefreshScheduler) Start() {
	slog.Info("refresh scheduler started", "stores", len(s.stores))
	s.cron.Start()
}

// Stop halts the schedule and returns a context done when a running job ends.
func (s *RefreshScheduler) Stop() context.Context {
	slog.Info("refresh scheduler stopping")
	return s.cron.Stop()
}

// RunOnce refreshes every store; failures are logged and never stop the loop.
func (s *RefreshScheduler) RunOnce() {
	for _, store := range s.stores {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		start := time.Now()
		err := store.Refresh(ctx)
		cancel()

		if err != nil {
			slog.Warn("scheduled refresh failed", "store", store.Name(), "error", err)
			continue
		}
		slog.Debug("scheduled refresh done", "store", store.Name(), "duration", time.Since(start))
	}
}
