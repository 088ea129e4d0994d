package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/actlog/internal/github"
	"github.com/five82/actlog/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
	runsPerPage         = 30
)

// RunLister is what the poller needs from the API.
type RunLister interface {
	ListRuns(ctx context.Context, owner, repo string, query github.RunQuery) ([]github.WorkflowRun, error)
}

// StartPoller launches a background goroutine that refreshes the store. After
// consecutive failures the delay grows exponentially up to maxBackoff. It
// returns immediately.
func StartPoller(ctx context.Context, store *state.Store, api RunLister, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			refresh(ctx, store, api, logger)
			timer.Reset(calculateBackoff(store.Snapshot().ConsecutiveFailures, interval))
		}
	}()
}

// calculateBackoff doubles base for every consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	delay := base
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

func refresh(ctx context.Context, store *state.Store, api RunLister, logger *slog.Logger) {
	snap := store.Snapshot()
	runs, err := api.ListRuns(ctx, snap.Owner, snap.Repo, github.RunQuery{PerPage: runsPerPage})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		store.Update(nil, err)
		logger.Warn("runs poll failed", "repo", snap.Owner+"/"+snap.Repo, "error", err)
		return
	}
	store.Update(runs, nil)
	logger.Debug("runs polled", "repo", snap.Owner+"/"+snap.Repo, "runs", len(runs))
}
