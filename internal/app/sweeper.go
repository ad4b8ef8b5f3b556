package app

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/BolvicBolvicovic/feather/pkg/logger"
)

// startSweeper evicts idle sessions on the sessions.sweep_cron schedule.
// An empty expression disables it.
func (a *App) startSweeper(ctx context.Context) (context.CancelFunc, error) {
	expr := a.cfg.Sessions.SweepCron
	if expr == "" {
		logger.Info("session_sweeper_disabled")
		return func() {}, nil
	}
	if !gronx.IsValid(expr) {
		return nil, fmt.Errorf("invalid session sweep cron expression: %s", expr)
	}
	ctx2, cancel := context.WithCancel(ctx)
	go a.runSweeper(ctx2, expr)
	logger.Info("session_sweeper_started", "cron", expr, "idle_ttl", a.cfg.Sessions.IdleTTL.Duration().String())
	return cancel, nil
}

func (a *App) runSweeper(ctx context.Context, expr string) {
	for {
		next, err := gronx.NextTickAfter(expr, time.Now().UTC(), false)
		wait := time.Until(next)
		if err != nil {
			logger.Error("session_sweeper_nexttick_failed", "cron", expr, "error", err)
			wait = 30 * time.Second
		}
		select {
		case <-ctx.Done():
			logger.Info("session_sweeper_stopping")
			return
		case <-time.After(wait):
		}
		if err == nil {
			a.sweepOnce(time.Now())
		}
	}
}

// sweepOnce drops sessions idle for longer than sessions.idle_ttl from
// memory and from the store.
func (a *App) sweepOnce(now time.Time) int {
	ttl := a.cfg.Sessions.IdleTTL.Duration()
	n := a.registry.Sweep(ttl)
	if a.store != nil {
		stored, err := a.store.Expire(now.Add(-ttl))
		if err != nil {
			logger.Error("session_store_expire_failed", "error", err)
		}
		if stored > n {
			n = stored
		}
	}
	a.metrics.SetSessions(a.registry.Len())
	if n > 0 {
		logger.Info("sessions_swept", "count", n, "remaining", a.registry.Len())
	}
	return n
}
