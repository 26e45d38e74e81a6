package core

// sweeper.go garbage-collects abandoned import sessions.
//
// Each pass:
//  1. Aborts live sessions idle for longer than the TTL (their staged file is
//     deleted by the abort)
//  2. Deletes staged files older than the TTL that no live session references,
//     which covers files left behind by a restart
//
// The sweeper is long-running and context-aware. Failures are logged and the
// next pass retries; they never stop the service.

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/subtrack/internal/metrics"
)

// SweepConfig controls the staging sweeper.
type SweepConfig struct {
	TTL      time.Duration // Idle time before a session is abandoned (default: 1h)
	Interval time.Duration // How often to run (default: 5m)
}

// SweepReport counts what one pass removed.
type SweepReport struct {
	SessionsExpired int
	OrphansDeleted  int
}

// StartSweeper runs a sweep immediately, then every cfg.Interval, until ctx
// is cancelled.
func (s *Service) StartSweeper(ctx context.Context, cfg SweepConfig) {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}

	slog.Info("staging sweeper started",
		"ttl", cfg.TTL.String(),
		"interval", cfg.Interval.String(),
	)

	s.runSweep(ctx, cfg.TTL)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("staging sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx, cfg.TTL)
		}
	}
}

func (s *Service) runSweep(ctx context.Context, ttl time.Duration) {
	start := time.Now()
	report, err := s.Sweep(ctx, ttl)
	if err != nil {
		slog.Error("staging sweep failed", "error", err)
	}
	if report.SessionsExpired > 0 || report.OrphansDeleted > 0 {
		slog.Info("staging sweep completed",
			"sessions_expired", report.SessionsExpired,
			"orphans_deleted", report.OrphansDeleted,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Sweep performs one pass with the given TTL.
func (s *Service) Sweep(ctx context.Context, ttl time.Duration) (SweepReport, error) {
	var report SweepReport
	cutoff := s.now().Add(-ttl)

	for _, handle := range s.sessions.Idle(cutoff) {
		session, release, err := s.sessions.begin(handle)
		if err != nil {
			// Busy sessions are in use; gone sessions finished on their own.
			continue
		}
		if session.UpdatedAt.Before(cutoff) && s.abort(ctx, session, "expired") == nil {
			report.SessionsExpired++
		}
		release()
	}

	files, err := s.staging.ListExpired(ctx, cutoff)
	if err != nil {
		return report, err
	}
	for _, file := range files {
		if s.sessions.Has(file.Handle) {
			continue
		}
		if err := s.staging.Delete(ctx, file); err != nil {
			slog.Warn("failed to delete orphaned staged file", "handle", file.Handle, "error", err)
			continue
		}
		metrics.StagedFilesSwept.Inc()
		report.OrphansDeleted++
	}

	return report, nil
}
