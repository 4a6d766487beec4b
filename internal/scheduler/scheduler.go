// Package scheduler runs a job on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorhill/cronexpr"
)

// ErrNoNextRun is returned when the expression has no future activation.
var ErrNoNextRun = errors.New("cron expression has no next run")

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler fires a Job at each activation of a cron expression. Runs never
// overlap: the next activation is computed after the previous run returns.
type Scheduler struct {
	spec   string
	expr   *cronexpr.Expression
	job    Job
	logger *slog.Logger
	now    func() time.Time
}

// New parses spec and returns a Scheduler for job. Standard five-field
// expressions, optional seconds and year fields, and macros such as @hourly
// are accepted.
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("scheduler: nil job")
	}
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		spec:   spec,
		expr:   expr,
		job:    job,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Next returns the first activation strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.expr.Next(t)
}

// Run blocks, firing the job at each activation until ctx is done. Job
// errors are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "cron", s.spec)
	for {
		now := s.now()
		next := s.expr.Next(now)
		if next.IsZero() {
			return ErrNoNextRun
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped", "cron", s.spec)
			return ctx.Err()
		case <-timer.C:
		}

		start := s.now()
		if err := s.job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "cron", s.spec, "err", err)
			continue
		}
		s.logger.Debug("scheduled job finished", "cron", s.spec, "duration", time.Since(start))
	}
}
