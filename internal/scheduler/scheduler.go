// Package scheduler runs the daily savings streak evaluation.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"finboard/internal/core"
	applog "finboard/internal/log"
)

// Evaluator re-runs the streak rule for a given day.
type Evaluator interface {
	Evaluate(ctx context.Context, today core.Date) error
}

// Scheduler triggers Evaluate on a cron schedule so the streak advances even
// when no request arrives on a given day.
type Scheduler struct {
	cron   *cron.Cron
	target Evaluator
	logger *applog.Logger
	now    func() time.Time
}

// New registers the evaluation job under spec, a standard five-field cron
// expression evaluated in local time.
func New(spec string, target Evaluator, logger *applog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	s := &Scheduler{
		cron:   cron.New(),
		target: target,
		logger: logger.WithComponent(applog.ComponentScheduler),
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce evaluates the streak for today.
func (s *Scheduler) RunOnce(ctx context.Context) {
	today := core.Today(s.now())
	if err := s.target.Evaluate(ctx, today); err != nil {
		s.logger.ErrorContext(ctx, "Streak evaluation failed",
			applog.FieldOperation, applog.OpEvaluate,
			applog.FieldDate, today.String(),
			applog.FieldError, err)
		return
	}
	s.logger.InfoContext(ctx, "Streak evaluated",
		applog.FieldOperation, applog.OpEvaluate,
		applog.FieldDate, today.String())
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// a running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "entries", len(s.cron.Entries()))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.InfoContext(context.Background(), "Scheduler stopped")
	return nil
}

// Next reports the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
