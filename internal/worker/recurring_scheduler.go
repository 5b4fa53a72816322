package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"emitrack/internal/log"
)

// IncomeProcessor advances recurring incomes whose date has come.
type IncomeProcessor interface {
	ProcessDueIncomes(ctx context.Context, now time.Time) (int, error)
}

// RecurringScheduler runs the income processor on a cron schedule. Runs never
// overlap; a tick that fires while a pass is still going is skipped.
type RecurringScheduler struct {
	proc     IncomeProcessor
	schedule cron.Schedule
	cron     *cron.Cron
	now      func() time.Time

	mu      sync.Mutex
	started bool
}

// NewRecurringScheduler parses a standard cron expression or descriptor such
// as "@every 1h" or "0 6 * * *".
func NewRecurringScheduler(proc IncomeProcessor, expr string) (*RecurringScheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return &RecurringScheduler{
		proc:     proc,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		now:      time.Now,
	}, nil
}

// RunOnce performs a single pass and logs the outcome.
func (s *RecurringScheduler) RunOnce(ctx context.Context) (int, error) {
	start := s.now()
	count, err := s.proc.ProcessDueIncomes(ctx, start)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring income processing failed",
			log.FieldComponent, log.ComponentRecurring,
			log.FieldError, err)
		return count, err
	}
	slog.InfoContext(ctx, "Recurring income processing complete",
		log.FieldComponent, log.ComponentRecurring,
		"incomes_advanced", count,
		"next_run", s.schedule.Next(start).Format(time.RFC3339))
	return count, nil
}

// Start runs one pass immediately and then hands off to cron. ctx is passed
// to every scheduled pass.
func (s *RecurringScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	_, _ = s.RunOnce(ctx)

	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		_, _ = s.RunOnce(ctx)
	}))
	s.cron.Start()
}

// Stop halts scheduling. The returned context is done once a running pass
// has finished.
func (s *RecurringScheduler) Stop() context.Context {
	return s.cron.Stop()
}
