package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"emitrack/internal/core"
	"emitrack/internal/log"
)

type recurringStore interface {
	ListRecurringIncomesDue(ctx context.Context, now time.Time) ([]core.Income, error)
	AdvanceIncome(ctx context.Context, id string, next core.Date) error
}

// RecurringProcessor rolls recurring incomes forward once their payment date
// has been reached.
type RecurringProcessor struct {
	store   recurringStore
	budgets Invalidator
}

func NewRecurringProcessor(store recurringStore, budgets Invalidator) *RecurringProcessor {
	return &RecurringProcessor{store: store, budgets: budgets}
}

// ProcessDueIncomes advances every due income past today and returns how many
// were advanced. A failure on one income is logged and does not stop the run.
func (p *RecurringProcessor) ProcessDueIncomes(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	due, err := p.store.ListRecurringIncomesDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list recurring incomes due: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring incomes",
		log.FieldComponent, log.ComponentRecurring,
		"due", len(due),
		"processing_date", now.Format("2006-01-02"))

	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	processed := 0
	for _, in := range due {
		if in.NextPaymentDate == nil || in.Frequency == core.OneTime {
			continue
		}
		stepper, err := GetFrequencyStepper(in.Frequency)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping income with unknown frequency",
				"income_id", in.ID,
				log.FieldError, err)
			continue
		}

		next := *in.NextPaymentDate
		for !next.After(today.Time) {
			next = stepper.Next(next)
		}

		if err := p.store.AdvanceIncome(ctx, in.ID, next); err != nil {
			slog.ErrorContext(ctx, "Failed to advance recurring income",
				"income_id", in.ID,
				log.FieldError, err)
			continue
		}
		invalidate(p.budgets, in.UserID)

		processed++
		slog.InfoContext(ctx, "Advanced recurring income",
			"income_id", in.ID,
			"source", in.Source,
			"frequency", in.Frequency,
			"next_payment_date", next.String())
	}

	slog.InfoContext(ctx, "Recurring income processing complete",
		"processed", processed,
		"total_checked", len(due))

	return processed, nil
}
