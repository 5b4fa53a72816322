package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"emitrack/internal/core"
	"emitrack/internal/log"
	"emitrack/internal/storage"
)

// LedgerService handles manually entered expenses and transfers.
type LedgerService struct {
	store     storage.LedgerStore
	publisher SyncPublisher
	budgets   Invalidator
}

func NewLedgerService(store storage.LedgerStore, publisher SyncPublisher, budgets Invalidator) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		budgets:   budgets,
	}
}

func applyEntryDefaults(e *core.LedgerEntry, now time.Time) {
	e.Title = strings.TrimSpace(e.Title)
	if e.Category == "" {
		e.Category = core.CategoryExpense
	}
	if strings.TrimSpace(e.Source) == "" {
		e.Source = core.DefaultSource
	}
	if e.IsPaid && e.PaidAt == nil {
		paidAt := now
		e.PaidAt = &paidAt
	}
	if !e.IsPaid {
		e.PaidAt = nil
	}
}

// Create stores the entry and announces it to the sheets mirror.
func (s *LedgerService) Create(ctx context.Context, e core.LedgerEntry, now time.Time) (core.LedgerEntry, error) {
	applyEntryDefaults(&e, now)
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, invalid(err)
	}

	created, err := s.store.CreateLedgerEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("create ledger entry: %w", err)
	}
	slog.InfoContext(ctx, "Ledger entry created",
		log.FieldComponent, log.ComponentLedger,
		log.FieldEntryID, created.ID,
		log.FieldTitle, created.Title,
		log.FieldAmountCents, created.Amount.Cents)

	invalidate(s.budgets, e.UserID)
	publishSync(ctx, s.publisher, created.ID, created.UserID)
	return created, nil
}

// List returns entries for a year, a single month of it, or everything when
// year is zero.
func (s *LedgerService) List(ctx context.Context, userID string, year, month int, loc *time.Location) ([]core.LedgerEntry, error) {
	if month != 0 && (month < 1 || month > 12) {
		return nil, invalid(core.ErrInvalidMonth)
	}
	if loc == nil {
		loc = time.UTC
	}

	var from, to time.Time
	switch {
	case year == 0:
	case month == 0:
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		to = from.AddDate(1, 0, 0)
	default:
		from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, 0)
	}

	entries, err := s.store.ListLedgerEntries(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

func (s *LedgerService) Update(ctx context.Context, e core.LedgerEntry, now time.Time) (core.LedgerEntry, error) {
	applyEntryDefaults(&e, now)
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, invalid(err)
	}
	updated, err := s.store.UpdateLedgerEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("update ledger entry: %w", err)
	}
	invalidate(s.budgets, e.UserID)
	return updated, nil
}

func (s *LedgerService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteLedgerEntry(ctx, userID, id); err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	invalidate(s.budgets, userID)
	return nil
}
