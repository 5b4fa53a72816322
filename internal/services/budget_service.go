package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"emitrack/internal/cache"
	"emitrack/internal/core"
	"emitrack/internal/emi"
	"emitrack/internal/storage"
)

type budgetStore interface {
	ListIncomes(ctx context.Context, userID string) ([]core.Income, error)
	ListLedgerEntries(ctx context.Context, userID string, from, to time.Time) ([]core.LedgerEntry, error)
	ListEMIs(ctx context.Context, userID string) ([]core.EMI, error)
}

// BudgetService derives the monthly budget. Results are cached per user and
// month until the user writes again or the entry expires.
type BudgetService struct {
	store budgetStore
	cache *cache.LRUCache[core.MonthlyBudget]
}

var _ Invalidator = (*BudgetService)(nil)

// NewBudgetService creates the service. A nil cache disables caching.
func NewBudgetService(store budgetStore, c *cache.LRUCache[core.MonthlyBudget]) *BudgetService {
	return &BudgetService{store: store, cache: c}
}

func budgetKey(userID string, year int, month time.Month) string {
	return fmt.Sprintf("%s|%04d-%02d", userID, year, int(month))
}

// Monthly returns the budget for now's calendar month.
func (s *BudgetService) Monthly(ctx context.Context, userID string, now time.Time) (core.MonthlyBudget, error) {
	key := budgetKey(userID, now.Year(), now.Month())
	if s.cache != nil {
		if b, ok := s.cache.Get(key); ok {
			return b, nil
		}
	}

	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	var (
		incomes []core.Income
		entries []core.LedgerEntry
		loans   []core.EMI
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = s.store.ListIncomes(gctx, userID)
		if err != nil {
			return fmt.Errorf("list incomes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		entries, err = s.store.ListLedgerEntries(gctx, userID, from, to)
		if err != nil {
			return fmt.Errorf("list ledger entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		loans, err = s.store.ListEMIs(gctx, userID)
		if err != nil {
			return fmt.Errorf("list emis: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("monthly budget: %w", err)
	}

	b := ComputeBudget(incomes, entries, loans, now)
	if s.cache != nil {
		s.cache.Set(key, b)
	}
	return b, nil
}

// Invalidate drops every cached month for the user.
func (s *BudgetService) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(userID + "|")
	}
}

// ComputeBudget sums the month's figures. Every income counts. Ledger entries
// count when they fall in now's month and move cash out of the user's
// accounts. A loan counts while its installment is still outstanding this
// month; once paid it shows up as its emi ledger entry instead.
func ComputeBudget(incomes []core.Income, entries []core.LedgerEntry, loans []core.EMI, now time.Time) core.MonthlyBudget {
	b := core.MonthlyBudget{
		Year:            now.Year(),
		Month:           int(now.Month()),
		OutstandingEMIs: []string{},
	}

	for _, in := range incomes {
		b.TotalIncome = b.TotalIncome.Add(in.Amount)
	}
	for _, e := range entries {
		d := storage.EntryDate(e).In(now.Location())
		if d.Year() != now.Year() || d.Month() != now.Month() {
			continue
		}
		if e.Category.IsCashOutflow() {
			b.TotalExpenses = b.TotalExpenses.Add(e.Amount)
		}
	}
	for _, l := range loans {
		if emi.IsOutstandingThisMonth(l, now) {
			b.TotalEMIs = b.TotalEMIs.Add(l.Amount)
			b.OutstandingEMIs = append(b.OutstandingEMIs, l.ID)
		}
	}

	b.ActiveEMIAmount = emi.TotalActiveAmount(loans, now)
	b.Balance = b.TotalIncome.Sub(b.TotalExpenses).Sub(b.TotalEMIs)
	return b
}
