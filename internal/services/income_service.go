package services

import (
	"context"
	"fmt"
	"strings"

	"emitrack/internal/core"
	"emitrack/internal/storage"
)

type IncomeService struct {
	store   storage.IncomeStore
	budgets Invalidator
}

func NewIncomeService(store storage.IncomeStore, budgets Invalidator) *IncomeService {
	return &IncomeService{store: store, budgets: budgets}
}

func normalizeIncome(in *core.Income) {
	in.Source = strings.TrimSpace(in.Source)
	in.ApplyIncomeDefaults()
	if in.Frequency == core.OneTime {
		in.IsRecurring = false
	}
	if in.NextPaymentDate != nil && in.NextPaymentDate.IsZero() {
		in.NextPaymentDate = nil
	}
}

func (s *IncomeService) Create(ctx context.Context, in core.Income) (core.Income, error) {
	normalizeIncome(&in)
	if err := in.Validate(); err != nil {
		return core.Income{}, invalid(err)
	}
	created, err := s.store.CreateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	invalidate(s.budgets, in.UserID)
	return created, nil
}

func (s *IncomeService) List(ctx context.Context, userID string) ([]core.Income, error) {
	incomes, err := s.store.ListIncomes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return incomes, nil
}

func (s *IncomeService) Update(ctx context.Context, in core.Income) (core.Income, error) {
	normalizeIncome(&in)
	if err := in.Validate(); err != nil {
		return core.Income{}, invalid(err)
	}
	updated, err := s.store.UpdateIncome(ctx, in)
	if err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	invalidate(s.budgets, in.UserID)
	return updated, nil
}

func (s *IncomeService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteIncome(ctx, userID, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	invalidate(s.budgets, userID)
	return nil
}
