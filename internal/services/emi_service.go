package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"emitrack/internal/core"
	"emitrack/internal/emi"
	"emitrack/internal/log"
	"emitrack/internal/storage"
)

// maxPaymentAttempts bounds how often a payment that lost the
// paid-installments race is replayed against a fresh read.
const maxPaymentAttempts = 3

type emiStore interface {
	storage.EMIStore
	GetCreditCard(ctx context.Context, userID, id string) (core.CreditCard, error)
}

// EMIView is a loan as shown to the user: counters reconciled with elapsed
// time, plus its display status and next due date.
type EMIView struct {
	core.EMI
	EffectivePaid int        `json:"effectivePaid"`
	Status        emi.Status `json:"status"`
	NextDueDate   core.Date  `json:"nextDueDate"`
}

type EMIService struct {
	store     emiStore
	publisher SyncPublisher
	budgets   Invalidator
}

// NewEMIService wires the loan workflows. publisher and budgets may be nil.
func NewEMIService(store emiStore, publisher SyncPublisher, budgets Invalidator) *EMIService {
	return &EMIService{
		store:     store,
		publisher: publisher,
		budgets:   budgets,
	}
}

// MarkPaid confirms one installment and files the matching ledger entry in a
// single store transaction. The sync message is published after commit.
func (s *EMIService) MarkPaid(ctx context.Context, userID, emiID string, now time.Time) (core.EMI, core.LedgerEntry, error) {
	pay := func(loan core.EMI) (core.EMI, core.LedgerEntry) {
		return emi.ApplyPayment(loan, now)
	}

	var (
		loan  core.EMI
		entry core.LedgerEntry
		err   error
	)
	for attempt := 1; attempt <= maxPaymentAttempts; attempt++ {
		loan, entry, err = s.store.ApplyEMIPayment(ctx, userID, emiID, pay)
		if !errors.Is(err, storage.ErrConflict) {
			break
		}
		slog.WarnContext(ctx, "EMI payment lost a concurrent update, retrying",
			log.FieldEMIID, emiID,
			"attempt", attempt)
	}
	if err != nil {
		return core.EMI{}, core.LedgerEntry{}, fmt.Errorf("mark emi paid: %w", err)
	}

	slog.InfoContext(ctx, "EMI installment marked paid", log.NewFields().
		WithComponent(log.ComponentEMI).
		WithOperation(log.OpMarkPaid).
		WithUser(userID).
		WithPayment(loan.ID, entry.ID, entry.Amount.Cents, loan.PaidInstallments, loan.RemainingInstallments).
		ToSlice()...)

	invalidate(s.budgets, userID)
	publishSync(ctx, s.publisher, entry.ID, userID)
	return loan, entry, nil
}

// List returns the user's loans with projected counters. It never writes.
func (s *EMIService) List(ctx context.Context, userID string, now time.Time) ([]EMIView, error) {
	loans, err := s.store.ListEMIs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list emis: %w", err)
	}
	views := make([]EMIView, 0, len(loans))
	for _, l := range loans {
		views = append(views, Project(l, now))
	}
	return views, nil
}

// Project decorates a stored loan for display.
func Project(loan core.EMI, now time.Time) EMIView {
	v := EMIView{
		EMI:           loan,
		EffectivePaid: emi.EffectivePaid(loan, now),
		Status:        emi.StatusOf(loan, now),
		NextDueDate:   core.Date{Time: emi.NextDueDate(loan, now)},
	}
	v.RemainingInstallments = emi.ProjectRemaining(loan, now)
	return v
}

func (s *EMIService) Create(ctx context.Context, loan core.EMI) (core.EMI, error) {
	loan.Title = strings.TrimSpace(loan.Title)
	loan.PaidInstallments = 0
	loan.RemainingInstallments = loan.TotalInstallments
	loan.LastPaymentDate = nil
	if err := loan.Validate(); err != nil {
		return core.EMI{}, invalid(err)
	}
	if err := s.checkCard(ctx, loan.UserID, loan.CreditCardID); err != nil {
		return core.EMI{}, err
	}

	created, err := s.store.CreateEMI(ctx, loan)
	if err != nil {
		return core.EMI{}, fmt.Errorf("create emi: %w", err)
	}
	slog.InfoContext(ctx, "EMI created",
		log.FieldComponent, log.ComponentEMI,
		log.FieldEMIID, created.ID,
		log.FieldTitle, created.Title,
		log.FieldAmountCents, created.Amount.Cents)
	invalidate(s.budgets, loan.UserID)
	return created, nil
}

// Update rewrites the editable fields. Installment counts in the input are
// ignored.
func (s *EMIService) Update(ctx context.Context, loan core.EMI) (core.EMI, error) {
	cur, err := s.store.GetEMI(ctx, loan.UserID, loan.ID)
	if err != nil {
		return core.EMI{}, fmt.Errorf("get emi: %w", err)
	}

	cur.Title = strings.TrimSpace(loan.Title)
	cur.Amount = loan.Amount
	cur.DueDay = loan.DueDay
	if !loan.StartDate.IsZero() {
		cur.StartDate = loan.StartDate
	}
	cur.CreditCardID = loan.CreditCardID
	if err := cur.Validate(); err != nil {
		return core.EMI{}, invalid(err)
	}
	if err := s.checkCard(ctx, cur.UserID, cur.CreditCardID); err != nil {
		return core.EMI{}, err
	}

	updated, err := s.store.UpdateEMI(ctx, cur)
	if err != nil {
		return core.EMI{}, fmt.Errorf("update emi: %w", err)
	}
	invalidate(s.budgets, loan.UserID)
	return updated, nil
}

// ChangeDueDate corrects the day of month installments fall due.
func (s *EMIService) ChangeDueDate(ctx context.Context, userID, id string, dueDay int) (core.EMI, error) {
	if dueDay < 1 || dueDay > 31 {
		return core.EMI{}, invalid(core.ErrInvalidDueDay)
	}
	cur, err := s.store.GetEMI(ctx, userID, id)
	if err != nil {
		return core.EMI{}, fmt.Errorf("get emi: %w", err)
	}
	cur.DueDay = dueDay

	updated, err := s.store.UpdateEMI(ctx, cur)
	if err != nil {
		return core.EMI{}, fmt.Errorf("change emi due date: %w", err)
	}
	invalidate(s.budgets, userID)
	return updated, nil
}

func (s *EMIService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteEMI(ctx, userID, id); err != nil {
		return fmt.Errorf("delete emi: %w", err)
	}
	invalidate(s.budgets, userID)
	return nil
}

func (s *EMIService) checkCard(ctx context.Context, userID, cardID string) error {
	if cardID == "" {
		return nil
	}
	if _, err := s.store.GetCreditCard(ctx, userID, cardID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return invalid(fmt.Errorf("credit card %s does not exist", cardID))
		}
		return fmt.Errorf("get credit card: %w", err)
	}
	return nil
}
