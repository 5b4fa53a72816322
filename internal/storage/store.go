package storage

import (
	"context"
	"errors"
	"time"

	"emitrack/internal/core"
)

var (
	// ErrNotFound is returned when no row owned by the user matches the id.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a guarded write lost a race with another writer.
	ErrConflict = errors.New("concurrent modification")
)

// PaymentFunc computes the post-payment loan and its ledger entry from the
// loan as currently stored.
type PaymentFunc func(core.EMI) (core.EMI, core.LedgerEntry)

// CardPaymentFunc computes the post-payment card and its ledger entry. An
// error aborts the transaction.
type CardPaymentFunc func(core.CreditCard) (core.CreditCard, core.LedgerEntry, error)

// Ports used by the services. Every read and write is scoped to the owning user
// except GetLedgerEntry, which the sync worker uses by id only.
type (
	UserStore interface {
		EnsureUser(ctx context.Context, externalID string) (core.User, error)
	}

	EMIStore interface {
		CreateEMI(ctx context.Context, e core.EMI) (core.EMI, error)
		GetEMI(ctx context.Context, userID, id string) (core.EMI, error)
		ListEMIs(ctx context.Context, userID string) ([]core.EMI, error)
		// UpdateEMI rewrites the editable fields only; installment counts are
		// never changed by an update.
		UpdateEMI(ctx context.Context, e core.EMI) (core.EMI, error)
		DeleteEMI(ctx context.Context, userID, id string) error
		// ApplyEMIPayment loads the loan, applies fn and persists the updated
		// loan together with the new ledger entry in one transaction.
		ApplyEMIPayment(ctx context.Context, userID, id string, fn PaymentFunc) (core.EMI, core.LedgerEntry, error)
	}

	LedgerStore interface {
		CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
		GetLedgerEntry(ctx context.Context, id string) (core.LedgerEntry, error)
		// ListLedgerEntries returns entries dated in [from, to). Zero bounds are open.
		ListLedgerEntries(ctx context.Context, userID string, from, to time.Time) ([]core.LedgerEntry, error)
		UpdateLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
		DeleteLedgerEntry(ctx context.Context, userID, id string) error
	}

	IncomeStore interface {
		CreateIncome(ctx context.Context, in core.Income) (core.Income, error)
		ListIncomes(ctx context.Context, userID string) ([]core.Income, error)
		UpdateIncome(ctx context.Context, in core.Income) (core.Income, error)
		DeleteIncome(ctx context.Context, userID, id string) error
		ListRecurringIncomesDue(ctx context.Context, now time.Time) ([]core.Income, error)
		AdvanceIncome(ctx context.Context, id string, next core.Date) error
	}

	CardStore interface {
		CreateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
		GetCreditCard(ctx context.Context, userID, id string) (core.CreditCard, error)
		ListCreditCards(ctx context.Context, userID string) ([]core.CreditCard, error)
		UpdateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error)
		DeleteCreditCard(ctx context.Context, userID, id string) error
		ApplyCardPayment(ctx context.Context, userID, id string, fn CardPaymentFunc) (core.CreditCard, core.LedgerEntry, error)
	}

	// Store is the full persistence port implemented by every backend.
	Store interface {
		UserStore
		EMIStore
		LedgerStore
		IncomeStore
		CardStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// EntryDate is the instant a ledger entry is filed under when listing by month.
func EntryDate(e core.LedgerEntry) time.Time {
	if e.PaidAt != nil {
		return *e.PaidAt
	}
	return e.CreatedAt
}
