// Package memory is an in-process storage.Store used for local development
// and tests. Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"emitrack/internal/core"
	"emitrack/internal/storage"
)

type Store struct {
	mu      sync.Mutex
	users   map[string]core.User // by external id
	emis    map[string]core.EMI
	entries map[string]core.LedgerEntry
	incomes map[string]core.Income
	cards   map[string]core.CreditCard
	nowFunc func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:   map[string]core.User{},
		emis:    map[string]core.EMI{},
		entries: map[string]core.LedgerEntry{},
		incomes: map[string]core.Income{},
		cards:   map[string]core.CreditCard{},
		nowFunc: time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) EnsureUser(_ context.Context, externalID string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[externalID]; ok {
		return u, nil
	}
	u := core.User{ID: uuid.NewString(), ExternalID: externalID, CreatedAt: s.nowFunc().UTC()}
	s.users[externalID] = u
	return u, nil
}

// EMIs

func (s *Store) CreateEMI(_ context.Context, e core.EMI) (core.EMI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	s.emis[e.ID] = cloneEMI(e)
	return e, nil
}

func (s *Store) GetEMI(_ context.Context, userID, id string) (core.EMI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emis[id]
	if !ok || e.UserID != userID {
		return core.EMI{}, storage.ErrNotFound
	}
	return cloneEMI(e), nil
}

func (s *Store) ListEMIs(_ context.Context, userID string) ([]core.EMI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.EMI
	for _, e := range s.emis {
		if e.UserID == userID {
			out = append(out, cloneEMI(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDay != out[j].DueDay {
			return out[i].DueDay < out[j].DueDay
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateEMI(_ context.Context, e core.EMI) (core.EMI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.emis[e.ID]
	if !ok || cur.UserID != e.UserID {
		return core.EMI{}, storage.ErrNotFound
	}
	cur.Title = e.Title
	cur.Amount = e.Amount
	cur.DueDay = e.DueDay
	cur.StartDate = e.StartDate
	cur.CreditCardID = e.CreditCardID
	cur.UpdatedAt = s.nowFunc().UTC()
	s.emis[e.ID] = cur
	return cloneEMI(cur), nil
}

func (s *Store) DeleteEMI(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.emis[id]
	if !ok || e.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.emis, id)
	return nil
}

func (s *Store) ApplyEMIPayment(_ context.Context, userID, id string, fn storage.PaymentFunc) (core.EMI, core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.emis[id]
	if !ok || cur.UserID != userID {
		return core.EMI{}, core.LedgerEntry{}, storage.ErrNotFound
	}

	updated, entry := fn(cloneEMI(cur))
	entry.UserID = cur.UserID
	entry = s.insertEntryLocked(entry)
	s.emis[id] = cloneEMI(updated)
	return cloneEMI(updated), entry, nil
}

// Ledger entries

func (s *Store) CreateLedgerEntry(_ context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertEntryLocked(e), nil
}

func (s *Store) insertEntryLocked(e core.LedgerEntry) core.LedgerEntry {
	now := s.nowFunc().UTC()
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.entries[e.ID] = cloneEntry(e)
	return cloneEntry(e)
}

func (s *Store) GetLedgerEntry(_ context.Context, id string) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.LedgerEntry{}, storage.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *Store) ListLedgerEntries(_ context.Context, userID string, from, to time.Time) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerEntry
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		d := storage.EntryDate(e)
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && !d.Before(to) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return storage.EntryDate(out[i]).After(storage.EntryDate(out[j]))
	})
	return out, nil
}

func (s *Store) UpdateLedgerEntry(_ context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID]
	if !ok || cur.UserID != e.UserID {
		return core.LedgerEntry{}, storage.ErrNotFound
	}
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = s.nowFunc().UTC()
	s.entries[e.ID] = cloneEntry(e)
	return e, nil
}

func (s *Store) DeleteLedgerEntry(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Incomes

func (s *Store) CreateIncome(_ context.Context, in core.Income) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc().UTC()
	in.ID = uuid.NewString()
	in.CreatedAt, in.UpdatedAt = now, now
	s.incomes[in.ID] = cloneIncome(in)
	return in, nil
}

func (s *Store) ListIncomes(_ context.Context, userID string) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Income
	for _, in := range s.incomes {
		if in.UserID == userID {
			out = append(out, cloneIncome(in))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateIncome(_ context.Context, in core.Income) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.incomes[in.ID]
	if !ok || cur.UserID != in.UserID {
		return core.Income{}, storage.ErrNotFound
	}
	in.CreatedAt = cur.CreatedAt
	in.UpdatedAt = s.nowFunc().UTC()
	s.incomes[in.ID] = cloneIncome(in)
	return in, nil
}

func (s *Store) DeleteIncome(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.incomes[id]
	if !ok || in.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.incomes, id)
	return nil
}

func (s *Store) ListRecurringIncomesDue(_ context.Context, now time.Time) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	var out []core.Income
	for _, in := range s.incomes {
		if !in.IsRecurring || in.Frequency == core.OneTime || in.NextPaymentDate == nil {
			continue
		}
		if in.NextPaymentDate.After(today.Time) {
			continue
		}
		out = append(out, cloneIncome(in))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextPaymentDate.Before(out[j].NextPaymentDate.Time) })
	return out, nil
}

func (s *Store) AdvanceIncome(_ context.Context, id string, next core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.incomes[id]
	if !ok {
		return storage.ErrNotFound
	}
	in.NextPaymentDate = &next
	in.UpdatedAt = s.nowFunc().UTC()
	s.incomes[id] = in
	return nil
}

// Credit cards

func (s *Store) CreateCreditCard(_ context.Context, c core.CreditCard) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now
	c.Recompute()
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) GetCreditCard(_ context.Context, userID, id string) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.UserID != userID {
		return core.CreditCard{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCreditCards(_ context.Context, userID string) ([]core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CreditCard
	for _, c := range s.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateCreditCard(_ context.Context, c core.CreditCard) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cards[c.ID]
	if !ok || cur.UserID != c.UserID {
		return core.CreditCard{}, storage.ErrNotFound
	}
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = s.nowFunc().UTC()
	c.Recompute()
	s.cards[c.ID] = c
	return c, nil
}

// DeleteCreditCard detaches loans and entries that pointed at the card.
func (s *Store) DeleteCreditCard(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok || c.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.cards, id)
	for k, e := range s.emis {
		if e.CreditCardID == id {
			e.CreditCardID = ""
			s.emis[k] = e
		}
	}
	for k, e := range s.entries {
		if e.CreditCardID == id {
			e.CreditCardID = ""
			s.entries[k] = e
		}
	}
	return nil
}

func (s *Store) ApplyCardPayment(_ context.Context, userID, id string, fn storage.CardPaymentFunc) (core.CreditCard, core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cards[id]
	if !ok || cur.UserID != userID {
		return core.CreditCard{}, core.LedgerEntry{}, storage.ErrNotFound
	}

	updated, entry, err := fn(cur)
	if err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, err
	}
	updated.Recompute()
	entry.UserID = cur.UserID
	entry = s.insertEntryLocked(entry)
	s.cards[id] = updated
	return updated, entry, nil
}

func cloneEMI(e core.EMI) core.EMI {
	if e.LastPaymentDate != nil {
		t := *e.LastPaymentDate
		e.LastPaymentDate = &t
	}
	return e
}

func cloneEntry(e core.LedgerEntry) core.LedgerEntry {
	if e.PaidAt != nil {
		t := *e.PaidAt
		e.PaidAt = &t
	}
	return e
}

func cloneIncome(in core.Income) core.Income {
	if in.NextPaymentDate != nil {
		d := *in.NextPaymentDate
		in.NextPaymentDate = &d
	}
	return in
}
