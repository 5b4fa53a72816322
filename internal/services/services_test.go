package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"emitrack/internal/core"
	"emitrack/internal/storage/memory"
)

// recordingPublisher captures sync announcements.
type recordingPublisher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (p *recordingPublisher) PublishLedgerSync(_ context.Context, entryID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, entryID)
	return p.err
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

type countingInvalidator struct {
	mu    sync.Mutex
	users map[string]int
}

func (c *countingInvalidator) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.users == nil {
		c.users = map[string]int{}
	}
	c.users[userID]++
}

func (c *countingInvalidator) count(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users[userID]
}

func newUser(t *testing.T, store *memory.Store, sub string) core.User {
	t.Helper()
	u, err := store.EnsureUser(context.Background(), sub)
	if err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	return u
}

func loanFor(userID string) core.EMI {
	return core.EMI{
		UserID:            userID,
		Title:             "  Car Loan ",
		Amount:            core.Money{Cents: 25000},
		DueDay:            10,
		StartDate:         core.NewDate(2024, 1, 1),
		TotalInstallments: 12,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}
