package memory

import (
	"context"
	"fmt"
	"sync"

	"emitrack/internal/core"
	ports "emitrack/internal/sheets"
)

// Writer keeps mirrored ledger rows in memory. It stands in for the Google
// adapter in development and tests.
type Writer struct {
	mu   sync.Mutex
	rows []core.LedgerEntry
}

var _ ports.LedgerWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (w *Writer) AppendEntry(_ context.Context, e core.LedgerEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, e)
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []core.LedgerEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.LedgerEntry(nil), w.rows...)
}
