package memory

import (
	"context"
	"testing"

	"emitrack/internal/core"
)

func TestWriterAppendEntry(t *testing.T) {
	w := New()

	ref, err := w.AppendEntry(context.Background(), core.LedgerEntry{
		Title:    "Rent",
		Amount:   core.Money{Cents: 120000},
		Category: core.CategoryExpense,
	})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	if _, err := w.AppendEntry(context.Background(), core.LedgerEntry{Title: "", Amount: core.Money{Cents: 1}, Category: core.CategoryExpense}); err == nil {
		t.Fatal("expected validation error for empty title")
	}

	rows := w.Rows()
	if len(rows) != 1 || rows[0].Title != "Rent" {
		t.Fatalf("Rows() = %+v", rows)
	}
}
