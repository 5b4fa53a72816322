package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"emitrack/internal/amqp"
	"emitrack/internal/core"
	"emitrack/internal/sheets"
	"emitrack/internal/storage"
)

// EntryReader is the slice of storage the worker needs.
type EntryReader interface {
	GetLedgerEntry(ctx context.Context, id string) (core.LedgerEntry, error)
}

// SyncWorker mirrors ledger entries announced over AMQP into the spreadsheet.
type SyncWorker struct {
	entries EntryReader
	sheets  sheets.LedgerWriter
}

func NewSyncWorker(entries EntryReader, writer sheets.LedgerWriter) *SyncWorker {
	return &SyncWorker{
		entries: entries,
		sheets:  writer,
	}
}

// HandleSyncMessage loads the entry and appends it. An entry deleted before
// the worker saw it is skipped so the message is acked rather than requeued
// forever.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing ledger sync message",
		"ledger_entry_id", msg.ID,
		"user_id", msg.UserID)

	entry, err := w.entries.GetLedgerEntry(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Ledger entry gone before sync, skipping", "ledger_entry_id", msg.ID)
			return nil
		}
		return fmt.Errorf("get ledger entry from storage: %w", err)
	}

	ref, err := w.sheets.AppendEntry(ctx, entry)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully synced ledger entry",
		"ledger_entry_id", entry.ID,
		"sheets_ref", ref,
		"title", entry.Title,
		"amount_cents", entry.Amount.Cents)
	return nil
}
