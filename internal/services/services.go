// Package services orchestrates the domain rules in core and emi over the
// storage port, the AMQP publisher and the budget cache.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"emitrack/internal/log"
)

// ErrInvalidInput marks errors caused by the caller's data rather than by the
// system. The concrete core validation error is wrapped alongside it.
var ErrInvalidInput = errors.New("invalid input")

// ErrOverpayment is returned when a card payment exceeds the used amount.
var ErrOverpayment = errors.New("payment amount cannot exceed the used amount")

// SyncPublisher announces new ledger entries to the sheets worker.
type SyncPublisher interface {
	PublishLedgerSync(ctx context.Context, entryID, userID string) error
}

// Invalidator drops derived data cached for a user after one of their writes.
type Invalidator interface {
	Invalidate(userID string)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// publishSync never fails the caller: the entry is already committed and the
// mirror is best effort.
func publishSync(ctx context.Context, p SyncPublisher, entryID, userID string) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping ledger sync",
			log.FieldEntryID, entryID)
		return
	}
	if err := p.PublishLedgerSync(ctx, entryID, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger sync message",
			log.FieldEntryID, entryID,
			log.FieldUserID, userID,
			log.FieldError, err)
	}
}

func invalidate(inv Invalidator, userID string) {
	if inv != nil {
		inv.Invalidate(userID)
	}
}
