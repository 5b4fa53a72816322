package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"emitrack/internal/core"
	"emitrack/internal/log"
	"emitrack/internal/storage"
)

// CardPaymentTitleSuffix is appended to the card name on payment entries.
const CardPaymentTitleSuffix = " - Credit Card Payment"

type CardService struct {
	store     storage.CardStore
	publisher SyncPublisher
	budgets   Invalidator
}

func NewCardService(store storage.CardStore, publisher SyncPublisher, budgets Invalidator) *CardService {
	return &CardService{
		store:     store,
		publisher: publisher,
		budgets:   budgets,
	}
}

// Pay settles part of the card's used balance from the bank account. The card
// update and the ledger entry are written together.
func (s *CardService) Pay(ctx context.Context, userID, cardID string, amount core.Money, now time.Time) (core.CreditCard, core.LedgerEntry, error) {
	if err := amount.Validate(); err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, invalid(err)
	}

	card, entry, err := s.store.ApplyCardPayment(ctx, userID, cardID, func(c core.CreditCard) (core.CreditCard, core.LedgerEntry, error) {
		if amount.Cents > c.UsedAmount.Cents {
			return core.CreditCard{}, core.LedgerEntry{}, invalid(ErrOverpayment)
		}
		c.UsedAmount = c.UsedAmount.Sub(amount)
		c.Recompute()
		c.UpdatedAt = now

		paidAt := now
		name := strings.TrimSpace(c.Name)
		return c, core.LedgerEntry{
			UserID:       c.UserID,
			Title:        name + CardPaymentTitleSuffix,
			Amount:       amount,
			DueDay:       now.Day(),
			Category:     core.CategoryCreditCardPayment,
			IsPaid:       true,
			PaidAt:       &paidAt,
			Source:       core.DefaultSource,
			Destination:  name,
			CreditCardID: c.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, nil
	})
	if err != nil {
		return core.CreditCard{}, core.LedgerEntry{}, fmt.Errorf("pay credit card: %w", err)
	}

	slog.InfoContext(ctx, "Credit card payment recorded",
		log.FieldComponent, log.ComponentLedger,
		log.FieldOperation, log.OpPayCard,
		log.FieldUserID, userID,
		log.FieldEntryID, entry.ID,
		log.FieldAmountCents, amount.Cents)

	invalidate(s.budgets, userID)
	publishSync(ctx, s.publisher, entry.ID, userID)
	return card, entry, nil
}

func (s *CardService) List(ctx context.Context, userID string) ([]core.CreditCard, error) {
	cards, err := s.store.ListCreditCards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	return cards, nil
}

func (s *CardService) Create(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Recompute()
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, invalid(err)
	}
	created, err := s.store.CreateCreditCard(ctx, c)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("create credit card: %w", err)
	}
	return created, nil
}

func (s *CardService) Update(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Recompute()
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, invalid(err)
	}
	updated, err := s.store.UpdateCreditCard(ctx, c)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("update credit card: %w", err)
	}
	return updated, nil
}

// Delete removes the card. Loans and entries linked to it are kept and
// detached.
func (s *CardService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteCreditCard(ctx, userID, id); err != nil {
		return fmt.Errorf("delete credit card: %w", err)
	}
	invalidate(s.budgets, userID)
	return nil
}
