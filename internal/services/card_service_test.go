package services

import (
	"context"
	"errors"
	"testing"

	"emitrack/internal/core"
	"emitrack/internal/storage"
	"emitrack/internal/storage/memory"
)

func TestCardService_Pay(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	u := newUser(t, store, "kim")
	pub := &recordingPublisher{}
	svc := NewCardService(store, pub, nil)

	card, err := svc.Create(ctx, core.CreditCard{
		UserID:     u.ID,
		Name:       "Visa ",
		Limit:      core.Money{Cents: 100000},
		UsedAmount: core.Money{Cents: 40000},
		DueDay:     15,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if card.AvailableAmount.Cents != 60000 {
		t.Fatalf("AvailableAmount = %d", card.AvailableAmount.Cents)
	}

	tests := []struct {
		name     string
		amount   int64
		wantErr  error
		wantUsed int64
	}{
		{name: "zero amount", amount: 0, wantErr: core.ErrInvalidAmount, wantUsed: 40000},
		{name: "overpayment", amount: 40001, wantErr: ErrOverpayment, wantUsed: 40000},
		{name: "partial payment", amount: 15000, wantUsed: 25000},
		{name: "settles the rest", amount: 25000, wantUsed: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			published := len(pub.published())
			got, entry, err := svc.Pay(ctx, u.ID, card.ID, core.Money{Cents: tt.amount}, date(2024, 6, 3))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("Pay() error = %v, want %v", err, tt.wantErr)
				}
				if len(pub.published()) != published {
					t.Error("rejected payment was published")
				}
			} else {
				if err != nil {
					t.Fatalf("Pay() error = %v", err)
				}
				if got.UsedAmount.Cents != tt.wantUsed || got.AvailableAmount.Cents != 100000-tt.wantUsed {
					t.Errorf("card = used %d available %d", got.UsedAmount.Cents, got.AvailableAmount.Cents)
				}
				if entry.Title != "Visa - Credit Card Payment" || entry.Category != core.CategoryCreditCardPayment {
					t.Errorf("entry = %+v", entry)
				}
				if entry.Destination != "Visa" || entry.Source != core.DefaultSource || !entry.IsPaid {
					t.Errorf("entry routing = %s -> %s paid=%v", entry.Source, entry.Destination, entry.IsPaid)
				}
			}

			stored, _ := store.GetCreditCard(ctx, u.ID, card.ID)
			if stored.UsedAmount.Cents != tt.wantUsed {
				t.Errorf("stored used = %d, want %d", stored.UsedAmount.Cents, tt.wantUsed)
			}
		})
	}
}

func TestCardService_PayNotOwned(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	owner := newUser(t, store, "owner")
	other := newUser(t, store, "other")
	svc := NewCardService(store, nil, nil)

	card, _ := svc.Create(ctx, core.CreditCard{UserID: owner.ID, Name: "Amex", Limit: core.Money{Cents: 1000}, UsedAmount: core.Money{Cents: 500}, DueDay: 1})
	_, _, err := svc.Pay(ctx, other.ID, card.ID, core.Money{Cents: 100}, date(2024, 6, 3))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Pay() error = %v, want ErrNotFound", err)
	}
}

func TestCardService_CreateRejectsOverLimit(t *testing.T) {
	svc := NewCardService(memory.New(), nil, nil)
	_, err := svc.Create(context.Background(), core.CreditCard{
		UserID:     "u",
		Name:       "Visa",
		Limit:      core.Money{Cents: 100},
		UsedAmount: core.Money{Cents: 200},
		DueDay:     1,
	})
	if !errors.Is(err, core.ErrOverLimit) {
		t.Fatalf("Create() error = %v, want ErrOverLimit", err)
	}
}
