package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2024-03-15"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 15 {
		t.Fatalf("unexpected date %v", d)
	}
	if err := json.Unmarshal([]byte(`"2024-03-15T10:00:00Z"`), &d); err != nil {
		t.Fatalf("unmarshal rfc3339: %v", err)
	}
	out, _ := json.Marshal(d)
	if string(out) != `"2024-03-15"` {
		t.Fatalf("unexpected marshal %s", out)
	}
}

func TestEMIValidate(t *testing.T) {
	good := EMI{
		Title:             "Car loan",
		Amount:            Money{Cents: 1500000},
		DueDay:            5,
		StartDate:         NewDate(2024, 1, 1),
		TotalInstallments: 24,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	mutate := func(f func(*EMI)) EMI {
		e := good
		f(&e)
		return e
	}
	bads := []EMI{
		mutate(func(e *EMI) { e.Title = "  " }),
		mutate(func(e *EMI) { e.Title = strings.Repeat("x", 201) }),
		mutate(func(e *EMI) { e.Amount = Money{} }),
		mutate(func(e *EMI) { e.DueDay = 0 }),
		mutate(func(e *EMI) { e.DueDay = 32 }),
		mutate(func(e *EMI) { e.StartDate = Date{} }),
		mutate(func(e *EMI) { e.TotalInstallments = 0 }),
		mutate(func(e *EMI) { e.PaidInstallments = 25 }),
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestLedgerEntryValidate(t *testing.T) {
	good := LedgerEntry{Title: "Groceries", Amount: Money{Cents: 100}, Category: CategoryExpense}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bad := good
	bad.Category = "gift"
	if err := bad.Validate(); err != ErrInvalidCategory {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if CategoryTransfer.IsCashOutflow() {
		t.Fatalf("transfers should not count as cash outflow")
	}
	if !CategoryEMI.IsCashOutflow() {
		t.Fatalf("emi payments are cash outflow")
	}
}

func TestIncomeDefaultsAndValidate(t *testing.T) {
	in := Income{Source: "Acme", Amount: Money{Cents: 500000}}
	in.ApplyIncomeDefaults()
	if in.Frequency != Monthly || in.Category != "other" {
		t.Fatalf("defaults not applied: %+v", in)
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	in.Frequency = "hourly"
	if err := in.Validate(); err != ErrInvalidFrequency {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestCreditCardValidateAndRecompute(t *testing.T) {
	c := CreditCard{Name: "Visa", Limit: Money{Cents: 10000}, UsedAmount: Money{Cents: 2500}, DueDay: 20}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	c.Recompute()
	if c.AvailableAmount.Cents != 7500 {
		t.Fatalf("expected 7500 available, got %d", c.AvailableAmount.Cents)
	}
	c.UsedAmount = Money{Cents: 20000}
	if err := c.Validate(); err != ErrOverLimit {
		t.Fatalf("expected ErrOverLimit, got %v", err)
	}
}
