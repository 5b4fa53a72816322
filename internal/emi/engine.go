// Package emi implements the installment-loan ledger engine.
//
// Two counters describe a loan's progress: the paid count the user confirmed
// explicitly and a projection derived from elapsed calendar time. Display
// code reconciles them with ProjectRemaining (the larger paid count wins);
// ApplyPayment only ever advances the confirmed count by one. All functions
// are pure: "now" is always passed in and loans are taken by value.
package emi

import (
	"log/slog"
	"strings"
	"time"

	"emitrack/internal/core"
)

// PaymentTitleSuffix is appended to the loan title on generated ledger entries.
const PaymentTitleSuffix = " - EMI Payment"

// ProjectRemaining returns the number of installments still outstanding as of
// now, taking the larger of the confirmed paid count and the time-based
// projection. It never mutates the loan.
func ProjectRemaining(loan core.EMI, now time.Time) int {
	return nonNegative(loan.TotalInstallments - EffectivePaid(loan, now))
}

// EffectivePaid is the reconciled paid count used for display.
func EffectivePaid(loan core.EMI, now time.Time) int {
	if !projectable(loan) {
		slog.Debug("EMI projection skipped, falling back to confirmed count",
			"emi_id", loan.ID,
			"total_installments", loan.TotalInstallments,
			"due_day", loan.DueDay)
		return loan.PaidInstallments
	}

	elapsed := nonNegative(monthsBetween(startOfMonth(loan.StartDate.Time), startOfMonth(now)))
	if now.Day() > loan.DueDay {
		elapsed++
	}
	projected := min(loan.TotalInstallments, elapsed)

	return max(loan.PaidInstallments, projected)
}

// ApplyPayment records one confirmed installment and synthesizes the companion
// ledger entry. The caller must persist both results in one atomic write.
//
// Completed loans are accepted: the counts are clamped at the total and a
// ledger entry is still produced.
func ApplyPayment(loan core.EMI, now time.Time) (core.EMI, core.LedgerEntry) {
	paid := loan.PaidInstallments + 1
	if loan.TotalInstallments > 0 && paid > loan.TotalInstallments {
		paid = max(loan.TotalInstallments, loan.PaidInstallments)
	}

	updated := loan
	updated.PaidInstallments = paid
	updated.RemainingInstallments = nonNegative(loan.TotalInstallments - paid)
	lastPaid := now
	updated.LastPaymentDate = &lastPaid
	updated.UpdatedAt = now

	title := strings.TrimSpace(loan.Title)
	paidAt := now
	entry := core.LedgerEntry{
		UserID:       loan.UserID,
		Title:        title + PaymentTitleSuffix,
		Amount:       loan.Amount,
		DueDay:       now.Day(),
		Category:     core.CategoryEMI,
		IsPaid:       true,
		PaidAt:       &paidAt,
		Source:       core.DefaultSource,
		Destination:  title,
		CreditCardID: loan.CreditCardID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return updated, entry
}

// IsOutstandingThisMonth reports whether the loan's installment still has to
// be paid in now's calendar month: installments remain, the due day has not
// passed, and no payment was confirmed earlier this month.
func IsOutstandingThisMonth(loan core.EMI, now time.Time) bool {
	if ProjectRemaining(loan, now) <= 0 {
		return false
	}
	if now.Day() > loan.DueDay {
		return false
	}
	if loan.LastPaymentDate != nil && sameMonth(*loan.LastPaymentDate, now) {
		return false
	}
	return true
}

func projectable(loan core.EMI) bool {
	return loan.TotalInstallments > 0 &&
		loan.DueDay >= 1 && loan.DueDay <= 31 &&
		!loan.StartDate.IsZero()
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func sameMonth(a, b time.Time) bool {
	a = a.In(b.Location())
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
