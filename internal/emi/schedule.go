package emi

import (
	"time"

	"emitrack/internal/core"
)

// Status is the display state of a loan.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// NextDueDate returns the next installment date on or after now's calendar
// day, so on the due day itself it is today. Due days past the end of a short
// month fall on that month's last day.
func NextDueDate(loan core.EMI, now time.Time) time.Time {
	due := dueDateIn(now.Year(), now.Month(), loan.DueDay, now.Location())
	if due.Before(startOfDay(now)) {
		next := now.AddDate(0, 0, -now.Day()+1).AddDate(0, 1, 0)
		due = dueDateIn(next.Year(), next.Month(), loan.DueDay, now.Location())
	}
	return due
}

// IsActive reports whether the loan has started and still has installments left.
func IsActive(loan core.EMI, now time.Time) bool {
	return now.After(loan.StartDate.Time) && ProjectRemaining(loan, now) > 0
}

func StatusOf(loan core.EMI, now time.Time) Status {
	switch {
	case ProjectRemaining(loan, now) == 0:
		return StatusCompleted
	case IsActive(loan, now):
		return StatusActive
	default:
		return StatusPending
	}
}

// TotalActiveAmount sums the installment amounts of all active loans.
func TotalActiveAmount(loans []core.EMI, now time.Time) core.Money {
	var total core.Money
	for _, l := range loans {
		if IsActive(l, now) {
			total = total.Add(l.Amount)
		}
	}
	return total
}

func dueDateIn(year int, month time.Month, day int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
