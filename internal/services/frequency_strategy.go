// This file implements the Strategy Pattern for advancing recurring incomes.
// Each frequency has a stepper that computes the next payment date.

package services

import (
	"fmt"
	"time"

	"emitrack/internal/core"
)

// FrequencyStepper moves a payment date forward by one period.
type FrequencyStepper interface {
	Next(from core.Date) core.Date
}

type DailyStepper struct{}

func (DailyStepper) Next(from core.Date) core.Date {
	return core.Date{Time: from.AddDate(0, 0, 1)}
}

type WeeklyStepper struct{}

func (WeeklyStepper) Next(from core.Date) core.Date {
	return core.Date{Time: from.AddDate(0, 0, 7)}
}

// MonthlyStepper lands on the same day next month, or on that month's last
// day when it is shorter (Jan 31 -> Feb 28).
type MonthlyStepper struct{}

func (MonthlyStepper) Next(from core.Date) core.Date {
	return addMonthsClamped(from, 1)
}

// YearlyStepper clamps Feb 29 to Feb 28 in non-leap years.
type YearlyStepper struct{}

func (YearlyStepper) Next(from core.Date) core.Date {
	return addMonthsClamped(from, 12)
}

func addMonthsClamped(from core.Date, months int) core.Date {
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location()).AddDate(0, months, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	day := min(from.Day(), lastDay)
	return core.Date{Time: time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, from.Location())}
}

// frequencySteppers maps frequencies to their steppers. One-time incomes have
// no entry and are never advanced.
var frequencySteppers = map[core.Frequency]FrequencyStepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetFrequencyStepper returns the stepper for a frequency.
func GetFrequencyStepper(f core.Frequency) (FrequencyStepper, error) {
	s, ok := frequencySteppers[f]
	if !ok {
		return nil, fmt.Errorf("no stepper for frequency %q", f)
	}
	return s, nil
}
