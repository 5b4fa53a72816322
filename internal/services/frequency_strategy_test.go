package services

import (
	"testing"

	"emitrack/internal/core"
)

func TestFrequencySteppers(t *testing.T) {
	tests := []struct {
		name string
		freq core.Frequency
		from core.Date
		want string
	}{
		{"daily", core.Daily, core.NewDate(2024, 2, 28), "2024-02-29"},
		{"daily across year", core.Daily, core.NewDate(2023, 12, 31), "2024-01-01"},
		{"weekly", core.Weekly, core.NewDate(2024, 2, 26), "2024-03-04"},
		{"monthly", core.Monthly, core.NewDate(2024, 3, 15), "2024-04-15"},
		{"monthly clamps to leap february", core.Monthly, core.NewDate(2024, 1, 31), "2024-02-29"},
		{"monthly clamps to short month", core.Monthly, core.NewDate(2024, 3, 31), "2024-04-30"},
		{"monthly across year", core.Monthly, core.NewDate(2024, 12, 31), "2025-01-31"},
		{"yearly", core.Yearly, core.NewDate(2024, 6, 1), "2025-06-01"},
		{"yearly clamps leap day", core.Yearly, core.NewDate(2024, 2, 29), "2025-02-28"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GetFrequencyStepper(tt.freq)
			if err != nil {
				t.Fatalf("GetFrequencyStepper(%s) error = %v", tt.freq, err)
			}
			if got := s.Next(tt.from).String(); got != tt.want {
				t.Errorf("Next(%s) = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestGetFrequencyStepper_OneTime(t *testing.T) {
	if _, err := GetFrequencyStepper(core.OneTime); err == nil {
		t.Error("one-time incomes must not have a stepper")
	}
}
