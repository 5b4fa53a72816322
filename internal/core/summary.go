package core

// MonthlyBudget is the derived budget for a specific year+month.
type MonthlyBudget struct {
	Year          int   `json:"year"`
	Month         int   `json:"month"` // 1-12
	TotalIncome   Money `json:"totalIncome"`
	TotalExpenses Money `json:"totalExpenses"`
	TotalEMIs     Money `json:"totalEMIs"`
	Balance       Money `json:"balance"`
	// ActiveEMIAmount is the monthly commitment of every loan still running,
	// whether or not this month's installment is settled.
	ActiveEMIAmount Money    `json:"activeEmiAmount"`
	OutstandingEMIs []string `json:"outstandingEmiIds"`
}
