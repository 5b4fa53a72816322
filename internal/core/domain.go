package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryExpense           EntryCategory = "expense"
	CategoryEMI               EntryCategory = "emi"
	CategoryTransfer          EntryCategory = "transfer"
	CategoryCreditCardPayment EntryCategory = "credit_card_payment"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	OneTime Frequency = "one-time"
)

// DefaultSource labels money leaving the user's main account.
const DefaultSource = "Bank Account"

const maxTitleLength = 200

type (
	EntryCategory string

	Frequency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID         string    `json:"id"`
		ExternalID string    `json:"externalId"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	// EMI is a fixed-installment loan. RemainingInstallments is a cached value
	// and always equals TotalInstallments - PaidInstallments after a write.
	EMI struct {
		ID                    string     `json:"id"`
		UserID                string     `json:"userId"`
		Title                 string     `json:"title"`
		Amount                Money      `json:"amount"`
		DueDay                int        `json:"dueDate"`
		StartDate             Date       `json:"startDate"`
		TotalInstallments     int        `json:"totalInstallments"`
		PaidInstallments      int        `json:"paidInstallments"`
		RemainingInstallments int        `json:"remainingInstallments"`
		LastPaymentDate       *time.Time `json:"lastPaymentDate"`
		CreditCardID          string     `json:"creditCardId,omitempty"`
		CreatedAt             time.Time  `json:"createdAt"`
		UpdatedAt             time.Time  `json:"updatedAt"`
	}

	// LedgerEntry is money leaving the tracked cash/bank balance.
	LedgerEntry struct {
		ID           string        `json:"id"`
		UserID       string        `json:"userId"`
		Title        string        `json:"title"`
		Amount       Money         `json:"amount"`
		DueDay       int           `json:"dueDate"`
		Category     EntryCategory `json:"category"`
		IsRecurring  bool          `json:"isRecurring"`
		IsPaid       bool          `json:"isPaid"`
		PaidAt       *time.Time    `json:"paidAt"`
		Source       string        `json:"source"`
		Destination  string        `json:"destination"`
		CreditCardID string        `json:"creditCardId,omitempty"`
		CreatedAt    time.Time     `json:"createdAt"`
		UpdatedAt    time.Time     `json:"updatedAt"`
	}

	Income struct {
		ID              string    `json:"id"`
		UserID          string    `json:"userId"`
		Source          string    `json:"source"`
		Amount          Money     `json:"amount"`
		IsRecurring     bool      `json:"isRecurring"`
		Frequency       Frequency `json:"frequency"`
		Category        string    `json:"category"`
		Description     string    `json:"description"`
		NextPaymentDate *Date     `json:"nextPaymentDate"`
		CreatedAt       time.Time `json:"createdAt"`
		UpdatedAt       time.Time `json:"updatedAt"`
	}

	CreditCard struct {
		ID              string    `json:"id"`
		UserID          string    `json:"userId"`
		Name            string    `json:"name"`
		Limit           Money     `json:"limit"`
		UsedAmount      Money     `json:"usedAmount"`
		AvailableAmount Money     `json:"availableAmount"`
		DueDay          int       `json:"dueDate"`
		CreatedAt       time.Time `json:"createdAt"`
		UpdatedAt       time.Time `json:"updatedAt"`
	}
)

var (
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyTitle          = errors.New("empty title")
	ErrTitleTooLong        = errors.New("title too long (max 200 characters)")
	ErrInvalidDueDay       = errors.New("due day must be between 1 and 31")
	ErrInvalidInstallments = errors.New("total installments must be positive")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrEmptySource         = errors.New("empty source")
	ErrEmptyName           = errors.New("empty name")
	ErrOverLimit           = errors.New("used amount exceeds limit")
)

var incomeCategories = map[string]bool{
	"salary":     true,
	"freelance":  true,
	"investment": true,
	"business":   true,
	"rental":     true,
	"other":      true,
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func validateTitle(title string) error {
	if len(strings.TrimSpace(title)) == 0 {
		return ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func validDueDay(day int) bool {
	return day >= 1 && day <= 31
}

func (e EMI) Validate() error {
	if err := validateTitle(e.Title); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !validDueDay(e.DueDay) {
		return ErrInvalidDueDay
	}
	if err := e.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if e.TotalInstallments <= 0 {
		return ErrInvalidInstallments
	}
	if e.PaidInstallments < 0 || e.PaidInstallments > e.TotalInstallments {
		return errors.New("paid installments out of range")
	}
	return nil
}

// IsCashOutflow reports whether the entry reduces the user's cash balance.
// Transfers only move money between the user's own accounts.
func (c EntryCategory) IsCashOutflow() bool {
	return c != CategoryTransfer
}

func (c EntryCategory) Valid() bool {
	switch c {
	case CategoryExpense, CategoryEMI, CategoryTransfer, CategoryCreditCardPayment:
		return true
	}
	return false
}

func (e LedgerEntry) Validate() error {
	if err := validateTitle(e.Title); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.DueDay != 0 && !validDueDay(e.DueDay) {
		return ErrInvalidDueDay
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly, OneTime:
		return true
	}
	return false
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if err := i.Amount.Validate(); err != nil {
		return err
	}
	if !i.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if !incomeCategories[i.Category] {
		return ErrInvalidCategory
	}
	if i.NextPaymentDate != nil && !i.NextPaymentDate.IsZero() {
		if err := i.NextPaymentDate.Validate(); err != nil {
			return errors.New("invalid next payment date: " + err.Error())
		}
	}
	return nil
}

// ApplyIncomeDefaults fills the optional fields the way the income form does.
func (i *Income) ApplyIncomeDefaults() {
	if i.Frequency == "" {
		i.Frequency = Monthly
	}
	if i.Category == "" {
		i.Category = "other"
	}
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Limit.Cents < 0 || c.UsedAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	if c.UsedAmount.Cents > c.Limit.Cents {
		return ErrOverLimit
	}
	if !validDueDay(c.DueDay) {
		return ErrInvalidDueDay
	}
	return nil
}

// Recompute refreshes the derived available amount.
func (c *CreditCard) Recompute() {
	c.AvailableAmount = c.Limit.Sub(c.UsedAmount)
}
