package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"emitrack/internal/auth"
	"emitrack/internal/core"
	"emitrack/internal/log"
	"emitrack/internal/services"
	"emitrack/internal/storage/memory"
)

var pinnedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New()
	verifier, err := auth.NewVerifier(auth.ModeDev, "", "")
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	budgets := services.NewBudgetService(store, nil)
	svc := Services{
		EMIs:    services.NewEMIService(store, nil, budgets),
		Ledger:  services.NewLedgerService(store, nil, budgets),
		Incomes: services.NewIncomeService(store, budgets),
		Cards:   services.NewCardService(store, nil, budgets),
		Budgets: budgets,
	}
	s := NewServer(Options{
		Store:           store,
		Verifier:        verifier,
		RateLimitPerMin: 1000,
		Logger:          log.New(log.Config{Output: io.Discard}),
		Now:             func() time.Time { return pinnedNow },
	}, svc)
	t.Cleanup(func() { s.limiter.Stop() })
	return s
}

func do(t *testing.T, s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

const carLoan = `{"title":"Car Loan","amount":250,"dueDate":10,"startDate":"2024-01-01","totalInstallments":12}`

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(t, s, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("GET %s missing X-Request-ID", path)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/emis", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error == "" {
		t.Error("expected JSON error body")
	}
}

func TestEMILifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/emis", "alice", carLoan)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	created := decode[services.EMIView](t, rec)
	if created.ID == "" || created.Title != "Car Loan" || created.Amount.Cents != 25000 {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, s, http.MethodGet, "/api/emis", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if views := decode[[]services.EMIView](t, rec); len(views) != 1 {
		t.Fatalf("list returned %d loans, want 1", len(views))
	}

	rec = do(t, s, http.MethodGet, "/api/emis", "bob", "")
	if views := decode[[]services.EMIView](t, rec); len(views) != 0 {
		t.Fatalf("other user sees %d loans", len(views))
	}

	rec = do(t, s, http.MethodPost, "/api/emis/"+created.ID+"/mark-paid", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark-paid status = %d body=%s", rec.Code, rec.Body)
	}
	paid := decode[markPaidResponse](t, rec)
	if paid.ID != created.ID || !paid.ExpenseCreated || paid.ExpenseID == "" {
		t.Fatalf("mark-paid response = %+v", paid)
	}

	rec = do(t, s, http.MethodGet, "/api/expenses?year=2024&month=3", "alice", "")
	entries := decode[[]core.LedgerEntry](t, rec)
	if len(entries) != 1 || entries[0].ID != paid.ExpenseID || entries[0].Category != core.CategoryEMI {
		t.Fatalf("expenses = %+v", entries)
	}

	rec = do(t, s, http.MethodPatch, "/api/emis/"+created.ID+"/due-date", "alice", `{"dueDate":20}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("due-date status = %d body=%s", rec.Code, rec.Body)
	}
	if got := decode[services.EMIView](t, rec); got.DueDay != 20 {
		t.Errorf("due day = %d, want 20", got.DueDay)
	}

	rec = do(t, s, http.MethodDelete, "/api/emis/"+created.ID, "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodDelete, "/api/emis/"+created.ID, "alice", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestMarkPaidUnknownLoan(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/emis/missing/mark-paid", "alice", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMarkPaidOtherUsersLoan(t *testing.T) {
	s := newTestServer(t)

	created := decode[services.EMIView](t, do(t, s, http.MethodPost, "/api/emis", "alice", carLoan))
	rec := do(t, s, http.MethodPost, "/api/emis/"+created.ID+"/mark-paid", "mallory", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/emis", `{"title":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/expenses", "", http.StatusBadRequest},
		{"due day out of range", http.MethodPost, "/api/emis", `{"title":"X","amount":10,"dueDate":40,"totalInstallments":3}`, http.StatusUnprocessableEntity},
		{"zero installments", http.MethodPost, "/api/emis", `{"title":"X","amount":10,"dueDate":5,"totalInstallments":0}`, http.StatusUnprocessableEntity},
		{"negative amount is malformed", http.MethodPost, "/api/expenses", `{"title":"Coffee","amount":-3}`, http.StatusBadRequest},
		{"zero expense", http.MethodPost, "/api/expenses", `{"title":"Coffee","amount":0}`, http.StatusUnprocessableEntity},
		{"month without year", http.MethodGet, "/api/expenses?month=3", "", http.StatusBadRequest},
		{"bad income frequency", http.MethodPost, "/api/income", `{"source":"Job","amount":100,"isRecurring":true,"frequency":"hourly","category":"salary"}`, http.StatusUnprocessableEntity},
		{"wrong method", http.MethodPatch, "/api/budget", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, "alice", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body=%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestBudgetReflectsPayments(t *testing.T) {
	s := newTestServer(t)

	do(t, s, http.MethodPost, "/api/income", "alice", `{"source":"Acme","amount":3000,"isRecurring":true,"frequency":"monthly","category":"salary"}`)
	created := decode[services.EMIView](t, do(t, s, http.MethodPost, "/api/emis", "alice", carLoan))

	before := decode[core.MonthlyBudget](t, do(t, s, http.MethodGet, "/api/budget", "alice", ""))
	if before.Year != 2024 || before.Month != 3 {
		t.Fatalf("budget month = %d-%d", before.Year, before.Month)
	}
	if before.TotalIncome.Cents != 300000 {
		t.Errorf("income = %d", before.TotalIncome.Cents)
	}

	do(t, s, http.MethodPost, "/api/emis/"+created.ID+"/mark-paid", "alice", "")

	after := decode[core.MonthlyBudget](t, do(t, s, http.MethodGet, "/api/budget", "alice", ""))
	if after.TotalExpenses.Cents != 25000 {
		t.Errorf("expenses = %d, want 25000", after.TotalExpenses.Cents)
	}
	if len(after.OutstandingEMIs) != 0 || after.TotalEMIs.Cents != 0 {
		t.Errorf("loan still outstanding: %+v", after)
	}
	if after.ActiveEMIAmount.Cents != 25000 {
		t.Errorf("active EMI amount = %d, want 25000", after.ActiveEMIAmount.Cents)
	}
	if after.Balance.Cents != 300000-25000 {
		t.Errorf("balance = %d", after.Balance.Cents)
	}
}

func TestCardPayment(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/credit-cards", "alice", `{"name":"Visa","limit":1000,"usedAmount":400,"dueDate":5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create card status = %d body=%s", rec.Code, rec.Body)
	}
	card := decode[core.CreditCard](t, rec)
	if card.AvailableAmount.Cents != 60000 {
		t.Fatalf("available = %d", card.AvailableAmount.Cents)
	}

	rec = do(t, s, http.MethodPost, "/api/credit-cards/"+card.ID+"/pay", "alice", `{"amount":500}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overpayment status = %d, want 422", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/credit-cards/"+card.ID+"/pay", "alice", `{"amount":"150.50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("pay status = %d body=%s", rec.Code, rec.Body)
	}
	resp := decode[cardPaymentResponse](t, rec)
	if resp.UpdatedCard.UsedAmount.Cents != 24950 || !resp.ExpenseCreated || resp.ExpenseID == "" {
		t.Fatalf("pay response = %+v", resp)
	}
}
