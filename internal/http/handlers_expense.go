package http

import (
	"net/http"
	"time"

	"emitrack/internal/core"
)

type expenseRequest struct {
	Title        string             `json:"title"`
	Amount       core.Money         `json:"amount"`
	DueDate      int                `json:"dueDate"`
	Category     core.EntryCategory `json:"category"`
	IsRecurring  bool               `json:"isRecurring"`
	IsPaid       bool               `json:"isPaid"`
	PaidAt       *time.Time         `json:"paidAt"`
	Source       string             `json:"source"`
	Destination  string             `json:"destination"`
	CreditCardID string             `json:"creditCardId"`
}

func (req expenseRequest) toEntry(userID string) core.LedgerEntry {
	return core.LedgerEntry{
		UserID:       userID,
		Title:        sanitizeInput(req.Title),
		Amount:       req.Amount,
		DueDay:       req.DueDate,
		Category:     req.Category,
		IsRecurring:  req.IsRecurring,
		IsPaid:       req.IsPaid,
		PaidAt:       req.PaidAt,
		Source:       sanitizeInput(req.Source),
		Destination:  sanitizeInput(req.Destination),
		CreditCardID: sanitizeInput(req.CreditCardID),
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		respondError(w, r, "list expenses", err)
		return
	}
	entries, err := s.svc.Ledger.List(r.Context(), currentUser(r).ID, p.Year, p.Month, s.now().Location())
	if err != nil {
		respondError(w, r, "list expenses", err)
		return
	}
	if entries == nil {
		entries = []core.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create expense", err)
		return
	}
	created, err := s.svc.Ledger.Create(r.Context(), req.toEntry(currentUser(r).ID), s.now())
	if err != nil {
		respondError(w, r, "create expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update expense", err)
		return
	}
	e := req.toEntry(currentUser(r).ID)
	e.ID = pathID(r)

	updated, err := s.svc.Ledger.Update(r.Context(), e, s.now())
	if err != nil {
		respondError(w, r, "update expense", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.Delete(r.Context(), currentUser(r).ID, pathID(r)); err != nil {
		respondError(w, r, "delete expense", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
