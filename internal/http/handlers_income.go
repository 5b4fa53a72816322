package http

import (
	"net/http"

	"emitrack/internal/core"
)

type incomeRequest struct {
	Source          string         `json:"source"`
	Amount          core.Money     `json:"amount"`
	IsRecurring     bool           `json:"isRecurring"`
	Frequency       core.Frequency `json:"frequency"`
	Category        string         `json:"category"`
	Description     string         `json:"description"`
	NextPaymentDate *core.Date     `json:"nextPaymentDate"`
}

func (req incomeRequest) toIncome(userID string) core.Income {
	return core.Income{
		UserID:          userID,
		Source:          sanitizeInput(req.Source),
		Amount:          req.Amount,
		IsRecurring:     req.IsRecurring,
		Frequency:       req.Frequency,
		Category:        sanitizeInput(req.Category),
		Description:     sanitizeInput(req.Description),
		NextPaymentDate: req.NextPaymentDate,
	}
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	incomes, err := s.svc.Incomes.List(r.Context(), currentUser(r).ID)
	if err != nil {
		respondError(w, r, "list income", err)
		return
	}
	if incomes == nil {
		incomes = []core.Income{}
	}
	writeJSON(w, http.StatusOK, incomes)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create income", err)
		return
	}
	created, err := s.svc.Incomes.Create(r.Context(), req.toIncome(currentUser(r).ID))
	if err != nil {
		respondError(w, r, "create income", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update income", err)
		return
	}
	in := req.toIncome(currentUser(r).ID)
	in.ID = pathID(r)

	updated, err := s.svc.Incomes.Update(r.Context(), in)
	if err != nil {
		respondError(w, r, "update income", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Incomes.Delete(r.Context(), currentUser(r).ID, pathID(r)); err != nil {
		respondError(w, r, "delete income", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
