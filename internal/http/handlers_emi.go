package http

import (
	"net/http"

	"emitrack/internal/core"
	"emitrack/internal/services"
)

type emiRequest struct {
	Title             string     `json:"title"`
	Amount            core.Money `json:"amount"`
	DueDate           int        `json:"dueDate"`
	StartDate         core.Date  `json:"startDate"`
	TotalInstallments int        `json:"totalInstallments"`
	CreditCardID      string     `json:"creditCardId"`
}

func (req emiRequest) toEMI(userID string) core.EMI {
	return core.EMI{
		UserID:            userID,
		Title:             sanitizeInput(req.Title),
		Amount:            req.Amount,
		DueDay:            req.DueDate,
		StartDate:         req.StartDate,
		TotalInstallments: req.TotalInstallments,
		CreditCardID:      sanitizeInput(req.CreditCardID),
	}
}

// markPaidResponse flattens the updated loan next to the created entry id.
type markPaidResponse struct {
	services.EMIView
	ExpenseCreated bool   `json:"expenseCreated"`
	ExpenseID      string `json:"expenseId"`
}

func (s *Server) handleListEMIs(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.EMIs.List(r.Context(), currentUser(r).ID, s.now())
	if err != nil {
		respondError(w, r, "list EMIs", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateEMI(w http.ResponseWriter, r *http.Request) {
	var req emiRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create EMI", err)
		return
	}
	if req.StartDate.IsZero() {
		now := s.now()
		req.StartDate = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}

	created, err := s.svc.EMIs.Create(r.Context(), req.toEMI(currentUser(r).ID))
	if err != nil {
		respondError(w, r, "create EMI", err)
		return
	}
	writeJSON(w, http.StatusCreated, services.Project(created, s.now()))
}

func (s *Server) handleUpdateEMI(w http.ResponseWriter, r *http.Request) {
	var req emiRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update EMI", err)
		return
	}
	loan := req.toEMI(currentUser(r).ID)
	loan.ID = pathID(r)

	updated, err := s.svc.EMIs.Update(r.Context(), loan)
	if err != nil {
		respondError(w, r, "update EMI", err)
		return
	}
	writeJSON(w, http.StatusOK, services.Project(updated, s.now()))
}

func (s *Server) handleDeleteEMI(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.EMIs.Delete(r.Context(), currentUser(r).ID, pathID(r)); err != nil {
		respondError(w, r, "delete EMI", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMarkEMIPaid(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	loan, entry, err := s.svc.EMIs.MarkPaid(r.Context(), currentUser(r).ID, pathID(r), now)
	if err != nil {
		respondError(w, r, "mark EMI paid", err)
		return
	}
	writeJSON(w, http.StatusOK, markPaidResponse{
		EMIView:        services.Project(loan, now),
		ExpenseCreated: true,
		ExpenseID:      entry.ID,
	})
}

func (s *Server) handleChangeEMIDueDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DueDate int `json:"dueDate"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "change EMI due date", err)
		return
	}

	updated, err := s.svc.EMIs.ChangeDueDate(r.Context(), currentUser(r).ID, pathID(r), req.DueDate)
	if err != nil {
		respondError(w, r, "change EMI due date", err)
		return
	}
	writeJSON(w, http.StatusOK, services.Project(updated, s.now()))
}
