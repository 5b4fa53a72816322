package http

import (
	"net/http"

	"emitrack/internal/core"
)

type cardRequest struct {
	Name       string     `json:"name"`
	Limit      core.Money `json:"limit"`
	UsedAmount core.Money `json:"usedAmount"`
	DueDate    int        `json:"dueDate"`
}

func (req cardRequest) toCard(userID string) core.CreditCard {
	return core.CreditCard{
		UserID:     userID,
		Name:       sanitizeInput(req.Name),
		Limit:      req.Limit,
		UsedAmount: req.UsedAmount,
		DueDay:     req.DueDate,
	}
}

type cardPaymentResponse struct {
	UpdatedCard    core.CreditCard `json:"updatedCard"`
	ExpenseCreated bool            `json:"expenseCreated"`
	ExpenseID      string          `json:"expenseId"`
	Message        string          `json:"message"`
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.svc.Cards.List(r.Context(), currentUser(r).ID)
	if err != nil {
		respondError(w, r, "list credit cards", err)
		return
	}
	if cards == nil {
		cards = []core.CreditCard{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create credit card", err)
		return
	}
	created, err := s.svc.Cards.Create(r.Context(), req.toCard(currentUser(r).ID))
	if err != nil {
		respondError(w, r, "create credit card", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update credit card", err)
		return
	}
	c := req.toCard(currentUser(r).ID)
	c.ID = pathID(r)

	updated, err := s.svc.Cards.Update(r.Context(), c)
	if err != nil {
		respondError(w, r, "update credit card", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Cards.Delete(r.Context(), currentUser(r).ID, pathID(r)); err != nil {
		respondError(w, r, "delete credit card", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePayCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount core.Money `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "pay credit card", err)
		return
	}

	card, entry, err := s.svc.Cards.Pay(r.Context(), currentUser(r).ID, pathID(r), req.Amount, s.now())
	if err != nil {
		respondError(w, r, "pay credit card", err)
		return
	}
	writeJSON(w, http.StatusOK, cardPaymentResponse{
		UpdatedCard:    card,
		ExpenseCreated: true,
		ExpenseID:      entry.ID,
		Message:        "Payment processed successfully",
	})
}
