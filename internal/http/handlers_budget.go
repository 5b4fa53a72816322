package http

import (
	"net/http"
	"time"
)

// handleBudget serves the current month, or ?year=&month= when both are given.
// For a past or future month the budget is evaluated as of its first day.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	p, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		respondError(w, r, "monthly budget", err)
		return
	}

	now := s.now()
	at := now
	if p.Month != 0 && (p.Year != now.Year() || time.Month(p.Month) != now.Month()) {
		at = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, now.Location())
	}

	b, err := s.svc.Budgets.Monthly(r.Context(), currentUser(r).ID, at)
	if err != nil {
		respondError(w, r, "monthly budget", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
