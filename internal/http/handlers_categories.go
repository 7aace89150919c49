package http

import (
	"net/http"

	"finanzas/internal/core"
)

// categoryResponse is a category as listed to its user, with the spend of
// the requested period.
type categoryResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	SpendLimit   core.Money `json:"spendLimit"`
	SpendTotal   core.Money `json:"spendTotal"`
	CurrentSpend core.Money `json:"currentSpend"`
	Shared       bool       `json:"shared"`
}

func newCategoryResponse(c core.CategorySpend) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		SpendLimit:   c.SpendLimit,
		SpendTotal:   c.SpendTotal,
		CurrentSpend: c.CurrentSpend,
		Shared:       c.Shared(),
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.CreateCategory(r.Context(), userID(r), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, ack)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.ledger.ListCategories(r.Context(), userID(r), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		resp = append(resp, newCategoryResponse(c))
	}
	OK(w, resp)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.UpdateCategory(r.Context(), userID(r), pathVar(r, "categoryID"), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, ack)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ack, err := s.ledger.DeleteCategory(r.Context(), userID(r), pathVar(r, "categoryID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, ack)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.ledger.Summary(r.Context(), userID(r), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, summary)
}
