package http

import (
	"net/http"

	"finanzas/internal/core"
)

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.CreateGoal(r.Context(), userID(r), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, ack)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.ledger.ListGoals(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if goals == nil {
		goals = []core.SavingsGoal{}
	}
	OK(w, goals)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.ledger.GetGoal(r.Context(), userID(r), pathVar(r, "goalID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, goal)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.UpdateGoal(r.Context(), userID(r), pathVar(r, "goalID"), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, ack)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	ack, err := s.ledger.DeleteGoal(r.Context(), userID(r), pathVar(r, "goalID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, ack)
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.ContributeToGoal(r.Context(), userID(r), pathVar(r, "goalID"), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, ack)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.ledger.ListContributions(r.Context(), userID(r), pathVar(r, "goalID"), limit)
	writeTransactions(w, r, txs, err)
}
