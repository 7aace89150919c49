package http

import (
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/services"
)

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.RecordExpense(r.Context(), userID(r), services.ExpenseInput{
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Timestamp:   timestampOrZero(req.Timestamp),
		Description: sanitizeInput(req.Description),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, ack)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListExpenses(r.Context(), userID(r))
	writeTransactions(w, r, txs, err)
}

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.RecordIncome(r.Context(), userID(r), services.IncomeInput{
		Amount:      req.Amount,
		Timestamp:   timestampOrZero(req.Timestamp),
		Description: sanitizeInput(req.Description),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, ack)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListIncomes(r.Context(), userID(r))
	writeTransactions(w, r, txs, err)
}

// writeTransactions renders a listing, with [] rather than null when empty.
func writeTransactions(w http.ResponseWriter, r *http.Request, txs []core.Transaction, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	OK(w, txs)
}
