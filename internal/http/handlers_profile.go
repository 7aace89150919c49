package http

import (
	"net/http"
)

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.CreateProfile(r.Context(), userID(r), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	Created(w, ack)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.ledger.GetProfile(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, profile)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ack, err := s.ledger.UpdateProfile(r.Context(), userID(r), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK(w, ack)
}
