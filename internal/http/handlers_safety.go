package http

import (
	"errors"
	"net/http"

	"taxibook/internal/core"
	"taxibook/internal/ledger"
	"taxibook/internal/log"
	"taxibook/internal/safety"
)

func (s *Server) handleSafetyChecklist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, safety.AllChecks())
}

type safetyRoundRequest struct {
	DriverID string          `json:"driverId"`
	Date     core.StoredDate `json:"date"`
	Results  map[string]bool `json:"results"`
	Notes    string          `json:"notes"`
}

func (s *Server) handleCreateSafetyRound(w http.ResponseWriter, r *http.Request) {
	var req safetyRoundRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.DriverID == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}
	if _, err := req.Date.Time(); err != nil {
		writeDomainError(w, err)
		return
	}

	outcome, err := safety.EvaluateRound(req.Results)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	round := ledger.SafetyRound{
		DriverID: req.DriverID,
		Date:     req.Date,
		Results:  req.Results,
		Outcome:  outcome,
		Notes:    req.Notes,
	}
	id, err := s.safety.CreateRound(r.Context(), round)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create safety round failed", log.FieldError, err, log.FieldDriverID, req.DriverID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	round.ID = id

	s.logger.InfoContext(r.Context(), "safety round recorded",
		log.FieldDriverID, req.DriverID,
		log.FieldRoundStatus, string(outcome.Status))
	writeJSON(w, http.StatusCreated, round)
}

func (s *Server) handleListSafetyRounds(w http.ResponseWriter, r *http.Request) {
	driverID, ok := driverIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}
	rounds, err := s.safety.ListRounds(r.Context(), driverID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list safety rounds failed", log.FieldError, err, log.FieldDriverID, driverID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rounds == nil {
		rounds = []ledger.SafetyRound{}
	}
	writeJSON(w, http.StatusOK, rounds)
}
