package http

import (
	"errors"
	"fmt"
	"net/http"

	"taxibook/internal/export"
	"taxibook/internal/ledger"
	"taxibook/internal/log"
)

type exportRequest struct {
	DriverID string              `json:"driverId"`
	Format   ledger.ExportFormat `json:"format"`
	Year     int                 `json:"year"`
	Month    int                 `json:"month"`
	Locale   string              `json:"locale"`
}

func (req exportRequest) validate() error {
	if req.DriverID == "" {
		return errors.New("missing driverId")
	}
	switch req.Format {
	case ledger.FormatCSV, ledger.FormatText, ledger.FormatWorkbook:
	default:
		return fmt.Errorf("unknown format %q", req.Format)
	}
	if req.Year < 2000 || req.Year > 2200 {
		return fmt.Errorf("year %d out of range", req.Year)
	}
	if req.Month < 0 || req.Month > 12 {
		return fmt.Errorf("month %d out of range", req.Month)
	}
	return nil
}

func (s *Server) handleEnqueueExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	locale := req.Locale
	if export.Locale(locale) != export.LocaleEN {
		locale = string(export.LocaleFR)
	}
	job := ledger.ExportJob{
		DriverID: req.DriverID,
		Format:   req.Format,
		Year:     req.Year,
		Month:    req.Month,
		Locale:   locale,
	}
	id, err := s.jobs.CreateJob(r.Context(), job)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create export job failed", log.FieldError, err, log.FieldDriverID, req.DriverID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	// The job row is the source of truth. A failed publish leaves it
	// pending and the worker's periodic sweep picks it up.
	if s.publisher != nil {
		if err := s.publisher.PublishExportRequest(r.Context(), id); err != nil {
			s.logger.WarnContext(r.Context(), "publish export request failed, job left pending",
				log.FieldError, err, log.FieldExportID, id)
		}
	}

	created, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.logger.InfoContext(r.Context(), "export job enqueued",
		log.FieldExportID, id,
		log.FieldExportFormat, string(req.Format),
		log.FieldDriverID, req.DriverID)
	writeJSON(w, http.StatusAccepted, created)
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	driverID, ok := driverIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}
	jobs, err := s.jobs.ListJobs(r.Context(), driverID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list export jobs failed", log.FieldError, err, log.FieldDriverID, driverID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if jobs == nil {
		jobs = []ledger.ExportJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}
