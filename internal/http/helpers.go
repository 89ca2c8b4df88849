package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taxibook/internal/core"
	"taxibook/internal/export"
	"taxibook/internal/report"
	"taxibook/internal/safety"
	"taxibook/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeDomainError maps the sentinel errors onto HTTP statuses.
// Unknown categories and malformed dates are the caller's fault;
// anything unrecognized is a server fault.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, safety.ErrUnknownCheck):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// driverIDParam is required on every record-scoped endpoint.
func driverIDParam(r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("driverId"))
	return id, id != ""
}

func intParam(r *http.Request, name string) (int, bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func localeParam(r *http.Request) export.Locale {
	switch export.Locale(r.URL.Query().Get("locale")) {
	case export.LocaleEN:
		return export.LocaleEN
	default:
		return export.LocaleFR
	}
}

// periodParam resolves the reporting window from the query string.
// from/to take precedence as a custom range; otherwise year with an
// optional month. Returns month 0 for annual and custom windows.
func periodParam(r *http.Request) (report.Period, int, int, error) {
	fromStr := strings.TrimSpace(r.URL.Query().Get("from"))
	toStr := strings.TrimSpace(r.URL.Query().Get("to"))
	if fromStr != "" || toStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return report.Period{}, 0, 0, core.ErrInvalidDate
		}
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return report.Period{}, 0, 0, core.ErrInvalidDate
		}
		p, err := report.CustomRange(from, to)
		if err != nil {
			return report.Period{}, 0, 0, err
		}
		return p, from.Year(), 0, nil
	}

	year, ok, err := intParam(r, "year")
	if err != nil || !ok {
		return report.Period{}, 0, 0, errors.New("missing or invalid year")
	}
	month, hasMonth, err := intParam(r, "month")
	if err != nil {
		return report.Period{}, 0, 0, errors.New("invalid month")
	}
	if !hasMonth {
		return report.AnnualRange(year), year, 0, nil
	}
	if month < 1 || month > 12 {
		return report.Period{}, 0, 0, errors.New("month out of range")
	}
	return report.MonthlyRange(year, month), year, month, nil
}
