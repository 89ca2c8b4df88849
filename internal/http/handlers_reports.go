package http

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"taxibook/internal/core"
	"taxibook/internal/export"
	"taxibook/internal/log"
	"taxibook/internal/report"
)

type summaryResponse struct {
	DriverID           string            `json:"driverId"`
	From               string            `json:"from"`
	To                 string            `json:"to"`
	TotalIncome        string            `json:"totalIncome"`
	TotalExpenses      string            `json:"totalExpenses"`
	NetProfit          string            `json:"netProfit"`
	TPSPaid            string            `json:"tpsPaid"`
	TVQPaid            string            `json:"tvqPaid"`
	ExpensesByCategory map[string]string `json:"expensesByCategory"`
	IncomesByCategory  map[string]string `json:"incomesByCategory"`
	RowCount           int               `json:"rowCount"`
}

func summaryCacheKey(driverID string, p report.Period) string {
	return driverID + "|" + p.Start.Format("2006-01-02") + "|" + p.End.Format("2006-01-02")
}

// loadPeriod pulls the driver's full record set and narrows it to the
// window. Filtering happens here rather than in SQL so date parsing
// errors surface the same way the report engine reports them.
func (s *Server) loadPeriod(r *http.Request, driverID string, p report.Period) ([]core.ExpenseRecord, []core.IncomeRecord, error) {
	expenses, err := s.expenses.ListExpenses(r.Context(), driverID)
	if err != nil {
		return nil, nil, err
	}
	incomes, err := s.incomes.ListIncomes(r.Context(), driverID)
	if err != nil {
		return nil, nil, err
	}
	expenses, err = report.FilterExpenses(expenses, p)
	if err != nil {
		return nil, nil, err
	}
	incomes, err = report.FilterIncomes(incomes, p)
	if err != nil {
		return nil, nil, err
	}
	return expenses, incomes, nil
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	driverID, ok := driverIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}
	p, _, _, err := periodParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	key := summaryCacheKey(driverID, p)
	if cached, found := s.summaryCache.Get(key); found {
		s.logger.DebugContext(r.Context(), "summary cache hit", log.FieldDriverID, driverID)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	expenses, incomes, err := s.loadPeriod(r, driverID, p)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "load period failed", log.FieldError, err, log.FieldDriverID, driverID)
		writeDomainError(w, err)
		return
	}
	rows, err := report.Build(expenses, incomes, p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sum := report.Summarize(rows)

	resp := summaryResponse{
		DriverID:           driverID,
		From:               p.Start.Format("2006-01-02"),
		To:                 p.End.Format("2006-01-02"),
		TotalIncome:        core.FormatAmount(sum.TotalIncome),
		TotalExpenses:      core.FormatAmount(sum.TotalExpenses),
		NetProfit:          core.FormatAmount(sum.NetProfit),
		TPSPaid:            core.FormatAmount(sum.TPSPaid),
		TVQPaid:            core.FormatAmount(sum.TVQPaid),
		ExpensesByCategory: formatCategoryTotals(sum.ExpensesByCategory),
		IncomesByCategory:  formatCategoryTotals(sum.IncomesByCategory),
		RowCount:           len(rows),
	}
	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func formatCategoryTotals(totals map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(totals))
	for label, amount := range totals {
		out[label] = core.FormatAmount(amount)
	}
	return out
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	driverID, ok := driverIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}
	p, _, _, err := periodParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	expenses, incomes, err := s.loadPeriod(r, driverID, p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rows, err := report.Build(expenses, incomes, p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rapport.csv"`)
	_, _ = w.Write([]byte(export.CSV(rows, localeParam(r))))
}

func (s *Server) handleReportText(w http.ResponseWriter, r *http.Request) {
	driverID, ok := driverIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}
	// The text report is periodic by construction (its title names the
	// month or year), so from/to windows are not accepted here.
	if r.URL.Query().Get("from") != "" || r.URL.Query().Get("to") != "" {
		writeError(w, http.StatusBadRequest, errors.New("text report takes year/month, not from/to"))
		return
	}
	p, year, month, err := periodParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	expenses, incomes, err := s.loadPeriod(r, driverID, p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	text, err := export.FullReportText(expenses, incomes, year, month, localeParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}
