package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"taxibook/internal/core"
	"taxibook/internal/log"
)

type expenseRequest struct {
	DriverID      string          `json:"driverId"`
	Date          core.StoredDate `json:"date"`
	CategoryID    string          `json:"categoryId"`
	Merchant      string          `json:"merchant"`
	AmountExclTax decimal.Decimal `json:"amountExclTax"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes"`
	ReceiptRef    string          `json:"receiptRef"`
}

// toRecord derives the tax fields. A pre-tax amount wins over a total;
// one of the two must be present.
func (req expenseRequest) toRecord() (core.ExpenseRecord, error) {
	var split core.TaxSplit
	switch {
	case !req.AmountExclTax.IsZero():
		split = core.ComputeFromExclTax(req.AmountExclTax)
	case !req.Total.IsZero():
		split = core.ComputeFromInclTax(req.Total)
	default:
		return core.ExpenseRecord{}, fmt.Errorf("%w: amountExclTax or total required", core.ErrInvalidAmount)
	}
	return core.ExpenseRecord{
		DriverID:      req.DriverID,
		Date:          req.Date,
		CategoryID:    req.CategoryID,
		Merchant:      req.Merchant,
		AmountExclTax: split.AmountExclTax,
		TPS:           split.TPS,
		TVQ:           split.TVQ,
		Total:         split.Total,
		Notes:         req.Notes,
		ReceiptRef:    req.ReceiptRef,
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := req.toRecord()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := rec.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := s.expenses.CreateExpense(r.Context(), rec)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create expense failed", log.FieldError, err, log.FieldDriverID, rec.DriverID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rec.ID = id
	s.invalidateSummaries(rec.DriverID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	driverID, ok := driverIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}
	records, err := s.expenses.ListExpenses(r.Context(), driverID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list expenses failed", log.FieldError, err, log.FieldDriverID, driverID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []core.ExpenseRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.expenses.DeleteExpense(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateSummaries("")
	w.WriteHeader(http.StatusNoContent)
}

type incomeRequest struct {
	DriverID    string          `json:"driverId"`
	Date        core.StoredDate `json:"date"`
	CategoryID  string          `json:"categoryId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Notes       string          `json:"notes"`
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec := core.IncomeRecord{
		DriverID:    req.DriverID,
		Date:        req.Date,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Amount:      req.Amount,
		Notes:       req.Notes,
	}
	if err := rec.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	id, err := s.incomes.CreateIncome(r.Context(), rec)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create income failed", log.FieldError, err, log.FieldDriverID, rec.DriverID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rec.ID = id
	s.invalidateSummaries(rec.DriverID)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	driverID, ok := driverIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}
	records, err := s.incomes.ListIncomes(r.Context(), driverID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list incomes failed", log.FieldError, err, log.FieldDriverID, driverID)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []core.IncomeRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.incomes.DeleteIncome(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.invalidateSummaries("")
	w.WriteHeader(http.StatusNoContent)
}

// importRequest mirrors the JSON export of the upstream mobile app.
// Dates may arrive as ISO strings or as {"seconds": N} objects, both
// of which StoredDate accepts.
type importRequest struct {
	DriverID string               `json:"driverId"`
	Expenses []core.ExpenseRecord `json:"expenses"`
	Incomes  []core.IncomeRecord  `json:"incomes"`
}

type importResponse struct {
	ExpensesImported int `json:"expensesImported"`
	IncomesImported  int `json:"incomesImported"`
}

func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.DriverID == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing driverId"))
		return
	}

	// Validate the whole batch before touching storage so a bad record
	// in the middle does not leave a partial import behind.
	for i := range req.Expenses {
		req.Expenses[i].DriverID = req.DriverID
		if err := req.Expenses[i].Validate(); err != nil {
			writeDomainError(w, fmt.Errorf("expense %d: %w", i, err))
			return
		}
	}
	for i := range req.Incomes {
		req.Incomes[i].DriverID = req.DriverID
		if err := req.Incomes[i].Validate(); err != nil {
			writeDomainError(w, fmt.Errorf("income %d: %w", i, err))
			return
		}
	}

	for _, rec := range req.Expenses {
		if _, err := s.expenses.CreateExpense(r.Context(), rec); err != nil {
			s.logger.ErrorContext(r.Context(), "import expense failed", log.FieldError, err, log.FieldDriverID, req.DriverID)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	for _, rec := range req.Incomes {
		if _, err := s.incomes.CreateIncome(r.Context(), rec); err != nil {
			s.logger.ErrorContext(r.Context(), "import income failed", log.FieldError, err, log.FieldDriverID, req.DriverID)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	s.invalidateSummaries(req.DriverID)
	s.logger.InfoContext(r.Context(), "records imported",
		log.FieldDriverID, req.DriverID,
		"expenses", len(req.Expenses),
		"incomes", len(req.Incomes))
	writeJSON(w, http.StatusOK, importResponse{
		ExpensesImported: len(req.Expenses),
		IncomesImported:  len(req.Incomes),
	})
}
