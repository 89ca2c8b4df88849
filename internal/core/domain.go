package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type RowType string

const (
	RowExpense RowType = "EXPENSE"
	RowIncome  RowType = "INCOME"
)

// Placeholder used when an income record carries no description.
const DefaultIncomeDescription = "Course"

type (
	// ExpenseRecord is one business expense as stored by the ledger.
	// Tax fields always travel together: an edit rewrites all four.
	ExpenseRecord struct {
		ID            string          `json:"id"`
		DriverID      string          `json:"driverId"`
		Date          StoredDate      `json:"date"`
		CategoryID    string          `json:"categoryId"`
		Merchant      string          `json:"merchant"`
		AmountExclTax decimal.Decimal `json:"amountExclTax"`
		TPS           decimal.Decimal `json:"tps"`
		TVQ           decimal.Decimal `json:"tvq"`
		Total         decimal.Decimal `json:"total"`
		Notes         string          `json:"notes,omitempty"`
		ReceiptRef    string          `json:"receiptRef,omitempty"`
	}

	// IncomeRecord is one revenue event (a fare, a tip, a contract payment).
	// Incomes carry no tax fields; the taxable amount equals the total.
	IncomeRecord struct {
		ID          string          `json:"id"`
		DriverID    string          `json:"driverId"`
		Date        StoredDate      `json:"date"`
		CategoryID  string          `json:"categoryId"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Notes       string          `json:"notes,omitempty"`
	}

	// ReportRow is the canonical normalized form of one transaction.
	// Date is always YYYY-MM-DD, so rows sort correctly as strings.
	ReportRow struct {
		Date          string
		Type          RowType
		Category      string
		Description   string
		AmountExclTax decimal.Decimal
		TPS           decimal.Decimal
		TVQ           decimal.Decimal
		Total         decimal.Decimal
		Notes         string
	}

	// ReportSummary aggregates a row set for one reporting period.
	ReportSummary struct {
		TotalIncome        decimal.Decimal
		TotalExpenses      decimal.Decimal
		NetProfit          decimal.Decimal
		ExpensesByCategory map[string]decimal.Decimal
		IncomesByCategory  map[string]decimal.Decimal
		TPSPaid            decimal.Decimal
		TVQPaid            decimal.Decimal
	}
)

var (
	ErrUnknownCategory = errors.New("unknown category id")
	ErrInvalidDate     = errors.New("invalid date representation")
	ErrInvalidRange    = errors.New("range end before start")
	ErrInvalidAmount   = errors.New("invalid amount")
)

func (e ExpenseRecord) Validate() error {
	if strings.TrimSpace(e.DriverID) == "" {
		return errors.New("missing driver id")
	}
	if _, ok := ExpenseCategoryLabel(e.CategoryID); !ok {
		return ErrUnknownCategory
	}
	if _, err := e.Date.Time(); err != nil {
		return err
	}
	if e.Total.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (i IncomeRecord) Validate() error {
	if strings.TrimSpace(i.DriverID) == "" {
		return errors.New("missing driver id")
	}
	if _, ok := IncomeCategoryLabel(i.CategoryID); !ok {
		return ErrUnknownCategory
	}
	if _, err := i.Date.Time(); err != nil {
		return err
	}
	if i.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
