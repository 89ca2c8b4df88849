package report

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"taxibook/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(id, iso, category, merchant, excl string) core.ExpenseRecord {
	split := core.ComputeFromExclTax(dec(excl))
	return core.ExpenseRecord{
		ID:            id,
		DriverID:      "drv-1",
		Date:          core.NewISODate(iso),
		CategoryID:    category,
		Merchant:      merchant,
		AmountExclTax: split.AmountExclTax,
		TPS:           split.TPS,
		TVQ:           split.TVQ,
		Total:         split.Total,
	}
}

func income(id, iso, category, desc, amount string) core.IncomeRecord {
	return core.IncomeRecord{
		ID:          id,
		DriverID:    "drv-1",
		Date:        core.NewISODate(iso),
		CategoryID:  category,
		Description: desc,
		Amount:      dec(amount),
	}
}

func TestNormalizeExpense(t *testing.T) {
	row, err := NormalizeExpense(expense("e1", "2025-01-15", "carburant", "Shell Centre-Ville", "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Date != "2025-01-15" || row.Type != core.RowExpense {
		t.Fatalf("row header = %q/%q", row.Date, row.Type)
	}
	if row.Category != "Carburant" {
		t.Fatalf("category = %q, want display label", row.Category)
	}
	if !row.TPS.Equal(dec("5")) || !row.TVQ.Equal(dec("9.98")) || !row.Total.Equal(dec("114.98")) {
		t.Fatalf("tax fields not copied verbatim: %s/%s/%s", row.TPS, row.TVQ, row.Total)
	}
}

func TestNormalizeExpenseEpochDate(t *testing.T) {
	rec := expense("e1", "", "carburant", "Shell", "50")
	rec.Date = core.NewEpochDate(1736899200) // 2025-01-15T00:00:00Z
	row, err := NormalizeExpense(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Date != "2025-01-15" {
		t.Fatalf("date = %q, want 2025-01-15", row.Date)
	}
}

func TestNormalizeExpenseUnknownCategory(t *testing.T) {
	_, err := NormalizeExpense(expense("e1", "2025-01-15", "essence", "Shell", "50"))
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestNormalizeExpenseBadDate(t *testing.T) {
	_, err := NormalizeExpense(expense("e1", "15/01/2025", "carburant", "Shell", "50"))
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestNormalizeIncome(t *testing.T) {
	row, err := NormalizeIncome(income("i1", "2025-01-16", "course", "Aéroport YUL", "42.50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Type != core.RowIncome || row.Category != "Courses" {
		t.Fatalf("row = %q/%q", row.Type, row.Category)
	}
	if !row.TPS.IsZero() || !row.TVQ.IsZero() {
		t.Fatalf("income rows must carry zero tax, got %s/%s", row.TPS, row.TVQ)
	}
	if !row.Total.Equal(dec("42.50")) || !row.AmountExclTax.Equal(dec("42.50")) {
		t.Fatalf("income total must equal amount: %s/%s", row.Total, row.AmountExclTax)
	}
}

func TestNormalizeIncomeDefaultDescription(t *testing.T) {
	row, err := NormalizeIncome(income("i1", "2025-01-16", "course", "  ", "10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Description != core.DefaultIncomeDescription {
		t.Fatalf("description = %q, want placeholder", row.Description)
	}
}
