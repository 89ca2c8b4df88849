// Package report turns stored expense and income records into
// canonical, date-sorted report rows and period summaries. Everything
// here is a pure transform over in-memory snapshots: callers load the
// records first, nothing is mutated, outputs are freshly allocated.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"taxibook/internal/core"
)

// NormalizeExpense converts a stored expense into a canonical row.
// Tax fields are copied verbatim: the stored record is the source of
// truth and is never recomputed here.
func NormalizeExpense(rec core.ExpenseRecord) (core.ReportRow, error) {
	day, err := rec.Date.DayKey()
	if err != nil {
		return core.ReportRow{}, fmt.Errorf("expense %s: %w", rec.ID, err)
	}
	label, ok := core.ExpenseCategoryLabel(rec.CategoryID)
	if !ok {
		return core.ReportRow{}, fmt.Errorf("expense %s: %w: %q", rec.ID, core.ErrUnknownCategory, rec.CategoryID)
	}
	return core.ReportRow{
		Date:          day,
		Type:          core.RowExpense,
		Category:      label,
		Description:   rec.Merchant,
		AmountExclTax: rec.AmountExclTax,
		TPS:           rec.TPS,
		TVQ:           rec.TVQ,
		Total:         rec.Total,
		Notes:         rec.Notes,
	}, nil
}

// NormalizeIncome converts a stored income into a canonical row.
// Incomes are not taxed in this domain model, so tps and tvq are
// always zero and the taxable base equals the total.
func NormalizeIncome(rec core.IncomeRecord) (core.ReportRow, error) {
	day, err := rec.Date.DayKey()
	if err != nil {
		return core.ReportRow{}, fmt.Errorf("income %s: %w", rec.ID, err)
	}
	label, ok := core.IncomeCategoryLabel(rec.CategoryID)
	if !ok {
		return core.ReportRow{}, fmt.Errorf("income %s: %w: %q", rec.ID, core.ErrUnknownCategory, rec.CategoryID)
	}
	desc := strings.TrimSpace(rec.Description)
	if desc == "" {
		desc = core.DefaultIncomeDescription
	}
	return core.ReportRow{
		Date:          day,
		Type:          core.RowIncome,
		Category:      label,
		Description:   desc,
		AmountExclTax: rec.Amount,
		TPS:           decimal.Zero,
		TVQ:           decimal.Zero,
		Total:         rec.Amount,
		Notes:         rec.Notes,
	}, nil
}
