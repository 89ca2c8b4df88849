package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"taxibook/internal/core"
)

// FilterExpenses keeps the expenses whose date falls inside the period.
// A record with an unreadable date fails the whole filter: substituting
// "now" would silently move the record across period boundaries.
func FilterExpenses(records []core.ExpenseRecord, p Period) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	for _, rec := range records {
		t, err := rec.Date.Time()
		if err != nil {
			return nil, err
		}
		if p.Contains(t) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FilterIncomes keeps the incomes whose date falls inside the period.
func FilterIncomes(records []core.IncomeRecord, p Period) ([]core.IncomeRecord, error) {
	var out []core.IncomeRecord
	for _, rec := range records {
		t, err := rec.Date.Time()
		if err != nil {
			return nil, err
		}
		if p.Contains(t) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Build filters both record sets by the same period, normalizes them
// and returns rows sorted ascending by day.
//
// The sort key is the YYYY-MM-DD string and the sort is stable, so
// same-day rows keep their insertion order: expenses first, then
// incomes, each in input order. There is deliberately no time-of-day
// sub-sort; existing exports depend on this ordering.
func Build(expenses []core.ExpenseRecord, incomes []core.IncomeRecord, p Period) ([]core.ReportRow, error) {
	exp, err := FilterExpenses(expenses, p)
	if err != nil {
		return nil, err
	}
	inc, err := FilterIncomes(incomes, p)
	if err != nil {
		return nil, err
	}

	rows := make([]core.ReportRow, 0, len(exp)+len(inc))
	for _, rec := range exp {
		row, err := NormalizeExpense(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	for _, rec := range inc {
		row, err := NormalizeIncome(rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date < rows[j].Date
	})
	return rows, nil
}

// Summarize accumulates a row set in a single pass. Category maps are
// keyed by display label, so distinct raw ids sharing a label collapse
// into one reporting bucket on purpose. NetProfit is computed once from
// the final totals, not incrementally.
func Summarize(rows []core.ReportRow) core.ReportSummary {
	s := core.ReportSummary{
		ExpensesByCategory: map[string]decimal.Decimal{},
		IncomesByCategory:  map[string]decimal.Decimal{},
	}
	for _, row := range rows {
		switch row.Type {
		case core.RowIncome:
			s.TotalIncome = s.TotalIncome.Add(row.Total)
			s.IncomesByCategory[row.Category] = s.IncomesByCategory[row.Category].Add(row.Total)
		case core.RowExpense:
			s.TotalExpenses = s.TotalExpenses.Add(row.Total)
			s.TPSPaid = s.TPSPaid.Add(row.TPS)
			s.TVQPaid = s.TVQPaid.Add(row.TVQ)
			s.ExpensesByCategory[row.Category] = s.ExpensesByCategory[row.Category].Add(row.Total)
		}
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}
