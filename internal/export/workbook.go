package export

import (
	"fmt"

	"github.com/shopspring/decimal"

	"taxibook/internal/core"
	"taxibook/internal/report"
)

// Sheet is one named tab of cells, the arrays-of-arrays shape the
// spreadsheet-writing collaborator accepts.
type Sheet struct {
	Name string
	Rows [][]any
}

type WorkbookOptions struct {
	Year       int
	Month      int // 0 means the full year
	DriverName string
	Locale     Locale
}

const (
	sheetJournal   = "Journal Détaillé"
	sheetSynthesis = "Synthèse Catégories"
	sheetFiscal    = "Résumé Fiscal"
)

// WorkbookSheets builds the three export tabs: the detailed journal,
// the per-category synthesis, and the fiscal summary. Numeric cells are
// rounded to 2 decimals before insertion; percentage cells are strings
// with a % suffix, not numeric-typed percentages.
func WorkbookSheets(expenses []core.ExpenseRecord, incomes []core.IncomeRecord, opts WorkbookOptions) ([]Sheet, error) {
	var p report.Period
	if opts.Month > 0 {
		p = report.MonthlyRange(opts.Year, opts.Month)
	} else {
		p = report.AnnualRange(opts.Year)
	}
	rows, err := report.Build(expenses, incomes, p)
	if err != nil {
		return nil, err
	}
	s := report.Summarize(rows)

	return []Sheet{
		journalSheet(rows, s, opts),
		synthesisSheet(s),
		fiscalSheet(s, opts),
	}, nil
}

func cell(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func journalSheet(rows []core.ReportRow, s core.ReportSummary, opts WorkbookOptions) Sheet {
	header, ok := csvHeaders[opts.Locale]
	if !ok {
		header = csvHeaders[LocaleFR]
	}

	out := make([][]any, 0, len(rows)+6)
	out = append(out, toAnyRow(header))
	for _, row := range rows {
		out = append(out, []any{
			row.Date,
			string(row.Type),
			row.Category,
			row.Description,
			cell(row.AmountExclTax),
			cell(row.TPS),
			cell(row.TVQ),
			cell(row.Total),
			"",
			row.Notes,
			"",
		})
	}
	out = append(out, []any{})
	out = append(out, []any{"Totaux dépenses", "", "", "", "", cell(s.TPSPaid), cell(s.TVQPaid), cell(s.TotalExpenses)})
	out = append(out, []any{"Totaux revenus", "", "", "", "", "", "", cell(s.TotalIncome)})
	out = append(out, []any{})
	out = append(out, []any{fmt.Sprintf("Signature du chauffeur (%s): ______________________", opts.DriverName)})
	return Sheet{Name: sheetJournal, Rows: out}
}

func synthesisSheet(s core.ReportSummary) Sheet {
	out := [][]any{{"Catégorie", "Montant", "% des dépenses"}}
	for _, cat := range sortedCategories(s) {
		pct := decimal.Zero
		if !s.TotalExpenses.IsZero() {
			pct = cat.amount.Div(s.TotalExpenses).Mul(decimal.New(100, 0))
		}
		out = append(out, []any{cat.label, cell(cat.amount), pct.StringFixed(1) + "%"})
	}
	out = append(out, []any{"Total", cell(s.TotalExpenses), "100.0%"})
	return Sheet{Name: sheetSynthesis, Rows: out}
}

func fiscalSheet(s core.ReportSummary, opts WorkbookOptions) Sheet {
	period := fmt.Sprintf("%d", opts.Year)
	if opts.Month > 0 {
		period = fmt.Sprintf("%d-%02d", opts.Year, opts.Month)
	}
	return Sheet{Name: sheetFiscal, Rows: [][]any{
		{"Période", period},
		{"Revenus totaux", cell(s.TotalIncome)},
		{"Dépenses totales", cell(s.TotalExpenses)},
		{"TPS payée", cell(s.TPSPaid)},
		{"TVQ payée", cell(s.TVQPaid)},
		{"Profit net", cell(s.NetProfit)},
	}}
}

func toAnyRow(fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}
