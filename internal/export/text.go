package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"taxibook/internal/core"
	"taxibook/internal/report"
)

type textLabels struct {
	title         string
	totalIncome   string
	totalExpenses string
	netProfit     string
	tpsPaid       string
	tvqPaid       string
	byCategory    string
}

var textLabelSets = map[Locale]textLabels{
	LocaleFR: {
		title:         "Rapport comptable",
		totalIncome:   "Revenus totaux",
		totalExpenses: "Dépenses totales",
		netProfit:     "Profit net",
		tpsPaid:       "TPS payée",
		tvqPaid:       "TVQ payée",
		byCategory:    "Dépenses par catégorie",
	},
	LocaleEN: {
		title:         "Accounting report",
		totalIncome:   "Total income",
		totalExpenses: "Total expenses",
		netProfit:     "Net profit",
		tpsPaid:       "GST paid",
		tvqPaid:       "QST paid",
		byCategory:    "Expenses by category",
	},
}

// FullReportText builds the report for the given month (or the whole
// year when month is 0), then emits the summary block followed by a
// blank line and the CSV body. Summary lines keep the "label:,value $"
// pattern the original exports used.
func FullReportText(expenses []core.ExpenseRecord, incomes []core.IncomeRecord, year, month int, locale Locale) (string, error) {
	var p report.Period
	periodLabel := fmt.Sprintf("%d", year)
	if month > 0 {
		p = report.MonthlyRange(year, month)
		periodLabel = fmt.Sprintf("%d-%02d", year, month)
	} else {
		p = report.AnnualRange(year)
	}

	rows, err := report.Build(expenses, incomes, p)
	if err != nil {
		return "", err
	}
	s := report.Summarize(rows)

	labels, ok := textLabelSets[locale]
	if !ok {
		labels = textLabelSets[LocaleFR]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labels.title, periodLabel)
	writeSummaryLine(&b, labels.totalIncome, s.TotalIncome)
	writeSummaryLine(&b, labels.totalExpenses, s.TotalExpenses)
	writeSummaryLine(&b, labels.netProfit, s.NetProfit)
	writeSummaryLine(&b, labels.tpsPaid, s.TPSPaid)
	writeSummaryLine(&b, labels.tvqPaid, s.TVQPaid)

	if len(s.ExpensesByCategory) > 0 {
		fmt.Fprintf(&b, "%s\n", labels.byCategory)
		for _, cat := range sortedCategories(s) {
			writeSummaryLine(&b, cat.label, cat.amount)
		}
	}

	b.WriteByte('\n')
	b.WriteString(CSV(rows, locale))
	return b.String(), nil
}

func writeSummaryLine(b *strings.Builder, label string, amount decimal.Decimal) {
	fmt.Fprintf(b, "%s:,%s $\n", label, core.FormatAmount(amount))
}

type categoryTotal struct {
	label  string
	amount decimal.Decimal
}

// sortedCategories orders expense buckets descending by amount, with
// the label as tie-break so output is deterministic.
func sortedCategories(s core.ReportSummary) []categoryTotal {
	labels := make([]string, 0, len(s.ExpensesByCategory))
	for label := range s.ExpensesByCategory {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := s.ExpensesByCategory[labels[i]], s.ExpensesByCategory[labels[j]]
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return labels[i] < labels[j]
	})
	out := make([]categoryTotal, len(labels))
	for i, label := range labels {
		out[i] = categoryTotal{label: label, amount: s.ExpensesByCategory[label]}
	}
	return out
}
