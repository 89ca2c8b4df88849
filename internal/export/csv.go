// Package export renders aggregated reports for the outside world:
// a byte-stable CSV, a human-readable full report text, and the
// three-sheet workbook layout spreadsheet writers consume.
package export

import (
	"strings"

	"taxibook/internal/core"
)

type Locale string

const (
	LocaleFR Locale = "fr"
	LocaleEN Locale = "en"
)

// Fixed 11-column header. The trailing Payment and Receipt columns are
// reserved and always empty; existing spreadsheet tooling expects them.
var csvHeaders = map[Locale][]string{
	LocaleFR: {"Date", "Type", "Catégorie", "Description", "Montant HT", "TPS", "TVQ", "Total", "Paiement", "Notes", "Reçu"},
	LocaleEN: {"Date", "Type", "Category", "Description", "Amount Excl. Tax", "GST/TPS", "QST/TVQ", "Total", "Payment", "Notes", "Receipt"},
}

// quoteField wraps a free-text field in double quotes, doubling any
// inner quote. Description and notes are user text and could otherwise
// inject delimiters into the line.
func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CSV renders rows as comma-delimited text with one locale-dependent
// header line. The column order, quoting and 2-decimal fixed-point
// money formatting are byte-compatible with the spreadsheet tooling
// that consumes these exports; do not reorder or re-quote.
func CSV(rows []core.ReportRow, locale Locale) string {
	header, ok := csvHeaders[locale]
	if !ok {
		header = csvHeaders[LocaleFR]
	}

	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')

	for _, row := range rows {
		fields := []string{
			row.Date,
			string(row.Type),
			row.Category,
			quoteField(row.Description),
			core.FormatAmount(row.AmountExclTax),
			core.FormatAmount(row.TPS),
			core.FormatAmount(row.TVQ),
			core.FormatAmount(row.Total),
			"", // payment, reserved
			quoteField(row.Notes),
			"", // receipt, reserved
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteByte('\n')
	}
	return b.String()
}
