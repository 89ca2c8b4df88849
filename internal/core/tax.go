package core

import "github.com/shopspring/decimal"

// Québec sales tax rates. Jurisdiction constants, never configurable.
var (
	TPSRate = decimal.RequireFromString("0.05")
	TVQRate = decimal.RequireFromString("0.09975")
)

// TaxSplit is the three-way breakdown of a taxed amount.
// Total is the sum of the three independently rounded components.
type TaxSplit struct {
	AmountExclTax decimal.Decimal `json:"amountExclTax"`
	TPS           decimal.Decimal `json:"tps"`
	TVQ           decimal.Decimal `json:"tvq"`
	Total         decimal.Decimal `json:"total"`
}

// ComputeFromExclTax derives TPS and TVQ from a pre-tax amount.
//
// Each of the three components is rounded to the cent on its own before
// Total is formed from their sum. Rounding only the final total instead
// would shift historical report outputs by up to a cent per row, so the
// per-field rounding is a business rule, not an implementation detail.
// Negative inputs produce negative splits; validation happens upstream.
func ComputeFromExclTax(amountExclTax decimal.Decimal) TaxSplit {
	excl := Round2(amountExclTax)
	tps := Round2(amountExclTax.Mul(TPSRate))
	tvq := Round2(amountExclTax.Mul(TVQRate))
	return TaxSplit{
		AmountExclTax: excl,
		TPS:           tps,
		TVQ:           tvq,
		Total:         Round2(excl.Add(tps).Add(tvq)),
	}
}

// ComputeFromInclTax solves for the pre-tax amount of a tax-included
// total, then splits it. Round-tripping through ComputeFromExclTax is
// exact only to the cent because of the independent rounding above.
func ComputeFromInclTax(totalTTC decimal.Decimal) TaxSplit {
	divisor := decimal.New(1, 0).Add(TPSRate).Add(TVQRate)
	return ComputeFromExclTax(totalTTC.DivRound(divisor, 6))
}
