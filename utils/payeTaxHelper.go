package utils

import (
	"sort"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// TaxBand is one slab of a progressive income tax schedule.
// Upper is nil for the open-ended terminal band.
type TaxBand struct {
	Lower       decimal.Decimal
	Upper       *decimal.Decimal
	RatePercent decimal.Decimal
}

// CalculateProgressiveTax charges each slab of taxableIncome at its band's
// rate and sums the results. Income at or below zero is not taxed.
// Bands are sorted by lower bound before charging, so callers may pass
// them in any order.
func CalculateProgressiveTax(taxableIncome decimal.Decimal, bands []TaxBand) decimal.Decimal {
	if taxableIncome.LessThanOrEqual(decimal.Zero) || len(bands) == 0 {
		return decimal.Zero
	}

	sorted := make([]TaxBand, len(bands))
	copy(sorted, bands)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Lower.LessThan(sorted[j].Lower)
	})

	tax := decimal.Zero
	for _, band := range sorted {
		if taxableIncome.LessThanOrEqual(band.Lower) {
			break
		}
		slabTop := taxableIncome
		if band.Upper != nil && band.Upper.LessThan(slabTop) {
			slabTop = *band.Upper
		}
		portion := slabTop.Sub(band.Lower)
		if portion.LessThanOrEqual(decimal.Zero) {
			continue
		}
		tax = tax.Add(portion.Mul(band.RatePercent).Div(oneHundred))
	}
	return tax
}

// CalculateStatutoryContribution returns the employee deduction and the
// employer top-up for a gross pay. Rates are percentages of gross.
// Non-positive gross pay yields zero contributions on both sides.
func CalculateStatutoryContribution(grossPay, employeeRatePercent, employerRatePercent decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if grossPay.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero
	}
	employee := grossPay.Mul(employeeRatePercent).Div(oneHundred)
	employer := grossPay.Mul(employerRatePercent).Div(oneHundred)
	return employee, employer
}
