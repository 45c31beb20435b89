package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTaxLineAmounts_EachTypeComputedOffSubtotal(t *testing.T) {
	subtotal := decimal.NewFromInt(200)
	amounts, taxTotal := taxLineAmounts(subtotal, []NewTaxLine{
		{Name: "VAT", RatePercent: decimal.NewFromInt(15)},
		{Name: "NHIL", RatePercent: decimal.NewFromFloat(2.5)},
	})

	if len(amounts) != 2 {
		t.Fatalf("expected 2 tax amounts; got %d", len(amounts))
	}
	// each tax applies to the subtotal, not to the running total
	if !amounts[0].Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected VAT 30; got %s", amounts[0].String())
	}
	if !amounts[1].Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected NHIL 5; got %s", amounts[1].String())
	}
	if !taxTotal.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("expected tax total 35; got %s", taxTotal.String())
	}
}

func TestTaxLineAmounts_NoTaxes(t *testing.T) {
	amounts, taxTotal := taxLineAmounts(decimal.NewFromInt(100), nil)
	if len(amounts) != 0 {
		t.Fatalf("expected no amounts; got %d", len(amounts))
	}
	if !taxTotal.IsZero() {
		t.Fatalf("expected zero tax total; got %s", taxTotal.String())
	}
}

func TestValidateTaxLines(t *testing.T) {
	if err := validateTaxLines([]NewTaxLine{{RatePercent: decimal.NewFromInt(15)}}); err == nil {
		t.Fatal("expected error for unnamed tax line")
	}
	if err := validateTaxLines([]NewTaxLine{{Name: "VAT", RatePercent: decimal.NewFromInt(-1)}}); err == nil {
		t.Fatal("expected error for negative tax rate")
	}
	if err := validateTaxLines([]NewTaxLine{{Name: "VAT", RatePercent: decimal.NewFromInt(15)}}); err != nil {
		t.Fatalf("expected valid tax line; got %v", err)
	}
}
