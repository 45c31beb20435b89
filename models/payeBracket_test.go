package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func bracketUpper(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestValidateBrackets_Valid(t *testing.T) {
	err := validateBrackets([]NewPAYEBracket{
		{Lower: decimal.Zero, Upper: bracketUpper(490)},
		{Lower: decimal.NewFromInt(490), Upper: bracketUpper(600), RatePercent: decimal.NewFromInt(5)},
		{Lower: decimal.NewFromInt(600), RatePercent: decimal.NewFromInt(10)},
	})
	if err != nil {
		t.Fatalf("expected valid schedule; got %v", err)
	}
}

func TestValidateBrackets_Empty(t *testing.T) {
	if err := validateBrackets(nil); err == nil {
		t.Fatal("expected error for empty schedule")
	}
}

func TestValidateBrackets_MustStartAtZero(t *testing.T) {
	err := validateBrackets([]NewPAYEBracket{
		{Lower: decimal.NewFromInt(100)},
	})
	if err == nil {
		t.Fatal("expected error for schedule not starting at zero")
	}
}

func TestValidateBrackets_Gap(t *testing.T) {
	err := validateBrackets([]NewPAYEBracket{
		{Lower: decimal.Zero, Upper: bracketUpper(490)},
		{Lower: decimal.NewFromInt(500)},
	})
	if err == nil {
		t.Fatal("expected error for non-contiguous brackets")
	}
}

func TestValidateBrackets_LastMustBeOpenEnded(t *testing.T) {
	err := validateBrackets([]NewPAYEBracket{
		{Lower: decimal.Zero, Upper: bracketUpper(490)},
		{Lower: decimal.NewFromInt(490), Upper: bracketUpper(600)},
	})
	if err == nil {
		t.Fatal("expected error when last bracket has an upper bound")
	}
}

func TestValidateBrackets_OnlyLastOpenEnded(t *testing.T) {
	err := validateBrackets([]NewPAYEBracket{
		{Lower: decimal.Zero},
		{Lower: decimal.NewFromInt(490)},
	})
	if err == nil {
		t.Fatal("expected error for open-ended bracket in the middle")
	}
}

func TestValidateBrackets_NegativeRate(t *testing.T) {
	err := validateBrackets([]NewPAYEBracket{
		{Lower: decimal.Zero, RatePercent: decimal.NewFromInt(-5)},
	})
	if err == nil {
		t.Fatal("expected error for negative rate")
	}
}
