package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var (
	statusDue  = time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	beforeDue  = time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	pastDue    = time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	statusT100 = decimal.NewFromInt(100)
)

func TestDeriveInvoiceStatus_Pending(t *testing.T) {
	got := DeriveInvoiceStatus(statusT100, decimal.Zero, statusDue, beforeDue)
	if got != InvoiceStatusPending {
		t.Fatalf("expected Pending; got %s", got)
	}
}

func TestDeriveInvoiceStatus_Overdue(t *testing.T) {
	got := DeriveInvoiceStatus(statusT100, decimal.Zero, statusDue, pastDue)
	if got != InvoiceStatusOverdue {
		t.Fatalf("expected Overdue; got %s", got)
	}
}

func TestDeriveInvoiceStatus_PartiallyPaid(t *testing.T) {
	got := DeriveInvoiceStatus(statusT100, decimal.NewFromInt(40), statusDue, beforeDue)
	if got != InvoiceStatusPartiallyPaid {
		t.Fatalf("expected Partially Paid; got %s", got)
	}
}

// A partially paid invoice past its due date stays Partially Paid.
func TestDeriveInvoiceStatus_PartiallyPaidBeatsOverdue(t *testing.T) {
	got := DeriveInvoiceStatus(statusT100, decimal.NewFromInt(40), statusDue, pastDue)
	if got != InvoiceStatusPartiallyPaid {
		t.Fatalf("expected Partially Paid for past-due partial payment; got %s", got)
	}
}

func TestDeriveInvoiceStatus_PaidBeatsOverdue(t *testing.T) {
	got := DeriveInvoiceStatus(statusT100, statusT100, statusDue, pastDue)
	if got != InvoiceStatusPaid {
		t.Fatalf("expected Paid; got %s", got)
	}
}

// Settling to within 0.001 of the total counts as fully paid.
func TestDeriveInvoiceStatus_PaidWithinThreshold(t *testing.T) {
	paid := statusT100.Sub(decimal.NewFromFloat(0.0005))
	got := DeriveInvoiceStatus(statusT100, paid, statusDue, beforeDue)
	if got != InvoiceStatusPaid {
		t.Fatalf("expected Paid within rounding threshold; got %s", got)
	}

	paid = statusT100.Sub(decimal.NewFromFloat(0.01))
	got = DeriveInvoiceStatus(statusT100, paid, statusDue, beforeDue)
	if got != InvoiceStatusPartiallyPaid {
		t.Fatalf("expected Partially Paid outside threshold; got %s", got)
	}
}

func TestDeriveInvoiceStatus_Overpaid(t *testing.T) {
	got := DeriveInvoiceStatus(statusT100, decimal.NewFromInt(150), statusDue, beforeDue)
	if got != InvoiceStatusPaid {
		t.Fatalf("expected Paid for overpayment; got %s", got)
	}
}
