package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/shopspring/decimal"
)

// paidThreshold absorbs sub-thousandth rounding residue so an invoice
// settled to within 0.001 of its total still counts as fully paid.
var paidThreshold = decimal.NewFromFloat(0.001)

type statusFacts struct {
	Total     decimal.Decimal
	TotalPaid decimal.Decimal
	DueDate   time.Time
	AsOf      time.Time
}

// statusRules are evaluated top to bottom, first match wins.
// A partially paid invoice past its due date therefore stays
// "Partially Paid", never "Overdue".
var statusRules = []struct {
	status  InvoiceStatus
	applies func(f statusFacts) bool
}{
	{
		status: InvoiceStatusPaid,
		applies: func(f statusFacts) bool {
			return f.Total.Sub(f.TotalPaid).LessThanOrEqual(paidThreshold)
		},
	},
	{
		status: InvoiceStatusPartiallyPaid,
		applies: func(f statusFacts) bool {
			return f.TotalPaid.GreaterThan(decimal.Zero)
		},
	},
	{
		status: InvoiceStatusOverdue,
		applies: func(f statusFacts) bool {
			return f.AsOf.After(f.DueDate)
		},
	},
	{
		status:  InvoiceStatusPending,
		applies: func(f statusFacts) bool { return true },
	},
}

// DeriveInvoiceStatus computes the display status of an invoice from its
// total, amount paid to date, and due date, evaluated as of asOf.
func DeriveInvoiceStatus(total, totalPaid decimal.Decimal, dueDate time.Time, asOf time.Time) InvoiceStatus {
	facts := statusFacts{Total: total, TotalPaid: totalPaid, DueDate: dueDate, AsOf: asOf}
	for _, rule := range statusRules {
		if rule.applies(facts) {
			return rule.status
		}
	}
	return InvoiceStatusPending
}

// RefreshInvoiceStatuses re-derives statuses for all unpaid invoices of a
// business, typically from a scheduled sweep so Pending invoices flip to
// Overdue once their due date passes. Returns how many rows changed.
func RefreshInvoiceStatuses(ctx context.Context, businessId string, asOf time.Time) (int, error) {
	db := config.GetDB()

	var invoices []*Invoice
	if err := db.WithContext(ctx).
		Where("business_id = ? AND current_status <> ?", businessId, InvoiceStatusPaid).
		Find(&invoices).Error; err != nil {
		return 0, err
	}

	updated := 0
	for _, invoice := range invoices {
		status := DeriveInvoiceStatus(invoice.Total, invoice.TotalPaidAmount, invoice.DueDate, asOf)
		if status == invoice.CurrentStatus {
			continue
		}
		if err := db.WithContext(ctx).Model(&Invoice{}).
			Where("business_id = ? AND id = ?", businessId, invoice.ID).
			Update("current_status", status).Error; err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
