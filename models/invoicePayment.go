package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoicePayment rows are append-only. Corrections are recorded as new
// payments, never by editing or deleting settled ones.
type InvoicePayment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BusinessId      string          `gorm:"index;not null" json:"business_id" binding:"required"`
	InvoiceId       int             `gorm:"index;not null" json:"invoice_id" binding:"required"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount" binding:"required"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date" binding:"required"`
	PaymentMethod   PaymentMethod   `gorm:"type:enum('Cash', 'BankTransfer', 'MobileMoney', 'Cheque', 'Card');default:Cash" json:"payment_method"`
	ReferenceNumber string          `gorm:"size:255;default:null" json:"reference_number"`
	// RecordedBy is the id of the user who settled the payment.
	RecordedBy int       `gorm:"index;default:null" json:"recorded_by"`
	Notes      string    `gorm:"type:text;default:null" json:"notes"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewInvoicePayment struct {
	InvoiceId       int             `json:"invoice_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate     time.Time       `json:"payment_date" binding:"required"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

// SettlementResult reports everything one payment did: the payment row,
// the invoice's post-settlement state, any stock decrements triggered by
// the invoice turning Paid, and non-fatal warnings.
type SettlementResult struct {
	Payment              *InvoicePayment       `json:"payment"`
	Invoice              *Invoice              `json:"invoice"`
	InventoryAdjustments []InventoryAdjustment `json:"inventory_adjustments"`
	Warnings             []string              `json:"warnings"`
}

func (input NewInvoicePayment) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("payment amount must be positive")
	}
	if err := utils.ValidateResourceId[Invoice](ctx, businessId, input.InvoiceId); err != nil {
		return errors.New("invoice not found")
	}
	return nil
}

// RecordInvoicePayment settles a payment against an invoice. Inside one
// transaction it appends the payment row, accumulates the invoice's paid
// total, re-derives its status, and, exactly on the transition into Paid,
// decrements stock for every inventory-backed line. A later payment on an
// already-Paid invoice never decrements again.
func RecordInvoicePayment(ctx context.Context, input *NewInvoicePayment) (*SettlementResult, error) {
	moduleName := "InvoicePayment"
	functionName := "RecordInvoicePayment"

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	// Lock the invoice row so concurrent settlements serialize and the
	// paid transition fires exactly once.
	var invoice Invoice
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, input.InvoiceId).
		First(&invoice).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("invoice not found")
		}
		return nil, err
	}
	if err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoice.ID).
		Order("id").
		Find(&invoice.LineItems).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	wasPaid := invoice.CurrentStatus == InvoiceStatusPaid
	recordedBy, _ := utils.GetUserIdFromContext(ctx)

	payment := InvoicePayment{
		BusinessId:      businessId,
		InvoiceId:       input.InvoiceId,
		Amount:          input.Amount,
		PaymentDate:     input.PaymentDate,
		PaymentMethod:   input.PaymentMethod,
		ReferenceNumber: input.ReferenceNumber,
		RecordedBy:      recordedBy,
		Notes:           input.Notes,
	}
	if payment.PaymentMethod == "" {
		payment.PaymentMethod = PaymentMethodCash
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	newPaid := invoice.TotalPaidAmount.Add(input.Amount)
	newStatus := DeriveInvoiceStatus(invoice.Total, newPaid, invoice.DueDate, time.Now().UTC())

	warnings := []string{}
	adjustments := []InventoryAdjustment{}
	if newStatus == InvoiceStatusPaid && !wasPaid {
		for _, line := range invoice.LineItems {
			if line.ItemId == 0 {
				continue
			}
			adj, err := decrementInventoryItem(tx, ctx, businessId, line.ItemId, line.Quantity, MissingItemWarn, &warnings, moduleName, functionName)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			if adj != nil {
				adjustments = append(adjustments, *adj)
			}
		}
	}

	if err := tx.WithContext(ctx).Model(&Invoice{}).
		Where("business_id = ? AND id = ?", businessId, invoice.ID).
		Updates(map[string]interface{}{
			"total_paid_amount": newPaid,
			"current_status":    newStatus,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	invoice.TotalPaidAmount = newPaid
	invoice.CurrentStatus = newStatus

	if err := PublishToLedger(ctx, tx, businessId, payment.PaymentDate, payment.ID, LedgerReferenceTypeInvoicePayment, payment, LedgerEventActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &SettlementResult{
		Payment:              &payment,
		Invoice:              &invoice,
		InventoryAdjustments: adjustments,
		Warnings:             warnings,
	}, nil
}

func GetInvoicePayment(ctx context.Context, id int) (*InvoicePayment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[InvoicePayment](ctx, businessId, id)
}

func GetInvoicePayments(ctx context.Context, invoiceId int) ([]*InvoicePayment, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	var payments []*InvoicePayment
	if err := db.WithContext(ctx).
		Where("business_id = ? AND invoice_id = ?", businessId, invoiceId).
		Order("id").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
