package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID            int               `gorm:"primary_key" json:"id"`
	BusinessId    string            `gorm:"index;not null" json:"business_id" binding:"required"`
	CustomerId    int               `gorm:"index;not null" json:"customer_id" binding:"required"`
	InvoiceNumber string            `gorm:"size:255;not null" json:"invoice_number"`
	SequenceNo    int64             `gorm:"not null" json:"sequence_no"`
	InvoiceDate   time.Time         `gorm:"not null" json:"invoice_date" binding:"required"`
	DueDate       time.Time         `gorm:"not null" json:"due_date" binding:"required"`
	Notes         string            `gorm:"type:text;default:null" json:"notes"`
	LineItems     []InvoiceLineItem `json:"line_items"`
	Taxes         []InvoiceTax      `json:"taxes"`
	Subtotal      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxAmount     decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	Total         decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"total"`
	// TotalPaidAmount accumulates settled payments; the invoice rows
	// themselves are never edited after payments begin.
	TotalPaidAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_paid_amount"`
	CurrentStatus   InvoiceStatus   `gorm:"type:enum('Pending', 'Partially Paid', 'Paid', 'Overdue');default:Pending" json:"current_status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceLineItem struct {
	ID        int `gorm:"primary_key" json:"id"`
	InvoiceId int `gorm:"index;not null" json:"invoice_id"`
	// ItemId zero means an ad hoc line with no inventory backing.
	ItemId       int             `gorm:"index;default:null" json:"item_id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineSubtotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_subtotal"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// InvoiceTax is one tax type applied to the invoice. Each tax is
// computed independently off the subtotal and the amounts summed.
type InvoiceTax struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	RatePercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate_percent"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewInvoice struct {
	CustomerId  int                  `json:"customer_id" binding:"required"`
	InvoiceDate time.Time            `json:"invoice_date" binding:"required"`
	DueDate     time.Time            `json:"due_date" binding:"required"`
	Notes       string               `json:"notes"`
	LineItems   []NewInvoiceLineItem `json:"line_items"`
	Taxes       []NewTaxLine         `json:"taxes"`
}

type NewInvoiceLineItem struct {
	ItemId    int             `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewTaxLine names one tax type (VAT, NHIL, ...) and its rate.
type NewTaxLine struct {
	Name        string          `json:"name" binding:"required"`
	RatePercent decimal.Decimal `json:"rate_percent"`
}

func validateTaxLines(inputs []NewTaxLine) error {
	for _, tax := range inputs {
		if tax.Name == "" {
			return errors.New("tax line requires a name")
		}
		if tax.RatePercent.IsNegative() {
			return errors.New("tax rate cannot be negative")
		}
	}
	return nil
}

// taxLineAmounts computes each tax type independently off the subtotal.
func taxLineAmounts(subtotal decimal.Decimal, inputs []NewTaxLine) ([]decimal.Decimal, decimal.Decimal) {
	oneHundred := decimal.NewFromInt(100)
	amounts := make([]decimal.Decimal, 0, len(inputs))
	taxTotal := decimal.Zero
	for _, in := range inputs {
		amount := subtotal.Mul(in.RatePercent).Div(oneHundred)
		amounts = append(amounts, amount)
		taxTotal = taxTotal.Add(amount)
	}
	return amounts, taxTotal
}

func (input NewInvoice) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Customer](ctx, businessId, input.CustomerId); err != nil {
		return errors.New("customer not found")
	}
	if len(input.LineItems) == 0 {
		return errors.New("invoice requires at least one line item")
	}
	if input.DueDate.Before(input.InvoiceDate) {
		return errors.New("due date cannot be before invoice date")
	}
	for _, line := range input.LineItems {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return errors.New("line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return errors.New("line unit price cannot be negative")
		}
		if line.ItemId != 0 {
			if err := utils.ValidateResourceId[InventoryItem](ctx, businessId, line.ItemId); err != nil {
				return fmt.Errorf("inventory item %d not found", line.ItemId)
			}
		} else if line.Name == "" {
			return errors.New("ad hoc line requires a name")
		}
	}
	return validateTaxLines(input.Taxes)
}

// mapInvoiceLineItems resolves item names and computes per-line amounts.
func mapInvoiceLineItems(ctx context.Context, businessId string, inputs []NewInvoiceLineItem) ([]InvoiceLineItem, decimal.Decimal, error) {
	lines := make([]InvoiceLineItem, 0, len(inputs))
	subtotal := decimal.Zero

	for _, in := range inputs {
		name := in.Name
		unitPrice := in.UnitPrice
		if in.ItemId != 0 {
			item, err := utils.FetchModel[InventoryItem](ctx, businessId, in.ItemId)
			if err != nil {
				return nil, decimal.Zero, fmt.Errorf("inventory item %d not found", in.ItemId)
			}
			if name == "" {
				name = item.Name
			}
			if unitPrice.IsZero() {
				unitPrice = item.UnitPrice
			}
		}
		lineSubtotal := in.Quantity.Mul(unitPrice)
		lines = append(lines, InvoiceLineItem{
			ItemId:       in.ItemId,
			Name:         name,
			Quantity:     in.Quantity,
			UnitPrice:    unitPrice,
			LineSubtotal: lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}
	return lines, subtotal, nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	lines, subtotal, err := mapInvoiceLineItems(ctx, businessId, input.LineItems)
	if err != nil {
		return nil, err
	}
	amounts, taxAmount := taxLineAmounts(subtotal, input.Taxes)
	taxes := make([]InvoiceTax, 0, len(input.Taxes))
	for i, in := range input.Taxes {
		taxes = append(taxes, InvoiceTax{
			Name:        in.Name,
			RatePercent: in.RatePercent,
			Amount:      amounts[i],
		})
	}
	total := subtotal.Add(taxAmount)

	invoice := Invoice{
		BusinessId:      businessId,
		CustomerId:      input.CustomerId,
		InvoiceDate:     input.InvoiceDate,
		DueDate:         input.DueDate,
		Notes:           input.Notes,
		LineItems:       lines,
		Taxes:           taxes,
		Subtotal:        subtotal,
		TaxAmount:       taxAmount,
		Total:           total,
		TotalPaidAmount: decimal.Zero,
	}
	invoice.CurrentStatus = DeriveInvoiceStatus(total, decimal.Zero, input.DueDate, time.Now().UTC())

	db := config.GetDB()
	tx := db.Begin()

	seqNo, err := utils.GetSequence[Invoice](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	invoice.SequenceNo = seqNo
	invoice.InvoiceNumber = "INV-" + fmt.Sprint(seqNo)

	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err = tx.Commit().Error; err != nil {
		return nil, err
	}

	return &invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Invoice](ctx, businessId, id, "LineItems", "Taxes")
}

func GetInvoices(ctx context.Context, customerId *int, status *InvoiceStatus) ([]*Invoice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("LineItems").Preload("Taxes")
	if customerId != nil {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	var invoices []*Invoice
	if err := dbCtx.Order("id DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
