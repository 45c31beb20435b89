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

// CashSale is an immutable point-of-sale record: goods leave the shelf
// and payment is taken in the same moment, so stock is decremented in
// the creating transaction and the sale is never edited afterwards.
type CashSale struct {
	ID            int                `gorm:"primary_key" json:"id"`
	BusinessId    string             `gorm:"index;not null" json:"business_id" binding:"required"`
	CustomerId    *int               `gorm:"index;default:null" json:"customer_id"`
	SaleNumber    string             `gorm:"size:255;not null" json:"sale_number"`
	SequenceNo    int64              `gorm:"not null" json:"sequence_no"`
	SaleDate      time.Time          `gorm:"not null" json:"sale_date" binding:"required"`
	PaymentMethod PaymentMethod      `gorm:"type:enum('Cash', 'BankTransfer', 'MobileMoney', 'Cheque', 'Card');default:Cash" json:"payment_method"`
	LineItems     []CashSaleLineItem `json:"line_items"`
	Taxes         []CashSaleTax      `json:"taxes"`
	Subtotal      decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxAmount     decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	Total         decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"total"`
	// RecordedBy is the id of the user who took the sale.
	RecordedBy int       `gorm:"index;default:null" json:"recorded_by"`
	Notes      string    `gorm:"type:text;default:null" json:"notes"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type CashSaleLineItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	CashSaleId   int             `gorm:"index;not null" json:"cash_sale_id"`
	ItemId       int             `gorm:"index;default:null" json:"item_id"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineSubtotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_subtotal"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// CashSaleTax is one tax type applied to the sale subtotal, mirroring
// the invoice breakdown.
type CashSaleTax struct {
	ID          int             `gorm:"primary_key" json:"id"`
	CashSaleId  int             `gorm:"index;not null" json:"cash_sale_id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	RatePercent decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate_percent"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewCashSale struct {
	CustomerId    *int                  `json:"customer_id"`
	SaleDate      time.Time             `json:"sale_date" binding:"required"`
	PaymentMethod PaymentMethod         `json:"payment_method"`
	LineItems     []NewCashSaleLineItem `json:"line_items"`
	Taxes         []NewTaxLine          `json:"taxes"`
	Notes         string                `json:"notes"`
}

type NewCashSaleLineItem struct {
	ItemId    int             `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CashSaleResult reports the created sale with the stock decrements it
// applied and any negative-stock warnings.
type CashSaleResult struct {
	Sale                 *CashSale             `json:"sale"`
	InventoryAdjustments []InventoryAdjustment `json:"inventory_adjustments"`
	Warnings             []string              `json:"warnings"`
}

func (input NewCashSale) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if len(input.LineItems) == 0 {
		return errors.New("sale requires at least one line item")
	}
	if input.CustomerId != nil {
		if err := utils.ValidateResourceId[Customer](ctx, businessId, *input.CustomerId); err != nil {
			return errors.New("customer not found")
		}
	}
	for _, line := range input.LineItems {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return errors.New("line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return errors.New("line unit price cannot be negative")
		}
		if line.ItemId == 0 && line.Name == "" {
			return errors.New("ad hoc line requires a name")
		}
	}
	return validateTaxLines(input.Taxes)
}

// CreateCashSale records a paid-on-the-spot sale and decrements stock
// atomically with it. A line referencing a missing inventory item aborts
// the whole sale; this is the opposite of invoice settlement, where a
// missing item only warns.
func CreateCashSale(ctx context.Context, input *NewCashSale) (*CashSaleResult, error) {
	moduleName := "CashSale"
	functionName := "CreateCashSale"

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}
	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	recordedBy, _ := utils.GetUserIdFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()

	warnings := []string{}
	adjustments := []InventoryAdjustment{}
	subtotal := decimal.Zero
	lines := make([]CashSaleLineItem, 0, len(input.LineItems))

	for _, in := range input.LineItems {
		name := in.Name
		unitPrice := in.UnitPrice
		if in.ItemId != 0 {
			adj, err := decrementInventoryItem(tx, ctx, businessId, in.ItemId, in.Quantity, MissingItemFail, &warnings, moduleName, functionName)
			if err != nil {
				tx.Rollback()
				return nil, err
			}
			if adj != nil {
				adjustments = append(adjustments, *adj)
				if name == "" {
					name = adj.ItemName
				}
			}
			if unitPrice.IsZero() || name == "" {
				var item InventoryItem
				if err := tx.WithContext(ctx).
					Where("business_id = ? AND id = ?", businessId, in.ItemId).
					First(&item).Error; err != nil {
					tx.Rollback()
					return nil, fmt.Errorf("inventory item %d not found", in.ItemId)
				}
				if unitPrice.IsZero() {
					unitPrice = item.UnitPrice
				}
				if name == "" {
					name = item.Name
				}
			}
		}
		lineSubtotal := in.Quantity.Mul(unitPrice)
		lines = append(lines, CashSaleLineItem{
			ItemId:       in.ItemId,
			Name:         name,
			Quantity:     in.Quantity,
			UnitPrice:    unitPrice,
			LineSubtotal: lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}

	amounts, taxAmount := taxLineAmounts(subtotal, input.Taxes)
	taxes := make([]CashSaleTax, 0, len(input.Taxes))
	for i, in := range input.Taxes {
		taxes = append(taxes, CashSaleTax{
			Name:        in.Name,
			RatePercent: in.RatePercent,
			Amount:      amounts[i],
		})
	}

	seqNo, err := utils.GetSequence[CashSale](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	sale := CashSale{
		BusinessId:    businessId,
		CustomerId:    input.CustomerId,
		SaleNumber:    formatSaleNumber(business.SaleNumberPrefix, input.SaleDate, seqNo),
		SequenceNo:    seqNo,
		SaleDate:      input.SaleDate,
		PaymentMethod: input.PaymentMethod,
		LineItems:     lines,
		Taxes:         taxes,
		Subtotal:      subtotal,
		TaxAmount:     taxAmount,
		Total:         subtotal.Add(taxAmount),
		RecordedBy:    recordedBy,
		Notes:         input.Notes,
	}
	if sale.PaymentMethod == "" {
		sale.PaymentMethod = PaymentMethodCash
	}

	if err := tx.WithContext(ctx).Create(&sale).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := PublishToLedger(ctx, tx, businessId, sale.SaleDate, sale.ID, LedgerReferenceTypeCashSale, sale, LedgerEventActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &CashSaleResult{
		Sale:                 &sale,
		InventoryAdjustments: adjustments,
		Warnings:             warnings,
	}, nil
}

// formatSaleNumber renders e.g. SALE-202608-0042.
func formatSaleNumber(prefix string, saleDate time.Time, seqNo int64) string {
	if prefix == "" {
		prefix = "SALE"
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, saleDate.Format("200601"), seqNo)
}

func GetCashSale(ctx context.Context, id int) (*CashSale, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[CashSale](ctx, businessId, id, "LineItems", "Taxes")
}

func GetCashSales(ctx context.Context, fromDate, toDate *time.Time) ([]*CashSale, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("LineItems").Preload("Taxes")
	if fromDate != nil {
		dbCtx = dbCtx.Where("sale_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("sale_date <= ?", *toDate)
	}
	var sales []*CashSale
	if err := dbCtx.Order("id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}
