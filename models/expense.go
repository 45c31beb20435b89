package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Category    string          `gorm:"size:100;not null" json:"category"`
	Description string          `gorm:"type:text;default:null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ExpenseDate time.Time       `gorm:"not null" json:"expense_date"`
	// ReferenceType/ReferenceId point back to the record that produced
	// the expense, e.g. a finalized payroll run. Empty for manual entries.
	ReferenceType LedgerReferenceType `gorm:"size:10;default:null" json:"reference_type"`
	ReferenceId   int                 `gorm:"index;default:null" json:"reference_id"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewExpense struct {
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	ExpenseDate time.Time       `json:"expense_date" binding:"required"`
}

func (input NewExpense) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Category == "" {
		return errors.New("expense category is required")
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("expense amount must be positive")
	}
	return nil
}

func CreateExpense(ctx context.Context, input *NewExpense) (*Expense, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	expense := Expense{
		BusinessId:  businessId,
		Category:    input.Category,
		Description: input.Description,
		Amount:      input.Amount,
		ExpenseDate: input.ExpenseDate,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func GetExpense(ctx context.Context, id int) (*Expense, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Expense](ctx, businessId, id)
}

func GetExpenses(ctx context.Context, category *string, fromDate, toDate *time.Time) ([]*Expense, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if category != nil {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	if fromDate != nil {
		dbCtx = dbCtx.Where("expense_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx = dbCtx.Where("expense_date <= ?", *toDate)
	}
	var expenses []*Expense
	if err := dbCtx.Order("expense_date DESC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}
