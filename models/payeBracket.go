package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// PAYEBracket is one band of the business's progressive income tax
// schedule. Upper is null on the terminal open-ended band.
type PAYEBracket struct {
	ID          int              `gorm:"primary_key" json:"id"`
	BusinessId  string           `gorm:"index;not null" json:"business_id" binding:"required"`
	Lower       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"lower"`
	Upper       *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"upper"`
	RatePercent decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"rate_percent"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

type NewPAYEBracket struct {
	Lower       decimal.Decimal  `json:"lower"`
	Upper       *decimal.Decimal `json:"upper"`
	RatePercent decimal.Decimal  `json:"rate_percent"`
}

// validateBrackets enforces the schedule shape: sorted, starting at zero,
// contiguous, exactly one open-ended band and it must be the last.
func validateBrackets(inputs []NewPAYEBracket) error {
	if len(inputs) == 0 {
		return errors.New("at least one bracket is required")
	}
	for i := 1; i < len(inputs); i++ {
		if inputs[i].Lower.LessThan(inputs[i-1].Lower) {
			return errors.New("brackets must be sorted by lower bound")
		}
	}
	if !inputs[0].Lower.IsZero() {
		return errors.New("first bracket must start at zero")
	}
	for i, in := range inputs {
		if in.RatePercent.IsNegative() {
			return errors.New("bracket rate cannot be negative")
		}
		last := i == len(inputs)-1
		if last {
			if in.Upper != nil {
				return errors.New("last bracket must be open-ended")
			}
			continue
		}
		if in.Upper == nil {
			return errors.New("only the last bracket may be open-ended")
		}
		if in.Upper.LessThanOrEqual(in.Lower) {
			return errors.New("bracket upper bound must exceed its lower bound")
		}
		if !inputs[i+1].Lower.Equal(*in.Upper) {
			return errors.New("brackets must be contiguous")
		}
	}
	return nil
}

// ReplacePAYEBrackets swaps the business's whole tax schedule in one
// transaction. Partial edits are not supported; the schedule is always
// replaced as a validated whole.
func ReplacePAYEBrackets(ctx context.Context, inputs []NewPAYEBracket) ([]*PAYEBracket, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := validateBrackets(inputs); err != nil {
		return nil, err
	}
	release, err := utils.BusinessLock(ctx, businessId, "TaxScheduleLock", "PAYEBracket", "ReplacePAYEBrackets")
	if err != nil {
		return nil, err
	}
	defer release()

	brackets := make([]*PAYEBracket, 0, len(inputs))
	for _, in := range inputs {
		brackets = append(brackets, &PAYEBracket{
			BusinessId:  businessId,
			Lower:       in.Lower,
			Upper:       in.Upper,
			RatePercent: in.RatePercent,
		})
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).
		Where("business_id = ?", businessId).
		Delete(&PAYEBracket{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Create(&brackets).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[PAYEBracket](businessId); err != nil {
		return nil, err
	}
	return brackets, nil
}

// GetPAYEBrackets returns the schedule ordered by lower bound, redis first.
func GetPAYEBrackets(ctx context.Context, businessId string) ([]*PAYEBracket, error) {
	cached, err := utils.RetrieveRedisList[PAYEBracket](businessId)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	db := config.GetDB()
	var brackets []*PAYEBracket
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("lower").
		Find(&brackets).Error; err != nil {
		return nil, err
	}
	if len(brackets) > 0 {
		_ = utils.StoreRedisList[PAYEBracket](brackets, businessId)
	}
	return brackets, nil
}

// toTaxBands adapts stored brackets for the progressive tax calculator.
func toTaxBands(brackets []*PAYEBracket) []utils.TaxBand {
	bands := make([]utils.TaxBand, 0, len(brackets))
	for _, b := range brackets {
		bands = append(bands, utils.TaxBand{
			Lower:       b.Lower,
			Upper:       b.Upper,
			RatePercent: b.RatePercent,
		})
	}
	return bands
}
