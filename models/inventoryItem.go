package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryItem struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string `gorm:"size:100;not null" json:"name" binding:"required"`
	Sku        string `gorm:"size:100;default:null" json:"sku"`
	// UnitPrice is the default selling price, CostPrice what the business paid.
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CostPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_price"`
	QuantityOnHand decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_on_hand"`
	ReorderLevel   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	// TrackInventory false means quantity is never adjusted for this item (services, fees).
	TrackInventory *bool     `gorm:"not null;default:true" json:"track_inventory"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInventoryItem struct {
	Name           string          `json:"name" binding:"required"`
	Sku            string          `json:"sku"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	ReorderLevel   decimal.Decimal `json:"reorder_level"`
	TrackInventory *bool           `json:"track_inventory"`
}

// InventoryAdjustment reports one stock decrement applied by a settlement
// or cash sale, for the caller's result payload.
type InventoryAdjustment struct {
	ItemId      int             `json:"item_id"`
	ItemName    string          `json:"item_name"`
	PreviousQty decimal.Decimal `json:"previous_qty"`
	NewQty      decimal.Decimal `json:"new_qty"`
}

func (input NewInventoryItem) validate(ctx context.Context, businessId string, exceptId int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Name == "" {
		return errors.New("item name is required")
	}
	if err := utils.ValidateUnique[InventoryItem](ctx, businessId, "name", input.Name, exceptId); err != nil {
		return err
	}
	if input.Sku != "" {
		if err := utils.ValidateUnique[InventoryItem](ctx, businessId, "sku", input.Sku, exceptId); err != nil {
			return err
		}
	}
	if input.UnitPrice.IsNegative() || input.CostPrice.IsNegative() {
		return errors.New("prices cannot be negative")
	}
	if input.QuantityOnHand.IsNegative() {
		return errors.New("opening quantity cannot be negative")
	}
	return nil
}

func CreateInventoryItem(ctx context.Context, input *NewInventoryItem) (*InventoryItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	trackInventory := input.TrackInventory
	if trackInventory == nil {
		trackInventory = utils.NewTrue()
	}
	item := InventoryItem{
		BusinessId:     businessId,
		Name:           input.Name,
		Sku:            input.Sku,
		UnitPrice:      input.UnitPrice,
		CostPrice:      input.CostPrice,
		QuantityOnHand: input.QuantityOnHand,
		ReorderLevel:   input.ReorderLevel,
		TrackInventory: trackInventory,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[InventoryItem](businessId); err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateInventoryItem(ctx context.Context, id int, input *NewInventoryItem) (*InventoryItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	item, err := utils.FetchModel[InventoryItem](ctx, businessId, id)
	if err != nil {
		return nil, errors.New("inventory item not found")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	item.Name = input.Name
	item.Sku = input.Sku
	item.UnitPrice = input.UnitPrice
	item.CostPrice = input.CostPrice
	item.ReorderLevel = input.ReorderLevel
	if input.TrackInventory != nil {
		item.TrackInventory = input.TrackInventory
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[InventoryItem](businessId); err != nil {
		return nil, err
	}
	return item, nil
}

func GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[InventoryItem](ctx, businessId, id)
}

func GetInventoryItems(ctx context.Context) ([]*InventoryItem, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchAllModels[InventoryItem](ctx, businessId)
}

// GetLowStockItems lists tracked items at or below their reorder level.
func GetLowStockItems(ctx context.Context, businessId string) ([]*InventoryItem, error) {
	db := config.GetDB()
	var items []*InventoryItem
	if err := db.WithContext(ctx).
		Where("business_id = ? AND track_inventory = ? AND quantity_on_hand <= reorder_level", businessId, true).
		Order("quantity_on_hand").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// decrementInventoryItem subtracts qty from an item's stock inside the
// caller's transaction, locking the row so concurrent settlements
// serialize. The row is allowed to go negative; that only produces a
// warning, never an abort. A missing item is handled per policy: Warn
// appends to warnings and skips the line, Fail aborts the caller.
func decrementInventoryItem(tx *gorm.DB, ctx context.Context, businessId string, itemId int, qty decimal.Decimal, policy MissingItemPolicy, warnings *[]string, moduleName string, functionName string) (*InventoryAdjustment, error) {
	logger := config.GetLogger()

	var item InventoryItem
	result := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, itemId).
		First(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if policy == MissingItemFail {
				return nil, fmt.Errorf("inventory item %d not found", itemId)
			}
			msg := fmt.Sprintf("inventory item %d not found, stock not adjusted", itemId)
			config.LogWarn(logger, moduleName, functionName, msg, businessId)
			if warnings != nil {
				*warnings = append(*warnings, msg)
			}
			return nil, nil
		}
		return nil, result.Error
	}

	if !utils.DereferencePtr(item.TrackInventory) {
		return nil, nil
	}

	previousQty := item.QuantityOnHand
	newQty := previousQty.Sub(qty)
	if err := tx.WithContext(ctx).Model(&InventoryItem{}).
		Where("business_id = ? AND id = ?", businessId, itemId).
		Update("quantity_on_hand", newQty).Error; err != nil {
		return nil, err
	}

	if newQty.IsNegative() {
		msg := fmt.Sprintf("inventory item %d (%s) stock went negative: %s", itemId, item.Name, newQty.String())
		config.LogWarn(logger, moduleName, functionName, msg, businessId)
		if warnings != nil {
			*warnings = append(*warnings, msg)
		}
	}

	return &InventoryAdjustment{
		ItemId:      itemId,
		ItemName:    item.Name,
		PreviousQty: previousQty,
		NewQty:      newQty,
	}, nil
}
