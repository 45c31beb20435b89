package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type Business struct {
	ID          uuid.UUID `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName string    `gorm:"size:100" json:"contact_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	Country     string    `gorm:"size:100" json:"country"`
	City        string    `gorm:"size:100" json:"city"`
	Timezone    string    `gorm:"size:50" json:"timezone"`
	TaxId       string    `gorm:"size:100" json:"tax_id"`

	// Statutory pension rates as percentages of gross pay.
	StatutoryEmployeeRate decimal.Decimal `gorm:"type:decimal(20,4);default:5.5" json:"statutory_employee_rate"`
	StatutoryEmployerRate decimal.Decimal `gorm:"type:decimal(20,4);default:13" json:"statutory_employer_rate"`

	SaleNumberPrefix string `gorm:"size:20;default:SALE" json:"sale_number_prefix"`

	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name                  string          `json:"name" binding:"required"`
	ContactName           string          `json:"contact_name"`
	Email                 string          `json:"email" binding:"required"`
	Phone                 string          `json:"phone"`
	Address               string          `json:"address"`
	Country               string          `json:"country"`
	City                  string          `json:"city"`
	Timezone              string          `json:"timezone"`
	TaxId                 string          `json:"tax_id"`
	StatutoryEmployeeRate decimal.Decimal `json:"statutory_employee_rate"`
	StatutoryEmployerRate decimal.Decimal `json:"statutory_employer_rate"`
	SaleNumberPrefix      string          `json:"sale_number_prefix"`
}

func (business *Business) StoreRedis() error {
	return config.SetRedisObject("Business:"+fmt.Sprint(business.ID), business, 0)
}

func (business *Business) RemoveRedis() error {
	return config.RemoveRedisKey("Business:" + fmt.Sprint(business.ID))
}

func (input *NewBusiness) validate(ctx context.Context, id string) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	// name
	if err := utils.ValidateUnique[Business](ctx, "", "name", input.Name, id); err != nil {
		return err
	}
	// email
	if err := utils.ValidateUnique[Business](ctx, "", "email", input.Email, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	// phone
	if input.Phone != "" {
		if err := utils.ValidateUnique[Business](ctx, "", "phone", input.Phone, id); err != nil {
			return err
		}
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	if input.StatutoryEmployeeRate.IsNegative() || input.StatutoryEmployerRate.IsNegative() {
		return errors.New("statutory rates cannot be negative")
	}
	return nil
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	business := Business{
		ID:                    uuid.New(),
		Name:                  input.Name,
		ContactName:           input.ContactName,
		Email:                 input.Email,
		Phone:                 input.Phone,
		Address:               input.Address,
		Country:               input.Country,
		City:                  input.City,
		Timezone:              input.Timezone,
		TaxId:                 input.TaxId,
		StatutoryEmployeeRate: input.StatutoryEmployeeRate,
		StatutoryEmployerRate: input.StatutoryEmployerRate,
		SaleNumberPrefix:      input.SaleNumberPrefix,
		IsActive:              utils.NewTrue(),
	}
	if business.SaleNumberPrefix == "" {
		business.SaleNumberPrefix = "SALE"
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&business).Error; err != nil {
		return nil, err
	}
	// cache, failure is not fatal
	_ = business.StoreRedis()

	return &business, nil
}

func UpdateBusiness(ctx context.Context, id string, input *NewBusiness) (*Business, error) {
	business, err := GetBusinessById(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	business.Name = input.Name
	business.ContactName = input.ContactName
	business.Email = input.Email
	business.Phone = input.Phone
	business.Address = input.Address
	business.Country = input.Country
	business.City = input.City
	business.Timezone = input.Timezone
	business.TaxId = input.TaxId
	business.StatutoryEmployeeRate = input.StatutoryEmployeeRate
	business.StatutoryEmployerRate = input.StatutoryEmployerRate
	if input.SaleNumberPrefix != "" {
		business.SaleNumberPrefix = input.SaleNumberPrefix
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(business).Error; err != nil {
		return nil, err
	}
	_ = business.RemoveRedis()
	_ = business.StoreRedis()

	return business, nil
}

// GetBusinessById checks redis first, falls back to db.
func GetBusinessById(ctx context.Context, id string) (*Business, error) {
	var business *Business
	exists, err := config.GetRedisObject("Business:"+id, &business)
	if err != nil {
		return nil, err
	}
	if exists && business != nil {
		return business, nil
	}

	db := config.GetDB()
	var result Business
	if err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	_ = result.StoreRedis()
	return &result, nil
}
