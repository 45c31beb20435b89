package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type Employee struct {
	ID         int     `gorm:"primary_key" json:"id"`
	BusinessId string  `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string  `gorm:"size:100;not null" json:"name" binding:"required"`
	Email      string  `gorm:"size:255" json:"email"`
	Phone      string  `gorm:"size:20" json:"phone"`
	PayType    PayType `gorm:"type:enum('Salaried', 'Waged');default:Salaried" json:"pay_type"`
	// MonthlySalary applies to salaried staff, HourlyRate to waged staff.
	MonthlySalary decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"monthly_salary"`
	HourlyRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"hourly_rate"`
	// MonthlyAllowance is taxable and pensionable, added to gross each run.
	MonthlyAllowance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"monthly_allowance"`
	IsActive         *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEmployee struct {
	Name             string          `json:"name" binding:"required"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	PayType          PayType         `json:"pay_type"`
	MonthlySalary    decimal.Decimal `json:"monthly_salary"`
	HourlyRate       decimal.Decimal `json:"hourly_rate"`
	MonthlyAllowance decimal.Decimal `json:"monthly_allowance"`
}

func (input NewEmployee) validate(ctx context.Context, businessId string, exceptId int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.Name == "" {
		return errors.New("employee name is required")
	}
	switch input.PayType {
	case PayTypeSalaried:
		if input.MonthlySalary.IsNegative() {
			return errors.New("monthly salary cannot be negative")
		}
	case PayTypeWaged:
		if input.HourlyRate.IsNegative() {
			return errors.New("hourly rate cannot be negative")
		}
	default:
		return errors.New("invalid pay type")
	}
	if input.MonthlyAllowance.IsNegative() {
		return errors.New("monthly allowance cannot be negative")
	}
	if input.Email != "" {
		if !utils.IsValidEmail(input.Email) {
			return errors.New("invalid email")
		}
		if err := utils.ValidateUnique[Employee](ctx, businessId, "email", input.Email, exceptId); err != nil {
			return err
		}
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return nil
}

func CreateEmployee(ctx context.Context, input *NewEmployee) (*Employee, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	employee := Employee{
		BusinessId:       businessId,
		Name:             input.Name,
		Email:            input.Email,
		Phone:            input.Phone,
		PayType:          input.PayType,
		MonthlySalary:    input.MonthlySalary,
		HourlyRate:       input.HourlyRate,
		MonthlyAllowance: input.MonthlyAllowance,
		IsActive:         utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&employee).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Employee](businessId); err != nil {
		return nil, err
	}
	return &employee, nil
}

func UpdateEmployee(ctx context.Context, id int, input *NewEmployee) (*Employee, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	employee, err := utils.FetchModel[Employee](ctx, businessId, id)
	if err != nil {
		return nil, errors.New("employee not found")
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	employee.Name = input.Name
	employee.Email = input.Email
	employee.Phone = input.Phone
	employee.PayType = input.PayType
	employee.MonthlySalary = input.MonthlySalary
	employee.HourlyRate = input.HourlyRate
	employee.MonthlyAllowance = input.MonthlyAllowance

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(employee).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Employee](businessId); err != nil {
		return nil, err
	}
	return employee, nil
}

func ToggleActiveEmployee(ctx context.Context, id int, isActive bool) (*Employee, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	employee, err := utils.FetchModel[Employee](ctx, businessId, id)
	if err != nil {
		return nil, errors.New("employee not found")
	}
	employee.IsActive = &isActive

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(employee).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Employee](businessId); err != nil {
		return nil, err
	}
	return employee, nil
}

func GetEmployee(ctx context.Context, id int) (*Employee, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Employee](ctx, businessId, id)
}

// GetActiveEmployees returns the staff included in a payroll run.
func GetActiveEmployees(ctx context.Context, businessId string) ([]*Employee, error) {
	db := config.GetDB()
	var employees []*Employee
	if err := db.WithContext(ctx).
		Where("business_id = ? AND is_active = ?", businessId, true).
		Order("id").
		Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}
