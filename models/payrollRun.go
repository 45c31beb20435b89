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

type PayrollRun struct {
	ID          int    `gorm:"primary_key" json:"id"`
	BusinessId  string `gorm:"index;not null" json:"business_id" binding:"required"`
	RunNumber   string `gorm:"size:255;not null" json:"run_number"`
	SequenceNo  int64  `gorm:"not null" json:"sequence_no"`
	PeriodYear  int    `gorm:"not null" json:"period_year"`
	PeriodMonth int    `gorm:"not null" json:"period_month"`
	// PeriodStart and PeriodEnd bound the pay period; PaymentDate is the
	// day wages are disbursed, defaulting to the period end.
	PeriodStart time.Time        `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time        `gorm:"not null" json:"period_end"`
	PaymentDate time.Time        `gorm:"not null" json:"payment_date"`
	Status      PayrollRunStatus `gorm:"type:enum('Draft', 'Completed');default:Draft" json:"status"`
	Items       []PayrollRunItem `json:"items"`

	TotalGross             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_gross"`
	TotalStatutoryEmployee decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_statutory_employee"`
	TotalStatutoryEmployer decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_statutory_employer"`
	TotalPAYE              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_paye"`
	TotalNet               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_net"`
	// TotalCostToBusiness is gross plus the employer statutory top-up,
	// the amount actually posted as the payroll expense.
	TotalCostToBusiness decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost_to_business"`

	// ExpenseId is set when the run is finalized and its cost posted.
	ExpenseId *int      `gorm:"index;default:null" json:"expense_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type PayrollRunItem struct {
	ID           int             `gorm:"primary_key" json:"id"`
	PayrollRunId int             `gorm:"index;not null" json:"payroll_run_id"`
	EmployeeId   int             `gorm:"index;not null" json:"employee_id"`
	EmployeeName string          `gorm:"size:100;not null" json:"employee_name"`
	PayType      PayType         `gorm:"type:enum('Salaried', 'Waged');default:Salaried" json:"pay_type"`
	HoursWorked  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"hours_worked"`

	GrossPay          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_pay"`
	StatutoryEmployee decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"statutory_employee"`
	StatutoryEmployer decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"statutory_employer"`
	TaxableIncome     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"taxable_income"`
	PAYETax           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paye_tax"`
	NetPay            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_pay"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayrollRun struct {
	PeriodYear  int             `json:"period_year" binding:"required"`
	PeriodMonth int             `json:"period_month" binding:"required"`
	PaymentDate time.Time       `json:"payment_date"`
	Hours       []EmployeeHours `json:"hours"`
}

// EmployeeHours supplies the month's hours for waged staff. Salaried
// staff ignore hours entirely.
type EmployeeHours struct {
	EmployeeId int             `json:"employee_id" binding:"required"`
	Hours      decimal.Decimal `json:"hours"`
}

func (input NewPayrollRun) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.PeriodMonth < 1 || input.PeriodMonth > 12 {
		return errors.New("period month must be between 1 and 12")
	}
	if input.PeriodYear < 2000 {
		return errors.New("invalid period year")
	}
	for _, h := range input.Hours {
		if h.Hours.IsNegative() {
			return errors.New("hours cannot be negative")
		}
		if err := utils.ValidateResourceId[Employee](ctx, businessId, h.EmployeeId); err != nil {
			return fmt.Errorf("employee %d not found", h.EmployeeId)
		}
	}
	// a completed run for the period is final
	count, err := utils.ResourceCountWhere[PayrollRun](ctx, businessId,
		"period_year = ? AND period_month = ? AND status = ?",
		input.PeriodYear, input.PeriodMonth, PayrollRunStatusCompleted)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("payroll for this period is already completed")
	}
	return nil
}

// computePayrollItems derives one pay slip per employee. For each:
// gross pay first, then the statutory employee deduction, then PAYE on
// the post-deduction taxable income, and net as gross minus both.
// Pure over its inputs so it can be exercised without a database.
func computePayrollItems(employees []*Employee, hoursByEmployee map[int]decimal.Decimal, bands []utils.TaxBand, employeeRatePercent, employerRatePercent decimal.Decimal) []PayrollRunItem {
	items := make([]PayrollRunItem, 0, len(employees))
	for _, emp := range employees {
		var gross decimal.Decimal
		hours := hoursByEmployee[emp.ID]
		switch emp.PayType {
		case PayTypeWaged:
			gross = emp.HourlyRate.Mul(hours).Add(emp.MonthlyAllowance)
		default:
			gross = emp.MonthlySalary.Add(emp.MonthlyAllowance)
		}

		statutoryEmployee, statutoryEmployer := utils.CalculateStatutoryContribution(gross, employeeRatePercent, employerRatePercent)
		taxable := gross.Sub(statutoryEmployee)
		paye := utils.CalculateProgressiveTax(taxable, bands)
		net := gross.Sub(statutoryEmployee).Sub(paye)

		items = append(items, PayrollRunItem{
			EmployeeId:        emp.ID,
			EmployeeName:      emp.Name,
			PayType:           emp.PayType,
			HoursWorked:       hours,
			GrossPay:          gross,
			StatutoryEmployee: statutoryEmployee,
			StatutoryEmployer: statutoryEmployer,
			TaxableIncome:     taxable,
			PAYETax:           paye,
			NetPay:            net,
		})
	}
	return items
}

func sumPayrollItems(run *PayrollRun) {
	run.TotalGross = decimal.Zero
	run.TotalStatutoryEmployee = decimal.Zero
	run.TotalStatutoryEmployer = decimal.Zero
	run.TotalPAYE = decimal.Zero
	run.TotalNet = decimal.Zero
	for _, item := range run.Items {
		run.TotalGross = run.TotalGross.Add(item.GrossPay)
		run.TotalStatutoryEmployee = run.TotalStatutoryEmployee.Add(item.StatutoryEmployee)
		run.TotalStatutoryEmployer = run.TotalStatutoryEmployer.Add(item.StatutoryEmployer)
		run.TotalPAYE = run.TotalPAYE.Add(item.PAYETax)
		run.TotalNet = run.TotalNet.Add(item.NetPay)
	}
	run.TotalCostToBusiness = run.TotalGross.Add(run.TotalStatutoryEmployer)
}

// ComputePayrollRun calculates a Draft run for all active employees.
// Recomputing a period discards its previous draft.
func ComputePayrollRun(ctx context.Context, input *NewPayrollRun) (*PayrollRun, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}
	// one payroll computation per business at a time
	release, err := utils.BusinessLock(ctx, businessId, "PayrollLock", "PayrollRun", "ComputePayrollRun")
	if err != nil {
		return nil, err
	}
	defer release()
	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	employees, err := GetActiveEmployees(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, errors.New("no active employees to pay")
	}
	brackets, err := GetPAYEBrackets(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if len(brackets) == 0 {
		return nil, errors.New("tax brackets are not configured")
	}

	hoursByEmployee := make(map[int]decimal.Decimal, len(input.Hours))
	for _, h := range input.Hours {
		hoursByEmployee[h.EmployeeId] = h.Hours
	}

	periodStart := time.Date(input.PeriodYear, time.Month(input.PeriodMonth), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, -1)
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = periodEnd
	}

	run := PayrollRun{
		BusinessId:  businessId,
		PeriodYear:  input.PeriodYear,
		PeriodMonth: input.PeriodMonth,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		PaymentDate: paymentDate,
		Status:      PayrollRunStatusDraft,
		Items: computePayrollItems(employees, hoursByEmployee, toTaxBands(brackets),
			business.StatutoryEmployeeRate, business.StatutoryEmployerRate),
	}
	sumPayrollItems(&run)

	db := config.GetDB()
	tx := db.Begin()

	seqNo, err := utils.GetSequence[PayrollRun](ctx, businessId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	run.SequenceNo = seqNo
	run.RunNumber = "PRL-" + fmt.Sprint(seqNo)

	// discard the previous draft for the period
	var stale []PayrollRun
	if err := tx.WithContext(ctx).
		Where("business_id = ? AND period_year = ? AND period_month = ? AND status = ?",
			businessId, input.PeriodYear, input.PeriodMonth, PayrollRunStatusDraft).
		Find(&stale).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, s := range stale {
		if err := tx.WithContext(ctx).Where("payroll_run_id = ?", s.ID).Delete(&PayrollRunItem{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.WithContext(ctx).Delete(&PayrollRun{}, s.ID).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Create(&run).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// FinalizePayrollRun completes a draft run: it posts the employer's full
// payroll cost (gross plus employer statutory top-up) as an expense and
// marks the run Completed. A run whose gross total is zero or negative
// cannot be finalized.
func FinalizePayrollRun(ctx context.Context, id int) (*PayrollRun, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	tx := db.Begin()

	var run PayrollRun
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ? AND id = ?", businessId, id).
		First(&run).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("payroll run not found")
		}
		return nil, err
	}
	if run.Status != PayrollRunStatusDraft {
		tx.Rollback()
		return nil, errors.New("only draft payroll runs can be finalized")
	}
	if run.TotalGross.LessThanOrEqual(decimal.Zero) {
		tx.Rollback()
		return nil, errors.New("payroll run gross total must be positive")
	}
	if err := tx.WithContext(ctx).
		Where("payroll_run_id = ?", run.ID).
		Order("id").
		Find(&run.Items).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	expense := Expense{
		BusinessId:    businessId,
		Category:      "Payroll",
		Description:   fmt.Sprintf("Payroll %04d-%02d", run.PeriodYear, run.PeriodMonth),
		Amount:        run.TotalCostToBusiness,
		ExpenseDate:   run.PaymentDate,
		ReferenceType: LedgerReferenceTypePayrollRun,
		ReferenceId:   run.ID,
	}
	if err := tx.WithContext(ctx).Create(&expense).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	run.Status = PayrollRunStatusCompleted
	run.ExpenseId = &expense.ID
	if err := tx.WithContext(ctx).Model(&PayrollRun{}).
		Where("business_id = ? AND id = ?", businessId, run.ID).
		Updates(map[string]interface{}{
			"status":     PayrollRunStatusCompleted,
			"expense_id": expense.ID,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := PublishToLedger(ctx, tx, businessId, now, run.ID, LedgerReferenceTypePayrollRun, run, LedgerEventActionUpdate); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func GetPayrollRun(ctx context.Context, id int) (*PayrollRun, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[PayrollRun](ctx, businessId, id, "Items")
}

func GetPayrollRuns(ctx context.Context, year *int) ([]*PayrollRun, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("Items")
	if year != nil {
		dbCtx = dbCtx.Where("period_year = ?", *year)
	}
	var runs []*PayrollRun
	if err := dbCtx.Order("period_year DESC, period_month DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
