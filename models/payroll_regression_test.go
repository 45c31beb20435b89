package models_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Covers the payroll run lifecycle end to end:
// - recomputing a period replaces its draft
// - finalize posts the employer's full cost as a linked expense
// - a zero-gross draft cannot be finalized
// - a completed period can be neither recomputed nor re-finalized
func TestPayrollRunLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "ledger_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:                  "Payroll Biz",
		Email:                 "payroll@test.local",
		StatutoryEmployeeRate: decimal.NewFromFloat(5.5),
		StatutoryEmployerRate: decimal.NewFromInt(13),
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	businessID := biz.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessID)

	if _, err := models.CreateEmployee(ctx, &models.NewEmployee{
		Name: "Yaw", PayType: models.PayTypeSalaried, MonthlySalary: decimal.NewFromInt(2000),
	}); err != nil {
		t.Fatalf("CreateEmployee(salaried): %v", err)
	}
	waged, err := models.CreateEmployee(ctx, &models.NewEmployee{
		Name: "Esi", PayType: models.PayTypeWaged, HourlyRate: decimal.NewFromFloat(18.5),
	})
	if err != nil {
		t.Fatalf("CreateEmployee(waged): %v", err)
	}

	upper := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	schedule := []models.NewPAYEBracket{
		{Lower: decimal.Zero, Upper: upper(490), RatePercent: decimal.Zero},
		{Lower: decimal.NewFromInt(490), Upper: upper(600), RatePercent: decimal.NewFromInt(5)},
		{Lower: decimal.NewFromInt(600), Upper: upper(730), RatePercent: decimal.NewFromInt(10)},
		{Lower: decimal.NewFromInt(730), RatePercent: decimal.NewFromFloat(17.5)},
	}
	if _, err := models.ReplacePAYEBrackets(ctx, schedule); err != nil {
		t.Fatalf("ReplacePAYEBrackets: %v", err)
	}

	// 1) First draft: no hours supplied, so the waged employee earns zero.
	draft1, err := models.ComputePayrollRun(ctx, &models.NewPayrollRun{
		PeriodYear: 2026, PeriodMonth: 8,
	})
	if err != nil {
		t.Fatalf("ComputePayrollRun(no hours): %v", err)
	}
	if draft1.Status != models.PayrollRunStatusDraft {
		t.Fatalf("expected Draft; got %s", draft1.Status)
	}
	if !draft1.TotalGross.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected gross 2000 without hours; got %s", draft1.TotalGross.String())
	}
	if draft1.RunNumber == "" {
		t.Fatal("expected generated run number")
	}
	wantEnd := time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)
	if !draft1.PeriodEnd.Equal(wantEnd) {
		t.Fatalf("expected period end %s; got %s", wantEnd, draft1.PeriodEnd)
	}
	if !draft1.PaymentDate.Equal(wantEnd) {
		t.Fatalf("expected payment date to default to period end; got %s", draft1.PaymentDate)
	}

	// 2) Recomputing the period replaces the draft.
	draft2, err := models.ComputePayrollRun(ctx, &models.NewPayrollRun{
		PeriodYear: 2026, PeriodMonth: 8,
		Hours: []models.EmployeeHours{{EmployeeId: waged.ID, Hours: decimal.NewFromInt(100)}},
	})
	if err != nil {
		t.Fatalf("ComputePayrollRun(with hours): %v", err)
	}
	if draft2.ID == draft1.ID {
		t.Fatal("expected recompute to create a new run")
	}
	runs, err := models.GetPayrollRuns(ctx, nil)
	if err != nil {
		t.Fatalf("GetPayrollRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected stale draft discarded, one run left; got %d", len(runs))
	}
	// gross: 2000 salaried + 100h * 18.5 = 3850
	if !draft2.TotalGross.Equal(decimal.NewFromInt(3850)) {
		t.Fatalf("expected gross 3850; got %s", draft2.TotalGross.String())
	}
	// cost to business: 3850 + 13% employer statutory = 4350.5
	if !draft2.TotalCostToBusiness.Equal(decimal.NewFromFloat(4350.5)) {
		t.Fatalf("expected cost to business 4350.5; got %s", draft2.TotalCostToBusiness.String())
	}

	// 3) Finalize posts the employer cost as a linked expense.
	completed, err := models.FinalizePayrollRun(ctx, draft2.ID)
	if err != nil {
		t.Fatalf("FinalizePayrollRun: %v", err)
	}
	if completed.Status != models.PayrollRunStatusCompleted {
		t.Fatalf("expected Completed; got %s", completed.Status)
	}
	if completed.ExpenseId == nil {
		t.Fatal("expected finalized run to link an expense")
	}
	expense, err := models.GetExpense(ctx, *completed.ExpenseId)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if !expense.Amount.Equal(draft2.TotalCostToBusiness) {
		t.Fatalf("expected expense amount %s; got %s", draft2.TotalCostToBusiness.String(), expense.Amount.String())
	}
	if expense.ReferenceType != models.LedgerReferenceTypePayrollRun || expense.ReferenceId != completed.ID {
		t.Fatalf("expected expense to reference run %d; got %s/%d", completed.ID, expense.ReferenceType, expense.ReferenceId)
	}

	// 4) The completed period is final.
	if _, err := models.ComputePayrollRun(ctx, &models.NewPayrollRun{
		PeriodYear: 2026, PeriodMonth: 8,
	}); err == nil {
		t.Fatal("expected recompute of completed period to fail")
	}
	if _, err := models.FinalizePayrollRun(ctx, completed.ID); err == nil {
		t.Fatal("expected second finalize to fail")
	}

	// 5) A zero-gross draft cannot be finalized.
	biz2, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:                  "Zero Gross Biz",
		Email:                 "zero@test.local",
		StatutoryEmployeeRate: decimal.NewFromFloat(5.5),
		StatutoryEmployerRate: decimal.NewFromInt(13),
	})
	if err != nil {
		t.Fatalf("CreateBusiness(zero): %v", err)
	}
	ctx2 := utils.SetBusinessIdInContext(ctx, biz2.ID.String())
	if _, err := models.CreateEmployee(ctx2, &models.NewEmployee{
		Name: "Kwame", PayType: models.PayTypeWaged, HourlyRate: decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("CreateEmployee(zero): %v", err)
	}
	if _, err := models.ReplacePAYEBrackets(ctx2, schedule); err != nil {
		t.Fatalf("ReplacePAYEBrackets(zero): %v", err)
	}
	zeroDraft, err := models.ComputePayrollRun(ctx2, &models.NewPayrollRun{
		PeriodYear: 2026, PeriodMonth: 8,
	})
	if err != nil {
		t.Fatalf("ComputePayrollRun(zero): %v", err)
	}
	if !zeroDraft.TotalGross.IsZero() {
		t.Fatalf("expected zero gross; got %s", zeroDraft.TotalGross.String())
	}
	if _, err := models.FinalizePayrollRun(ctx2, zeroDraft.ID); err == nil {
		t.Fatal("expected zero-gross finalize to be rejected")
	}
	still, err := models.GetPayrollRun(ctx2, zeroDraft.ID)
	if err != nil {
		t.Fatalf("GetPayrollRun(zero): %v", err)
	}
	if still.Status != models.PayrollRunStatusDraft {
		t.Fatalf("expected rejected run to stay Draft; got %s", still.Status)
	}

	// 6) The finalize left exactly one ledger event for the first business.
	db := config.GetDB()
	var eventCount int64
	if err := db.WithContext(ctx).Model(&models.LedgerEventRecord{}).
		Where("business_id = ?", businessID).Count(&eventCount).Error; err != nil {
		t.Fatalf("count ledger events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 ledger event; got %d", eventCount)
	}
}
