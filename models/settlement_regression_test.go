package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// Covers the settlement and point-of-sale stock semantics end to end:
// - stock is decremented exactly once, on the transition into Paid
// - further payments on a Paid invoice never decrement again
// - cash sales decrement atomically and abort on missing items
// - settlements only warn on missing items
// - untracked items are never adjusted
func TestSettlementAndCashSaleStockSemantics(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
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
		Name:                  "Test Biz",
		Email:                 "owner@test.local",
		StatutoryEmployeeRate: decimal.NewFromFloat(5.5),
		StatutoryEmployerRate: decimal.NewFromInt(13),
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	businessID := biz.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessID)

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{Name: "Kofi Stores"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	rice, err := models.CreateInventoryItem(ctx, &models.NewInventoryItem{
		Name:           "Rice 25kg",
		UnitPrice:      decimal.NewFromInt(50),
		QuantityOnHand: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CreateInventoryItem(rice): %v", err)
	}
	delivery, err := models.CreateInventoryItem(ctx, &models.NewInventoryItem{
		Name:           "Delivery Fee",
		UnitPrice:      decimal.NewFromInt(20),
		TrackInventory: utils.NewFalse(),
	})
	if err != nil {
		t.Fatalf("CreateInventoryItem(delivery): %v", err)
	}

	now := time.Now().UTC()
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		CustomerId:  customer.ID,
		InvoiceDate: now,
		DueDate:     now.AddDate(0, 0, 30),
		LineItems: []models.NewInvoiceLineItem{
			{ItemId: rice.ID, Quantity: decimal.NewFromInt(2)},                   // 100
			{ItemId: delivery.ID, Quantity: decimal.NewFromInt(1)},               // 20 untracked
			{Name: "Consulting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(30)}, // 150 total
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if invoice.CurrentStatus != models.InvoiceStatusPending {
		t.Fatalf("expected new invoice Pending; got %s", invoice.CurrentStatus)
	}
	if !invoice.Total.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected invoice total 150; got %s", invoice.Total.String())
	}

	// 1) Partial payment: status moves, no stock touched.
	res, err := models.RecordInvoicePayment(ctx, &models.NewInvoicePayment{
		InvoiceId:   invoice.ID,
		Amount:      decimal.NewFromInt(90),
		PaymentDate: now,
	})
	if err != nil {
		t.Fatalf("RecordInvoicePayment(90): %v", err)
	}
	if res.Invoice.CurrentStatus != models.InvoiceStatusPartiallyPaid {
		t.Fatalf("expected Partially Paid after 90/150; got %s", res.Invoice.CurrentStatus)
	}
	if res.Payment.RecordedBy != 1 {
		t.Fatalf("expected payment recorded by user 1; got %d", res.Payment.RecordedBy)
	}
	if len(res.InventoryAdjustments) != 0 {
		t.Fatalf("expected no stock adjustments before Paid; got %d", len(res.InventoryAdjustments))
	}
	item, err := models.GetInventoryItem(ctx, rice.ID)
	if err != nil {
		t.Fatalf("GetInventoryItem: %v", err)
	}
	if !item.QuantityOnHand.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected stock still 10 after partial payment; got %s", item.QuantityOnHand.String())
	}

	// 2) Settling payment: status Paid, tracked stock decremented once.
	res, err = models.RecordInvoicePayment(ctx, &models.NewInvoicePayment{
		InvoiceId:   invoice.ID,
		Amount:      decimal.NewFromInt(60),
		PaymentDate: now,
	})
	if err != nil {
		t.Fatalf("RecordInvoicePayment(60): %v", err)
	}
	if res.Invoice.CurrentStatus != models.InvoiceStatusPaid {
		t.Fatalf("expected Paid after 150/150; got %s", res.Invoice.CurrentStatus)
	}
	if len(res.InventoryAdjustments) != 1 {
		t.Fatalf("expected exactly one stock adjustment (tracked item only); got %d", len(res.InventoryAdjustments))
	}
	item, _ = models.GetInventoryItem(ctx, rice.ID)
	if !item.QuantityOnHand.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected stock 8 after settlement; got %s", item.QuantityOnHand.String())
	}
	untracked, _ := models.GetInventoryItem(ctx, delivery.ID)
	if !untracked.QuantityOnHand.IsZero() {
		t.Fatalf("expected untracked item quantity unchanged; got %s", untracked.QuantityOnHand.String())
	}

	// 3) Overpayment on a Paid invoice: accepted, but no second decrement.
	res, err = models.RecordInvoicePayment(ctx, &models.NewInvoicePayment{
		InvoiceId:   invoice.ID,
		Amount:      decimal.NewFromInt(10),
		PaymentDate: now,
	})
	if err != nil {
		t.Fatalf("RecordInvoicePayment(extra): %v", err)
	}
	if len(res.InventoryAdjustments) != 0 {
		t.Fatalf("expected no adjustment on already-Paid invoice; got %d", len(res.InventoryAdjustments))
	}
	item, _ = models.GetInventoryItem(ctx, rice.ID)
	if !item.QuantityOnHand.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected stock still 8 after overpayment; got %s", item.QuantityOnHand.String())
	}

	// 4) Cash sale decrements atomically: 8 -> 5. Each tax type applies
	// to the subtotal independently.
	saleRes, err := models.CreateCashSale(ctx, &models.NewCashSale{
		SaleDate: now,
		LineItems: []models.NewCashSaleLineItem{
			{ItemId: rice.ID, Quantity: decimal.NewFromInt(3)},
		},
		Taxes: []models.NewTaxLine{
			{Name: "VAT", RatePercent: decimal.NewFromInt(15)},
			{Name: "NHIL", RatePercent: decimal.NewFromFloat(2.5)},
		},
	})
	if err != nil {
		t.Fatalf("CreateCashSale: %v", err)
	}
	if saleRes.Sale.SaleNumber == "" {
		t.Fatal("expected generated sale number")
	}
	if saleRes.Sale.RecordedBy != 1 {
		t.Fatalf("expected sale recorded by user 1; got %d", saleRes.Sale.RecordedBy)
	}
	// subtotal 150: VAT 22.5, NHIL 3.75
	if len(saleRes.Sale.Taxes) != 2 {
		t.Fatalf("expected 2 tax breakdown rows; got %d", len(saleRes.Sale.Taxes))
	}
	if !saleRes.Sale.Taxes[0].Amount.Equal(decimal.NewFromFloat(22.5)) {
		t.Fatalf("expected VAT amount 22.5; got %s", saleRes.Sale.Taxes[0].Amount.String())
	}
	if !saleRes.Sale.Taxes[1].Amount.Equal(decimal.NewFromFloat(3.75)) {
		t.Fatalf("expected NHIL amount 3.75; got %s", saleRes.Sale.Taxes[1].Amount.String())
	}
	if !saleRes.Sale.Total.Equal(decimal.NewFromFloat(176.25)) {
		t.Fatalf("expected sale total 176.25; got %s", saleRes.Sale.Total.String())
	}
	item, _ = models.GetInventoryItem(ctx, rice.ID)
	if !item.QuantityOnHand.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected stock 5 after cash sale; got %s", item.QuantityOnHand.String())
	}

	// 5) Cash sale with a missing item aborts, leaving stock untouched.
	_, err = models.CreateCashSale(ctx, &models.NewCashSale{
		SaleDate: now,
		LineItems: []models.NewCashSaleLineItem{
			{ItemId: rice.ID, Quantity: decimal.NewFromInt(1)},
			{ItemId: 999999, Quantity: decimal.NewFromInt(1), Name: "Ghost", UnitPrice: decimal.NewFromInt(5)},
		},
	})
	if err == nil {
		t.Fatal("expected cash sale with missing item to fail")
	}
	item, _ = models.GetInventoryItem(ctx, rice.ID)
	if !item.QuantityOnHand.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected stock unchanged after aborted sale; got %s", item.QuantityOnHand.String())
	}

	// 6) Settlement with a missing item only warns.
	ghostInvoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		CustomerId:  customer.ID,
		InvoiceDate: now,
		DueDate:     now.AddDate(0, 0, 30),
		LineItems: []models.NewInvoiceLineItem{
			{ItemId: rice.ID, Quantity: decimal.NewFromInt(1)},
		},
		Taxes: []models.NewTaxLine{
			{Name: "VAT", RatePercent: decimal.NewFromInt(15)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice(ghost): %v", err)
	}
	// subtotal 50, VAT 7.5
	if len(ghostInvoice.Taxes) != 1 || !ghostInvoice.Taxes[0].Amount.Equal(decimal.NewFromFloat(7.5)) {
		t.Fatalf("expected one VAT row of 7.5; got %+v", ghostInvoice.Taxes)
	}
	if !ghostInvoice.Total.Equal(decimal.NewFromFloat(57.5)) {
		t.Fatalf("expected ghost invoice total 57.5; got %s", ghostInvoice.Total.String())
	}
	// remove the item after invoicing to simulate a stale reference
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&models.InvoiceLineItem{}).
		Where("invoice_id = ?", ghostInvoice.ID).
		Update("item_id", 888888).Error; err != nil {
		t.Fatalf("repoint line item: %v", err)
	}
	res, err = models.RecordInvoicePayment(ctx, &models.NewInvoicePayment{
		InvoiceId:   ghostInvoice.ID,
		Amount:      ghostInvoice.Total,
		PaymentDate: now,
	})
	if err != nil {
		t.Fatalf("RecordInvoicePayment(ghost): %v", err)
	}
	if res.Invoice.CurrentStatus != models.InvoiceStatusPaid {
		t.Fatalf("expected ghost invoice Paid; got %s", res.Invoice.CurrentStatus)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected missing item warning on settlement")
	}

	// 7) Every settlement and sale left a pending ledger event.
	var eventCount int64
	if err := db.WithContext(ctx).Model(&models.LedgerEventRecord{}).
		Where("business_id = ?", businessID).Count(&eventCount).Error; err != nil {
		t.Fatalf("count ledger events: %v", err)
	}
	// 4 payments + 1 sale
	if eventCount != 5 {
		t.Fatalf("expected 5 ledger events; got %d", eventCount)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ledger-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=ledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
