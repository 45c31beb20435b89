// seed-demo creates a demo business with customers, employees, inventory
// items and a default PAYE schedule, so a fresh database has something to
// settle against.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	// bracket replacement takes a per-business redis lock
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := models.MigrateTable(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	business, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:                  "Demo Trading Ltd",
		ContactName:           "Ama Mensah",
		Email:                 "demo@example.com",
		Country:               "Ghana",
		City:                  "Accra",
		Timezone:              "Africa/Accra",
		StatutoryEmployeeRate: decimal.NewFromFloat(5.5),
		StatutoryEmployerRate: decimal.NewFromFloat(13),
		SaleNumberPrefix:      "SALE",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create business: %v\n", err)
		os.Exit(1)
	}
	businessID := business.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessID)
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Seed")

	for _, c := range []models.NewCustomer{
		{Name: "Kofi Stores"},
		{Name: "Adjoa Wholesale"},
	} {
		customer := c
		if _, err := models.CreateCustomer(ctx, &customer); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create customer %q: %v\n", c.Name, err)
			os.Exit(1)
		}
	}

	for _, e := range []models.NewEmployee{
		{Name: "Yaw Boateng", PayType: models.PayTypeSalaried, MonthlySalary: decimal.NewFromInt(2500)},
		{Name: "Esi Owusu", PayType: models.PayTypeWaged, HourlyRate: decimal.NewFromFloat(18.5)},
	} {
		employee := e
		if _, err := models.CreateEmployee(ctx, &employee); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create employee %q: %v\n", e.Name, err)
			os.Exit(1)
		}
	}

	for _, i := range []models.NewInventoryItem{
		{Name: "Rice 25kg", Sku: "RICE-25", UnitPrice: decimal.NewFromInt(320), CostPrice: decimal.NewFromInt(260), QuantityOnHand: decimal.NewFromInt(40), ReorderLevel: decimal.NewFromInt(10)},
		{Name: "Cooking Oil 5L", Sku: "OIL-5", UnitPrice: decimal.NewFromInt(95), CostPrice: decimal.NewFromInt(70), QuantityOnHand: decimal.NewFromInt(60), ReorderLevel: decimal.NewFromInt(15)},
		{Name: "Delivery Fee", TrackInventory: utils.NewFalse(), UnitPrice: decimal.NewFromInt(20)},
	} {
		item := i
		if _, err := models.CreateInventoryItem(ctx, &item); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create item %q: %v\n", i.Name, err)
			os.Exit(1)
		}
	}

	upper := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	if _, err := models.ReplacePAYEBrackets(ctx, []models.NewPAYEBracket{
		{Lower: decimal.Zero, Upper: upper(490), RatePercent: decimal.Zero},
		{Lower: decimal.NewFromInt(490), Upper: upper(600), RatePercent: decimal.NewFromInt(5)},
		{Lower: decimal.NewFromInt(600), Upper: upper(730), RatePercent: decimal.NewFromInt(10)},
		{Lower: decimal.NewFromInt(730), RatePercent: decimal.NewFromFloat(17.5)},
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed tax brackets: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seeded demo business %s (id=%s)\n", business.Name, businessID)
}
