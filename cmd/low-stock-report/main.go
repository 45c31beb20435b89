// low-stock-report prints tracked inventory items at or below their
// reorder level for one business.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... go run ./cmd/low-stock-report -business <uuid>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
)

func main() {
	businessID := flag.String("business", "", "business id (uuid)")
	flag.Parse()
	if *businessID == "" {
		fmt.Fprintln(os.Stderr, "usage: low-stock-report -business <uuid>")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	items, err := models.GetLowStockItems(context.Background(), *businessID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch low stock items: %v\n", err)
		os.Exit(1)
	}
	if len(items) == 0 {
		fmt.Println("no items at or below reorder level")
		return
	}
	fmt.Printf("%-6s %-30s %12s %12s\n", "ID", "NAME", "ON HAND", "REORDER AT")
	for _, item := range items {
		fmt.Printf("%-6d %-30s %12s %12s\n", item.ID, item.Name, item.QuantityOnHand.String(), item.ReorderLevel.String())
	}
}
