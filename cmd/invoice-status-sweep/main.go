// invoice-status-sweep re-derives unpaid invoice statuses for one
// business, flipping Pending invoices to Overdue once their due date has
// passed. Intended to run nightly from cron.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... go run ./cmd/invoice-status-sweep -business <uuid>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
)

func main() {
	businessID := flag.String("business", "", "business id (uuid)")
	flag.Parse()
	if *businessID == "" {
		fmt.Fprintln(os.Stderr, "usage: invoice-status-sweep -business <uuid>")
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	updated, err := models.RefreshInvoiceStatuses(context.Background(), *businessID, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "status sweep failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("updated %d invoice(s)\n", updated)
}
