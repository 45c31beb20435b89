// outbox-dispatcher publishes committed ledger events to Pub/Sub.
// Run it as a sidecar or standalone service; multiple instances are safe.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... PUBSUB_PROJECT_ID=... go run ./cmd/outbox-dispatcher
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/workflow"
)

func main() {
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	logger := config.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	dispatcher := workflow.NewOutboxDispatcher(db, logger)
	logger.WithField("dispatcher_id", dispatcher.DispatcherID).Warn("outbox dispatcher starting")
	dispatcher.Run(ctx)
	logger.Warn("outbox dispatcher stopped")
}
