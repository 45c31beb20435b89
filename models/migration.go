package models

import (
	"github.com/mmdatafocus/ledger_backend/config"
)

// MigrateTable creates or updates all tables of the engine.
func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Business{},
		&Customer{},
		&Employee{},
		&InventoryItem{},
		&Invoice{},
		&InvoiceLineItem{},
		&InvoiceTax{},
		&InvoicePayment{},
		&CashSale{},
		&CashSaleLineItem{},
		&CashSaleTax{},
		&PAYEBracket{},
		&PayrollRun{},
		&PayrollRunItem{},
		&Expense{},
		&LedgerEventRecord{},
	)
}
