package models

import "errors"

type InvoiceStatus string

const (
	InvoiceStatusPending       InvoiceStatus = "Pending"
	InvoiceStatusPartiallyPaid InvoiceStatus = "Partially Paid"
	InvoiceStatusPaid          InvoiceStatus = "Paid"
	InvoiceStatusOverdue       InvoiceStatus = "Overdue"
)

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch InvoiceStatus(s) {
	case InvoiceStatusPending, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue:
		return InvoiceStatus(s), nil
	}
	return "", errors.New("invalid invoice status")
}

type PayrollRunStatus string

const (
	PayrollRunStatusDraft     PayrollRunStatus = "Draft"
	PayrollRunStatusCompleted PayrollRunStatus = "Completed"
)

type PayType string

const (
	PayTypeSalaried PayType = "Salaried"
	PayTypeWaged    PayType = "Waged"
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
	PaymentMethodMobileMoney  PaymentMethod = "MobileMoney"
	PaymentMethodCheque       PaymentMethod = "Cheque"
	PaymentMethodCard         PaymentMethod = "Card"
)

// MissingItemPolicy decides what happens when a line references an
// inventory item that no longer exists. Settlements warn and continue,
// point-of-sale checkouts abort.
type MissingItemPolicy string

const (
	MissingItemWarn MissingItemPolicy = "Warn"
	MissingItemFail MissingItemPolicy = "Fail"
)

type LedgerReferenceType string

const (
	LedgerReferenceTypeInvoicePayment LedgerReferenceType = "IVP"
	LedgerReferenceTypeCashSale       LedgerReferenceType = "CSL"
	LedgerReferenceTypePayrollRun     LedgerReferenceType = "PRL"
)

type LedgerEventAction string

const (
	LedgerEventActionCreate LedgerEventAction = "Create"
	LedgerEventActionUpdate LedgerEventAction = "Update"
	LedgerEventActionDelete LedgerEventAction = "Delete"
)

type OutboxPublishStatus = string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)
