package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/gorm"
)

// LedgerEventRecord is the transactional outbox row for downstream
// ledger consumers. It is written inside the business transaction that
// produced the event; publishing to Pub/Sub happens after commit, from
// the outbox dispatcher.
type LedgerEventRecord struct {
	ID                  int                 `gorm:"primary_key" json:"id"`
	BusinessId          string              `gorm:"index;not null" json:"business_id"`
	TransactionDateTime time.Time           `gorm:"not null" json:"transaction_date_time"`
	ReferenceId         int                 `gorm:"index;not null" json:"reference_id"`
	ReferenceType       LedgerReferenceType `gorm:"size:10;not null" json:"reference_type"`
	Action              LedgerEventAction   `gorm:"size:20;not null" json:"action"`
	Payload             []byte              `gorm:"type:json" json:"payload"`

	IsProcessed     bool                `gorm:"index;not null;default:false" json:"is_processed"`
	PublishStatus   OutboxPublishStatus `gorm:"size:20;index;not null;default:PENDING" json:"publish_status"`
	PublishAttempts int                 `gorm:"not null;default:0" json:"publish_attempts"`
	LastError       *string             `gorm:"type:text;default:null" json:"last_error"`
	NextAttemptAt   *time.Time          `gorm:"index;default:null" json:"next_attempt_at"`
	LockedAt        *time.Time          `gorm:"default:null" json:"locked_at"`
	LockedBy        *string             `gorm:"size:64;default:null" json:"locked_by"`
	PublishedAt     *time.Time          `gorm:"default:null" json:"published_at"`
	PubSubMessageId *string             `gorm:"size:64;default:null" json:"pub_sub_message_id"`
	CorrelationId   string              `gorm:"size:64;index" json:"correlation_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PublishToLedger writes the event record inside the caller's DB
// transaction but does NOT publish to Pub/Sub. Publishing is performed
// asynchronously by the outbox dispatcher after commit.
func PublishToLedger(ctx context.Context, tx *gorm.DB, businessId string, transactionDateTime time.Time, refId int, refType LedgerReferenceType, obj interface{}, action LedgerEventAction) error {
	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	record := LedgerEventRecord{
		BusinessId:          businessId,
		TransactionDateTime: transactionDateTime,
		ReferenceId:         refId,
		ReferenceType:       refType,
		Action:              action,
		Payload:             payload,
		IsProcessed:         false,
		PublishStatus:       OutboxPublishStatusPending,
		CorrelationId:       correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
