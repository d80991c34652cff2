package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventType tags a PaymentLogEvent.
type EventType string

const (
	EventPaymentInitiated    EventType = "payment_initiated"
	EventPaymentProcessing   EventType = "payment_processing"
	EventPaymentDuplicate    EventType = "payment_duplicate"
	EventSessionSuperseded   EventType = "session_superseded"
	EventPaymentCompleted    EventType = "payment_completed"
	EventPaymentFailed       EventType = "payment_failed"
	EventPaymentExpired      EventType = "payment_expired"
	EventWebhookReceived     EventType = "webhook_received"
	EventWebhookRejected     EventType = "webhook_rejected"
	EventReconcileRequested  EventType = "reconcile_requested"
	EventOrderCreated        EventType = "order_created"
	EventOrderCreationFailed EventType = "order_creation_failed"
)

// PaymentLogEvent is an append-only audit record. Control flow never reads it.
type PaymentLogEvent struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	EventType EventType         `gorm:"type:varchar(40);not null;index" json:"event_type"`
	SessionID *uuid.UUID        `gorm:"type:uuid;index" json:"session_id,omitempty"`
	OrderID   *uuid.UUID        `gorm:"type:uuid" json:"order_id,omitempty"`
	UserID    *uuid.UUID        `gorm:"type:uuid" json:"user_id,omitempty"`
	Error     *string           `gorm:"type:text" json:"error,omitempty"`
	Details   datatypes.JSONMap `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
}

func (PaymentLogEvent) TableName() string {
	return "payment_log_events"
}

func (e *PaymentLogEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
