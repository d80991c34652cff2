package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a PaymentSession.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
	SessionStatusExpired    SessionStatus = "expired"
)

// IsTerminal reports whether no further transition is defined out of s.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed || s == SessionStatusExpired
}

// IsInFlight reports whether s still awaits a gateway outcome.
func (s SessionStatus) IsInFlight() bool {
	return s == SessionStatusPending || s == SessionStatusProcessing
}

func (s *SessionStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = SessionStatus(v)
	case []byte:
		*s = SessionStatus(v)
	default:
		return fmt.Errorf("cannot scan %T into SessionStatus", value)
	}
	return nil
}

func (s SessionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Provider is a supported mobile-money network.
type Provider string

const (
	ProviderMPesa       Provider = "mpesa"
	ProviderTigoPesa    Provider = "tigopesa"
	ProviderAirtelMoney Provider = "airtelmoney"
	ProviderHaloPesa    Provider = "halopesa"
)

// Providers lists every supported network.
var Providers = []Provider{ProviderMPesa, ProviderTigoPesa, ProviderAirtelMoney, ProviderHaloPesa}

// OrderSnapshot is the cart captured when the charge starts. It is never
// modified afterwards; the materialized order is built from it.
type OrderSnapshot struct {
	Items           []SnapshotItem         `json:"items"`
	ShippingAddress map[string]interface{} `json:"shipping_address,omitempty"`
	Contact         *ContactInfo           `json:"contact,omitempty"`
}

type SnapshotItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type ContactInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// IsEmpty reports whether the snapshot carries no line items.
func (s OrderSnapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// Total sums price * quantity over all items.
func (s OrderSnapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// PaymentSession is one attempt to charge a user via mobile money.
type PaymentSession struct {
	ID                   uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID                         `gorm:"type:uuid;not null;index:idx_payment_sessions_dedupe,priority:1" json:"user_id"`
	Amount               decimal.Decimal                   `gorm:"type:numeric(18,2);not null;index:idx_payment_sessions_dedupe,priority:2" json:"amount"`
	Currency             string                            `gorm:"type:char(3);not null;default:'TZS'" json:"currency"`
	Provider             Provider                          `gorm:"type:varchar(32);not null;index:idx_payment_sessions_dedupe,priority:3" json:"provider"`
	PhoneNumber          string                            `gorm:"type:varchar(16);not null;index:idx_payment_sessions_dedupe,priority:4" json:"phone_number"`
	TransactionReference string                            `gorm:"type:varchar(64);not null;uniqueIndex" json:"transaction_reference"`
	GatewayTransactionID *string                           `gorm:"type:varchar(128)" json:"gateway_transaction_id,omitempty"`
	OrderData            datatypes.JSONType[OrderSnapshot] `gorm:"not null" json:"order_data"`
	OrderID              *uuid.UUID                        `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Status               SessionStatus                     `gorm:"type:varchar(16);not null;default:'pending';index:idx_payment_sessions_dedupe,priority:5" json:"status"`
	FailureReason        *string                           `gorm:"type:text" json:"failure_reason,omitempty"`
	CreatedAt            time.Time                         `gorm:"not null;index" json:"created_at"`
	UpdatedAt            time.Time                         `gorm:"not null" json:"updated_at"`
	ExpiresAt            time.Time                         `gorm:"not null" json:"expires_at"`
}

func (PaymentSession) TableName() string {
	return "payment_sessions"
}

func (s *PaymentSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Snapshot returns the cached order data.
func (s *PaymentSession) Snapshot() OrderSnapshot {
	return s.OrderData.Data()
}

// Age is the time elapsed since the session was created.
func (s *PaymentSession) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
