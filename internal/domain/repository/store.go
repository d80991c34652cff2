package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
)

// Store groups the repositories that must change together.
type Store interface {
	Sessions() SessionRepository
	Orders() OrderRepository
	Events() EventRepository

	// Transaction runs fn atomically; tx is bound to the transaction. Calling
	// Transaction on a tx store opens a nested transaction whose failure only
	// rolls back its own writes.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// DedupeKey identifies attempts that count as the same charge.
type DedupeKey struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Provider    model.Provider
	PhoneNumber string
}

func (k DedupeKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.UserID, k.Amount.StringFixed(2), k.Provider, k.PhoneNumber)
}

// StatusUpdate is an unconditional write of the session status and the
// optional fields that travel with it. Nil fields are left untouched.
type StatusUpdate struct {
	Status               model.SessionStatus
	GatewayTransactionID *string
	FailureReason        *string
	OrderID              *uuid.UUID
}

// SessionRepository defines persistence of payment sessions
type SessionRepository interface {
	// LockDedupeKey blocks concurrent creators of the same key until the
	// surrounding transaction ends.
	LockDedupeKey(ctx context.Context, key DedupeKey) error

	// FindInFlight returns pending and processing sessions for key, newest first.
	FindInFlight(ctx context.Context, key DedupeKey) ([]*model.PaymentSession, error)

	Create(ctx context.Context, session *model.PaymentSession) error
	UpdateStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentSession, error)
	GetByReference(ctx context.Context, reference string) (*model.PaymentSession, error)
	// GetByReferenceForUpdate row-locks the session for the rest of the transaction.
	GetByReferenceForUpdate(ctx context.Context, reference string) (*model.PaymentSession, error)
	// GetByOrderID returns the most recent session linked to orderID.
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.PaymentSession, error)

	// ListStale returns sessions in status created before olderThan, oldest first.
	ListStale(ctx context.Context, status model.SessionStatus, olderThan time.Time, limit int) ([]*model.PaymentSession, error)
}

// OrderRepository writes the orders this service materializes
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// MarkPaid sets status, payment status, method and paid_at in place.
	MarkPaid(ctx context.Context, id uuid.UUID, method string, paidAt time.Time) error
	CountItems(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreateItems(ctx context.Context, items []model.OrderItem) error
}

// EventRepository appends to the payment audit log
type EventRepository interface {
	Append(ctx context.Context, event *model.PaymentLogEvent) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*model.PaymentLogEvent, error)
}
