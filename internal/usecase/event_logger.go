package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// EventLogger appends to the payment audit log. Write failures are logged and
// dropped; they never fail the operation that produced the event.
type EventLogger struct {
	events repository.EventRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewEventLogger creates a new event logger writing outside any transaction
func NewEventLogger(store repository.Store, logger *zap.Logger) *EventLogger {
	return &EventLogger{
		events: store.Events(),
		logger: logger,
		now:    time.Now,
	}
}

// Log records eventType for session. session may be nil for callbacks that
// matched nothing; cause may be nil.
func (l *EventLogger) Log(ctx context.Context, eventType model.EventType, session *model.PaymentSession, cause error, details map[string]interface{}) {
	event := &model.PaymentLogEvent{
		EventType: eventType,
		Details:   datatypes.JSONMap(details),
		CreatedAt: l.now(),
	}
	if session != nil {
		sessionID, userID := session.ID, session.UserID
		event.SessionID = &sessionID
		event.UserID = &userID
		if session.OrderID != nil {
			orderID := *session.OrderID
			event.OrderID = &orderID
		}
		if event.Details == nil {
			event.Details = datatypes.JSONMap{}
		}
		event.Details["reference"] = session.TransactionReference
	}
	if cause != nil {
		msg := cause.Error()
		event.Error = &msg
	}

	// A cancelled request must not drop the audit record.
	if err := l.events.Append(context.WithoutCancel(ctx), event); err != nil {
		l.logger.Warn("Failed to write payment log event",
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

// LogOrder is Log with an explicit order id, used once an order exists.
func (l *EventLogger) LogOrder(ctx context.Context, eventType model.EventType, session *model.PaymentSession, orderID uuid.UUID, cause error, details map[string]interface{}) {
	copied := *session
	copied.OrderID = &orderID
	l.Log(ctx, eventType, &copied, cause, details)
}
