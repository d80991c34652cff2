package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/pkg/messaging"
	"go.uber.org/zap"
)

// Topics published after a session reaches a terminal state.
const (
	TopicPaymentCompleted = "payment.completed"
	TopicPaymentFailed    = "payment.failed"
	TopicPaymentExpired   = "payment.expired"
)

// PaymentEvent is the broker payload for terminal session transitions.
type PaymentEvent struct {
	SessionID     uuid.UUID       `json:"session_id"`
	Reference     string          `json:"transaction_reference"`
	UserID        uuid.UUID       `json:"user_id"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Provider      model.Provider  `json:"provider"`
	Status        string          `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Notifier publishes PaymentEvents to the configured broker. Publish errors
// are logged and swallowed.
type Notifier struct {
	publisher messaging.Publisher
	logger    *zap.Logger
}

func NewNotifier(publisher messaging.Publisher, logger *zap.Logger) *Notifier {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Notifier{publisher: publisher, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, topic string, session *model.PaymentSession, at time.Time) {
	event := PaymentEvent{
		SessionID:  session.ID,
		Reference:  session.TransactionReference,
		UserID:     session.UserID,
		OrderID:    session.OrderID,
		Amount:     session.Amount,
		Currency:   session.Currency,
		Provider:   session.Provider,
		Status:     string(session.Status),
		OccurredAt: at,
	}
	if session.FailureReason != nil {
		event.FailureReason = *session.FailureReason
	}

	if err := n.publisher.Publish(context.WithoutCancel(ctx), topic, event); err != nil {
		n.logger.Warn("Failed to publish payment event",
			zap.String("topic", topic),
			zap.String("reference", session.TransactionReference),
			zap.Error(err))
	}
}
