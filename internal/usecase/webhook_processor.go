package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/wekeepgrowing/momo-checkout/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
)

// ApplyResult is the outcome of applying a gateway confirmation.
type ApplyResult struct {
	Session *model.PaymentSession
	// Changed is false when the confirmation was a no-op (already terminal or still pending).
	Changed         bool
	Materialization *MaterializeResult
}

// WebhookProcessor drives sessions to a terminal state from gateway
// confirmations. Webhook callbacks and reconciler lookups share Apply.
type WebhookProcessor struct {
	store        repository.Store
	sessions     *SessionManager
	materializer *OrderMaterializer
	events       *EventLogger
	notifier     *Notifier
	logger       *zap.Logger
	now          func() time.Time
}

func NewWebhookProcessor(store repository.Store, sessions *SessionManager, materializer *OrderMaterializer, events *EventLogger, notifier *Notifier, logger *zap.Logger) *WebhookProcessor {
	return &WebhookProcessor{
		store:        store,
		sessions:     sessions,
		materializer: materializer,
		events:       events,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// Apply is idempotent: confirmations for terminal sessions succeed without
// side effects, so at-least-once delivery creates at most one order.
func (p *WebhookProcessor) Apply(ctx context.Context, conf entity.GatewayConfirmation) (*ApplyResult, error) {
	logger := p.logger.With(
		zap.String("reference", conf.Reference),
		zap.String("outcome", string(conf.Outcome)),
		zap.String("source", string(conf.Source)))

	session, err := p.sessions.GetByReference(ctx, conf.Reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			logger.Warn("Gateway confirmation for unknown reference")
			p.events.Log(ctx, model.EventWebhookRejected, nil, err, map[string]interface{}{
				"reference": conf.Reference,
				"source":    string(conf.Source),
			})
		}
		return nil, err
	}

	details := map[string]interface{}{
		"source":         string(conf.Source),
		"outcome":        string(conf.Outcome),
		"transaction_id": conf.GatewayTransactionID,
		"channel":        conf.Channel,
		"status_before":  string(session.Status),
	}
	if conf.SubscriberPhone != "" {
		details["subscriber_matches"] = conf.SubscriberPhone == InternationalPhone(session.PhoneNumber) ||
			conf.SubscriberPhone == session.PhoneNumber
	}
	if conf.Raw != nil {
		details["payload"] = conf.Raw
	}
	p.events.Log(ctx, model.EventWebhookReceived, session, nil, details)

	if session.Status.IsTerminal() {
		logger.Info("Session already terminal, confirmation ignored",
			zap.String("status", string(session.Status)))
		return &ApplyResult{Session: session}, nil
	}

	switch conf.Outcome {
	case entity.OutcomeSuccess:
		return p.complete(ctx, logger, session, conf)
	case entity.OutcomeFailed:
		return p.fail(ctx, logger, conf)
	default:
		logger.Info("Gateway has not resolved the charge yet")
		return &ApplyResult{Session: session}, nil
	}
}

func (p *WebhookProcessor) complete(ctx context.Context, logger *zap.Logger, session *model.PaymentSession, conf entity.GatewayConfirmation) (*ApplyResult, error) {
	if !conf.Amount.IsZero() && !conf.Amount.Equal(session.Amount) {
		logger.Warn("Confirmed amount differs from session amount",
			zap.String("expected", session.Amount.String()),
			zap.String("confirmed", conf.Amount.String()))
		p.events.Log(ctx, model.EventWebhookRejected, session, domainErrors.ErrAmountMismatch, map[string]interface{}{
			"expected":  session.Amount.String(),
			"confirmed": conf.Amount.String(),
		})
		return nil, domainErrors.ErrAmountMismatch
	}

	result := &ApplyResult{}
	err := p.store.Transaction(ctx, func(tx repository.Store) error {
		*result = ApplyResult{}

		locked, err := tx.Sessions().GetByReferenceForUpdate(ctx, conf.Reference)
		if err != nil {
			return err
		}
		if locked.Status.IsTerminal() {
			result.Session = locked
			return nil
		}

		mat, err := p.materializer.Materialize(ctx, tx, locked)
		if err != nil {
			return err
		}

		update := repository.StatusUpdate{
			Status:  model.SessionStatusCompleted,
			OrderID: &mat.OrderID,
		}
		if conf.GatewayTransactionID != "" {
			txID := conf.GatewayTransactionID
			update.GatewayTransactionID = &txID
		}

		updated, changed, err := p.sessions.Transition(ctx, tx, conf.Reference, update)
		if err != nil {
			return err
		}
		result.Session, result.Changed, result.Materialization = updated, changed, mat
		return nil
	})
	if err != nil {
		logger.Error("Failed to complete payment session, left for reconciliation", zap.Error(err))
		if errors.Is(err, domainErrors.ErrOrderOwnerMismatch) || errors.Is(err, domainErrors.ErrOrderTotalMismatch) {
			p.events.Log(ctx, model.EventOrderCreationFailed, session, err, map[string]interface{}{
				"linked_order_id": session.OrderID.String(),
			})
		}
		return nil, err
	}

	if !result.Changed {
		logger.Info("Session reached a terminal state concurrently",
			zap.String("status", string(result.Session.Status)))
		return result, nil
	}

	p.materializer.Report(ctx, result.Session, result.Materialization)
	p.events.Log(ctx, model.EventPaymentCompleted, result.Session, nil, map[string]interface{}{
		"source":         string(conf.Source),
		"transaction_id": conf.GatewayTransactionID,
		"items_count":    result.Materialization.ItemsCount,
	})
	p.notifier.Notify(ctx, TopicPaymentCompleted, result.Session, p.now())

	logger.Info("Payment completed",
		zap.String("order_id", result.Materialization.OrderID.String()),
		zap.Int("items_count", result.Materialization.ItemsCount))
	return result, nil
}

func (p *WebhookProcessor) fail(ctx context.Context, logger *zap.Logger, conf entity.GatewayConfirmation) (*ApplyResult, error) {
	reason := conf.Reason
	if reason == "" {
		reason = "gateway reported failure"
	}

	update := repository.StatusUpdate{Status: model.SessionStatusFailed, FailureReason: &reason}
	if conf.GatewayTransactionID != "" {
		txID := conf.GatewayTransactionID
		update.GatewayTransactionID = &txID
	}

	result := &ApplyResult{}
	err := p.store.Transaction(ctx, func(tx repository.Store) error {
		updated, changed, err := p.sessions.Transition(ctx, tx, conf.Reference, update)
		if err != nil {
			return err
		}
		result.Session, result.Changed = updated, changed
		return nil
	})
	if err != nil {
		logger.Error("Failed to mark payment session failed", zap.Error(err))
		return nil, err
	}

	if result.Changed {
		p.events.Log(ctx, model.EventPaymentFailed, result.Session, nil, map[string]interface{}{
			"source": string(conf.Source),
			"reason": reason,
		})
		p.notifier.Notify(ctx, TopicPaymentFailed, result.Session, p.now())
		logger.Info("Payment failed", zap.String("reason", reason))
	}
	return result, nil
}
