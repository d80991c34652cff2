package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wekeepgrowing/momo-checkout/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/provider"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
)

// ReconcileTrigger identifies who asked for a reconcile.
type ReconcileTrigger string

const (
	// TriggerManual is an end user polling their own session; subject to the dwell gate.
	TriggerManual    ReconcileTrigger = "manual"
	TriggerScheduled ReconcileTrigger = "scheduled"
	TriggerOperator  ReconcileTrigger = "operator"
)

// ReconcileAction is what a reconcile did to the session.
type ReconcileAction string

const (
	ActionNone            ReconcileAction = "none"
	ActionAlreadyTerminal ReconcileAction = "already_terminal"
	ActionCompleted       ReconcileAction = "completed"
	ActionFailed          ReconcileAction = "failed"
	ActionExpired         ReconcileAction = "expired"
)

const (
	FailureReasonExpired   = "no confirmation received before absolute timeout"
	FailureReasonAbandoned = "abandoned before gateway acceptance"
)

type ReconcileResult struct {
	Session       *model.PaymentSession
	Action        ReconcileAction
	GatewayStatus string
}

type ReconcilerConfig struct {
	AbsoluteTimeout         time.Duration
	ManualReconcileMinDwell time.Duration
	GatewayTimeout          time.Duration
}

// Reconciler resolves sessions the webhook never confirmed by asking the
// gateway directly. Confirmed verdicts go through WebhookProcessor.Apply.
type Reconciler struct {
	sessions  *SessionManager
	processor *WebhookProcessor
	gateway   provider.MobileMoneyGateway
	store     repository.Store
	events    *EventLogger
	notifier  *Notifier
	cfg       ReconcilerConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewReconciler(store repository.Store, sessions *SessionManager, processor *WebhookProcessor, gateway provider.MobileMoneyGateway, events *EventLogger, notifier *Notifier, cfg ReconcilerConfig, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		sessions:  sessions,
		processor: processor,
		gateway:   gateway,
		store:     store,
		events:    events,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ReconcileAllowedAt is the earliest time a manual reconcile is accepted for session.
func (r *Reconciler) ReconcileAllowedAt(session *model.PaymentSession) time.Time {
	return session.CreatedAt.Add(r.cfg.ManualReconcileMinDwell)
}

// Reconcile queries the gateway for reference and applies a conclusive answer.
// An inconclusive answer leaves the session alone until the absolute timeout,
// after which it is expired. Gateway errors are treated as inconclusive.
func (r *Reconciler) Reconcile(ctx context.Context, reference string, trigger ReconcileTrigger) (*ReconcileResult, error) {
	logger := r.logger.With(zap.String("reference", reference), zap.String("trigger", string(trigger)))

	session, err := r.sessions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return &ReconcileResult{Session: session, Action: ActionAlreadyTerminal}, nil
	}

	now := r.now()
	if trigger == TriggerManual {
		if allowedAt := r.ReconcileAllowedAt(session); now.Before(allowedAt) {
			return nil, &domainErrors.ReconcileTooEarlyError{Reference: reference, AllowedAt: allowedAt}
		}
	}

	r.events.Log(ctx, model.EventReconcileRequested, session, nil, map[string]interface{}{
		"trigger":     string(trigger),
		"status":      string(session.Status),
		"age_seconds": int(session.Age(now).Seconds()),
	})

	snapshot, err := r.query(ctx, reference)
	if err != nil {
		logger.Warn("Gateway status query failed, treating as inconclusive", zap.Error(err))
	}

	if snapshot != nil && snapshot.Found && snapshot.Outcome != entity.OutcomePending {
		applied, err := r.processor.Apply(ctx, confirmationFromSnapshot(reference, snapshot))
		if err != nil {
			return nil, err
		}

		action := ActionNone
		if applied.Changed {
			action = ActionCompleted
			if applied.Session.Status == model.SessionStatusFailed {
				action = ActionFailed
			}
		} else if applied.Session.Status.IsTerminal() {
			action = ActionAlreadyTerminal
		}
		return &ReconcileResult{Session: applied.Session, Action: action, GatewayStatus: snapshot.RawStatus}, nil
	}

	result := &ReconcileResult{Session: session, Action: ActionNone}
	if snapshot != nil {
		result.GatewayStatus = snapshot.RawStatus
	}

	if session.Age(now) <= r.cfg.AbsoluteTimeout {
		logger.Info("Gateway inconclusive, session left in place",
			zap.String("status", string(session.Status)),
			zap.Duration("age", session.Age(now)))
		return result, nil
	}

	expired, changed, err := r.expire(ctx, session)
	if err != nil {
		return nil, err
	}
	result.Session = expired
	if changed {
		result.Action = ActionExpired
		if expired.Status == model.SessionStatusFailed {
			result.Action = ActionFailed
		}
	} else if expired.Status.IsTerminal() {
		result.Action = ActionAlreadyTerminal
	}
	return result, nil
}

func (r *Reconciler) query(ctx context.Context, reference string) (*provider.StatusSnapshot, error) {
	if r.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.GatewayTimeout)
		defer cancel()
	}

	snapshot, err := r.gateway.QueryStatus(ctx, reference)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeTimeout, "gateway status query timed out", err)
		}
		return nil, err
	}
	return snapshot, nil
}

// expire moves a processing session to expired. A pending session was never
// accepted by the gateway, so it fails instead.
func (r *Reconciler) expire(ctx context.Context, session *model.PaymentSession) (*model.PaymentSession, bool, error) {
	update := repository.StatusUpdate{Status: model.SessionStatusExpired}
	reason := FailureReasonExpired
	if session.Status == model.SessionStatusPending {
		update.Status = model.SessionStatusFailed
		reason = FailureReasonAbandoned
	}
	update.FailureReason = &reason

	var updated *model.PaymentSession
	var changed bool
	err := r.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		updated, changed, err = r.sessions.Transition(ctx, tx, session.TransactionReference, update)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to expire session %s: %w", session.TransactionReference, err)
	}

	if changed {
		eventType, topic := model.EventPaymentExpired, TopicPaymentExpired
		if updated.Status == model.SessionStatusFailed {
			eventType, topic = model.EventPaymentFailed, TopicPaymentFailed
		}
		r.events.Log(ctx, eventType, updated, nil, map[string]interface{}{
			"reason":      reason,
			"source":      string(entity.SourceReconciler),
			"age_seconds": int(updated.Age(r.now()).Seconds()),
		})
		r.notifier.Notify(ctx, topic, updated, r.now())
		r.logger.Info("Session timed out",
			zap.String("reference", updated.TransactionReference),
			zap.String("status", string(updated.Status)))
	}
	return updated, changed, nil
}

func confirmationFromSnapshot(reference string, snapshot *provider.StatusSnapshot) entity.GatewayConfirmation {
	conf := entity.GatewayConfirmation{
		Reference:            reference,
		Outcome:              snapshot.Outcome,
		GatewayTransactionID: snapshot.GatewayTransactionID,
		Amount:               snapshot.Amount,
		Channel:              snapshot.Channel,
		SubscriberPhone:      snapshot.SubscriberPhone,
		Source:               entity.SourceReconciler,
		Raw: map[string]interface{}{
			"payment_status": snapshot.RawStatus,
		},
	}
	if snapshot.Outcome == entity.OutcomeFailed {
		conf.Reason = snapshot.Message
		if conf.Reason == "" {
			conf.Reason = "gateway reported " + snapshot.RawStatus
		}
	}
	return conf
}
