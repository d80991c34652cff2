package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/entity"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// FailureReasonTimeout marks a session superseded by a newer attempt.
const FailureReasonTimeout = "timeout"

// ReferenceSource produces transaction references.
type ReferenceSource interface {
	Generate() string
}

// CreateSessionInput carries already normalized values.
type CreateSessionInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Provider    model.Provider
	PhoneNumber string
	Snapshot    model.OrderSnapshot
	// OrderID links a pre-created draft order.
	OrderID *uuid.UUID
}

func (in CreateSessionInput) dedupeKey() repository.DedupeKey {
	return repository.DedupeKey{
		UserID:      in.UserID,
		Amount:      in.Amount,
		Provider:    in.Provider,
		PhoneNumber: in.PhoneNumber,
	}
}

// SessionManager owns creation and status transitions of payment sessions.
type SessionManager struct {
	store           repository.Store
	refs            ReferenceSource
	events          *EventLogger
	activeWindow    time.Duration
	absoluteTimeout time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

func NewSessionManager(store repository.Store, refs ReferenceSource, events *EventLogger, activeWindow, absoluteTimeout time.Duration, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		store:           store,
		refs:            refs,
		events:          events,
		activeWindow:    activeWindow,
		absoluteTimeout: absoluteTimeout,
		logger:          logger,
		now:             time.Now,
	}
}

// ActiveWindow is how long an in-flight session blocks a new attempt.
func (m *SessionManager) ActiveWindow() time.Duration {
	return m.activeWindow
}

// CreateSession inserts a pending session unless an attempt with the same
// user, amount, provider and phone is still inside the active window. Older
// in-flight attempts are failed with reason "timeout". The check and insert
// run under a lock on the dedupe key, so concurrent callers cannot both
// conclude that no live duplicate exists.
func (m *SessionManager) CreateSession(ctx context.Context, in CreateSessionInput) (entity.CreateOutcome, error) {
	var outcome entity.CreateOutcome
	var superseded []*model.PaymentSession

	now := m.now()
	key := in.dedupeKey()

	err := m.store.Transaction(ctx, func(tx repository.Store) error {
		outcome, superseded = entity.CreateOutcome{}, nil

		if err := tx.Sessions().LockDedupeKey(ctx, key); err != nil {
			return err
		}

		candidates, err := tx.Sessions().FindInFlight(ctx, key)
		if err != nil {
			return err
		}

		for _, candidate := range candidates {
			if candidate.Age(now) <= m.activeWindow {
				outcome = entity.CreateOutcome{Kind: entity.LiveDuplicate, Session: candidate}
				return nil
			}

			reason := FailureReasonTimeout
			if err := tx.Sessions().UpdateStatus(ctx, candidate.ID, repository.StatusUpdate{
				Status:        model.SessionStatusFailed,
				FailureReason: &reason,
			}); err != nil {
				return fmt.Errorf("failed to supersede session %s: %w", candidate.ID, err)
			}
			candidate.Status = model.SessionStatusFailed
			candidate.FailureReason = &reason
			superseded = append(superseded, candidate)
		}

		session := &model.PaymentSession{
			ID:                   uuid.New(),
			UserID:               in.UserID,
			Amount:               in.Amount,
			Currency:             in.Currency,
			Provider:             in.Provider,
			PhoneNumber:          in.PhoneNumber,
			TransactionReference: m.refs.Generate(),
			OrderData:            datatypes.NewJSONType(in.Snapshot),
			OrderID:              in.OrderID,
			Status:               model.SessionStatusPending,
			CreatedAt:            now,
			UpdatedAt:            now,
			ExpiresAt:            now.Add(m.absoluteTimeout),
		}
		if err := tx.Sessions().Create(ctx, session); err != nil {
			return err
		}

		outcome = entity.CreateOutcome{Kind: entity.Fresh, Session: session}
		if len(superseded) > 0 {
			outcome.Kind = entity.Superseded
		}
		return nil
	})
	if err != nil {
		return entity.CreateOutcome{}, err
	}

	if outcome.Kind == entity.LiveDuplicate {
		m.logger.Info("Live duplicate payment attempt",
			zap.String("reference", outcome.Session.TransactionReference),
			zap.Duration("age", outcome.Session.Age(now)))
		m.events.Log(ctx, model.EventPaymentDuplicate, outcome.Session, nil, map[string]interface{}{
			"age_seconds": int(outcome.Session.Age(now).Seconds()),
		})
		return outcome, nil
	}

	for _, stale := range superseded {
		outcome.SupersededIDs = append(outcome.SupersededIDs, stale.ID.String())
		m.logger.Info("Stale payment session superseded",
			zap.String("reference", stale.TransactionReference),
			zap.String("superseded_by", outcome.Session.TransactionReference))
		m.events.Log(ctx, model.EventSessionSuperseded, stale, nil, map[string]interface{}{
			"superseded_by": outcome.Session.TransactionReference,
			"reason":        FailureReasonTimeout,
		})
	}

	m.events.Log(ctx, model.EventPaymentInitiated, outcome.Session, nil, map[string]interface{}{
		"amount":   outcome.Session.Amount.String(),
		"currency": outcome.Session.Currency,
		"provider": string(outcome.Session.Provider),
	})

	return outcome, nil
}

// UpdateStatus writes the status unconditionally.
func (m *SessionManager) UpdateStatus(ctx context.Context, id uuid.UUID, update repository.StatusUpdate) error {
	return m.store.Sessions().UpdateStatus(ctx, id, update)
}

// Transition locks the session by reference inside tx, checks that the edge to
// update.Status is defined and writes it. It returns the updated session and
// false without writing when the session is already terminal.
func (m *SessionManager) Transition(ctx context.Context, tx repository.Store, reference string, update repository.StatusUpdate) (*model.PaymentSession, bool, error) {
	session, err := tx.Sessions().GetByReferenceForUpdate(ctx, reference)
	if err != nil {
		return nil, false, err
	}
	if session.Status.IsTerminal() {
		return session, false, nil
	}

	// A success can arrive before the initiator recorded the gateway accept.
	if session.Status == model.SessionStatusPending && update.Status == model.SessionStatusCompleted {
		if err := tx.Sessions().UpdateStatus(ctx, session.ID, repository.StatusUpdate{Status: model.SessionStatusProcessing}); err != nil {
			return nil, false, err
		}
		session.Status = model.SessionStatusProcessing
	}

	if err := entity.CheckTransition(session.Status, update.Status); err != nil {
		return session, false, err
	}
	if err := tx.Sessions().UpdateStatus(ctx, session.ID, update); err != nil {
		return nil, false, err
	}

	applyUpdate(session, update, m.now())
	return session, true, nil
}

func applyUpdate(session *model.PaymentSession, update repository.StatusUpdate, now time.Time) {
	session.Status = update.Status
	if update.GatewayTransactionID != nil {
		session.GatewayTransactionID = update.GatewayTransactionID
	}
	if update.FailureReason != nil {
		session.FailureReason = update.FailureReason
	}
	if update.OrderID != nil {
		session.OrderID = update.OrderID
	}
	session.UpdatedAt = now
}

func (m *SessionManager) GetByReference(ctx context.Context, reference string) (*model.PaymentSession, error) {
	return m.store.Sessions().GetByReference(ctx, reference)
}

func (m *SessionManager) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.PaymentSession, error) {
	return m.store.Sessions().GetByOrderID(ctx, orderID)
}

// Events returns the audit trail for a session, oldest first.
func (m *SessionManager) Events(ctx context.Context, sessionID uuid.UUID, limit int) ([]*model.PaymentLogEvent, error) {
	return m.store.Events().ListBySession(ctx, sessionID, limit)
}
