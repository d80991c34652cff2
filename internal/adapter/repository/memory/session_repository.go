package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
)

type sessionRepo struct {
	root *Store
	tx   *txStore
}

// LockDedupeKey is satisfied by transaction serialization.
func (r *sessionRepo) LockDedupeKey(ctx context.Context, key repository.DedupeKey) error {
	return ctx.Err()
}

func (r *sessionRepo) FindInFlight(ctx context.Context, key repository.DedupeKey) ([]*model.PaymentSession, error) {
	var out []*model.PaymentSession
	err := access(r.root, r.tx, false, func(t *tables) error {
		for _, s := range t.sessions {
			if s.UserID == key.UserID && s.Amount.Equal(key.Amount) && s.Provider == key.Provider &&
				s.PhoneNumber == key.PhoneNumber && s.Status.IsInFlight() {
				session := s
				out = append(out, &session)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *sessionRepo) Create(ctx context.Context, session *model.PaymentSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	now := r.root.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	return access(r.root, r.tx, true, func(t *tables) error {
		for _, existing := range t.sessions {
			if existing.TransactionReference == session.TransactionReference {
				return fmt.Errorf("duplicate transaction reference %s", session.TransactionReference)
			}
		}
		t.sessions[session.ID] = *session
		return nil
	})
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, update repository.StatusUpdate) error {
	now := r.root.now()
	return access(r.root, r.tx, true, func(t *tables) error {
		s, ok := t.sessions[id]
		if !ok {
			return domainErrors.ErrSessionNotFound
		}
		s.Status = update.Status
		if update.GatewayTransactionID != nil {
			s.GatewayTransactionID = update.GatewayTransactionID
		}
		if update.FailureReason != nil {
			s.FailureReason = update.FailureReason
		}
		if update.OrderID != nil {
			s.OrderID = update.OrderID
		}
		s.UpdatedAt = now
		t.sessions[id] = s
		return nil
	})
}

func (r *sessionRepo) find(match func(s *model.PaymentSession) bool) (*model.PaymentSession, error) {
	var found *model.PaymentSession
	err := access(r.root, r.tx, false, func(t *tables) error {
		for _, s := range t.sessions {
			s := s
			if match(&s) && (found == nil || s.CreatedAt.After(found.CreatedAt)) {
				found = &s
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domainErrors.ErrSessionNotFound
	}
	return found, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentSession, error) {
	return r.find(func(s *model.PaymentSession) bool { return s.ID == id })
}

func (r *sessionRepo) GetByReference(ctx context.Context, reference string) (*model.PaymentSession, error) {
	return r.find(func(s *model.PaymentSession) bool { return s.TransactionReference == reference })
}

func (r *sessionRepo) GetByReferenceForUpdate(ctx context.Context, reference string) (*model.PaymentSession, error) {
	return r.GetByReference(ctx, reference)
}

func (r *sessionRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.PaymentSession, error) {
	return r.find(func(s *model.PaymentSession) bool { return s.OrderID != nil && *s.OrderID == orderID })
}

func (r *sessionRepo) ListStale(ctx context.Context, status model.SessionStatus, olderThan time.Time, limit int) ([]*model.PaymentSession, error) {
	var out []*model.PaymentSession
	err := access(r.root, r.tx, false, func(t *tables) error {
		for _, s := range t.sessions {
			if s.Status == status && s.CreatedAt.Before(olderThan) {
				session := s
				out = append(out, &session)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
