package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	domainRepo "github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sessionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

var inFlightStatuses = []model.SessionStatus{
	model.SessionStatusPending,
	model.SessionStatusProcessing,
}

// LockDedupeKey takes a transaction-scoped advisory lock on the key hash.
func (r *sessionRepository) LockDedupeKey(ctx context.Context, key domainRepo.DedupeKey) error {
	if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key.String()).Error; err != nil {
		return fmt.Errorf("failed to lock dedupe key: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindInFlight(ctx context.Context, key domainRepo.DedupeKey) ([]*model.PaymentSession, error) {
	var sessions []*model.PaymentSession

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND amount = ? AND provider = ? AND phone_number = ? AND status IN ?",
			key.UserID, key.Amount, key.Provider, key.PhoneNumber, inFlightStatuses).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find in-flight sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *model.PaymentSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		r.logger.Error("Failed to create payment session",
			zap.String("reference", session.TransactionReference),
			zap.Error(err))
		return fmt.Errorf("failed to create payment session: %w", err)
	}
	return nil
}

// UpdateStatus writes unconditionally; callers validate the transition.
func (r *sessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, update domainRepo.StatusUpdate) error {
	updates := map[string]interface{}{
		"status":     update.Status,
		"updated_at": time.Now(),
	}
	if update.GatewayTransactionID != nil {
		updates["gateway_transaction_id"] = *update.GatewayTransactionID
	}
	if update.FailureReason != nil {
		updates["failure_reason"] = *update.FailureReason
	}
	if update.OrderID != nil {
		updates["order_id"] = *update.OrderID
	}

	result := r.db.WithContext(ctx).
		Model(&model.PaymentSession{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update payment session status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) first(query *gorm.DB) (*model.PaymentSession, error) {
	var session model.PaymentSession
	if err := query.First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get payment session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentSession, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *sessionRepository) GetByReference(ctx context.Context, reference string) (*model.PaymentSession, error) {
	return r.first(r.db.WithContext(ctx).Where("transaction_reference = ?", reference))
}

func (r *sessionRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*model.PaymentSession, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_reference = ?", reference))
}

func (r *sessionRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.PaymentSession, error) {
	return r.first(r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC"))
}

func (r *sessionRepository) ListStale(ctx context.Context, status model.SessionStatus, olderThan time.Time, limit int) ([]*model.PaymentSession, error) {
	var sessions []*model.PaymentSession

	query := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, olderThan).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	return sessions, nil
}
