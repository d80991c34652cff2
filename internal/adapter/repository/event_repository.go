package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type eventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func (r *eventRepository) Append(ctx context.Context, event *model.PaymentLogEvent) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error
	if err != nil {
		return fmt.Errorf("failed to append payment log event: %w", err)
	}
	return nil
}

// ListBySession returns the latest limit events for the session in chronological order.
func (r *eventRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*model.PaymentLogEvent, error) {
	var events []*model.PaymentLogEvent

	query := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment log events: %w", err)
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
