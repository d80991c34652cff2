package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// MaterializeResult describes what Materialize wrote.
type MaterializeResult struct {
	OrderID      uuid.UUID
	ItemsCount   int
	OrderCreated bool
	// ItemsSkipped is true when the order already had items.
	ItemsSkipped bool
	// ItemsErr is set when the order was written but its items were not.
	ItemsErr *domainErrors.OrderCreationError
}

// OrderMaterializer turns a confirmed session's snapshot into an order.
type OrderMaterializer struct {
	events *EventLogger
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderMaterializer(events *EventLogger, logger *zap.Logger) *OrderMaterializer {
	return &OrderMaterializer{events: events, logger: logger, now: time.Now}
}

// Materialize runs inside the completing transaction tx. A draft order linked
// to the session is marked paid in place; otherwise a new order is created.
// Items are inserted in a nested transaction only when the order has none, and
// their failure is reported in the result rather than returned.
func (m *OrderMaterializer) Materialize(ctx context.Context, tx repository.Store, session *model.PaymentSession) (*MaterializeResult, error) {
	snapshot := session.Snapshot()
	if snapshot.IsEmpty() {
		return nil, domainErrors.ErrEmptyOrderSnapshot
	}

	now := m.now()
	method := "mobile_money:" + string(session.Provider)
	result := &MaterializeResult{}

	if session.OrderID != nil {
		order, err := tx.Orders().GetByID(ctx, *session.OrderID)
		switch {
		case errors.Is(err, domainErrors.ErrOrderNotFound):
			if err := m.createOrder(ctx, tx, session, *session.OrderID, snapshot, method, now); err != nil {
				return nil, err
			}
			result.OrderCreated = true
		case err != nil:
			return nil, fmt.Errorf("failed to load linked order: %w", err)
		default:
			if err := checkLinkedOrder(order, session.UserID, session.Amount); err != nil {
				return nil, err
			}
			if order.PaymentStatus != model.OrderPaymentPaid {
				if err := tx.Orders().MarkPaid(ctx, order.ID, method, now); err != nil {
					return nil, err
				}
			}
		}
		result.OrderID = *session.OrderID
	} else {
		orderID := uuid.New()
		if err := m.createOrder(ctx, tx, session, orderID, snapshot, method, now); err != nil {
			return nil, err
		}
		result.OrderID = orderID
		result.OrderCreated = true
	}

	existing, err := tx.Orders().CountItems(ctx, result.OrderID)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		result.ItemsSkipped = true
		result.ItemsCount = int(existing)
		return result, nil
	}

	items := make([]model.OrderItem, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		items = append(items, model.OrderItem{
			OrderID:   result.OrderID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	err = tx.Transaction(ctx, func(sp repository.Store) error {
		return sp.Orders().CreateItems(ctx, items)
	})
	if err != nil {
		m.logger.Error("Order saved without items",
			zap.String("order_id", result.OrderID.String()),
			zap.String("reference", session.TransactionReference),
			zap.Error(err))
		result.ItemsErr = &domainErrors.OrderCreationError{OrderID: result.OrderID, Cause: err}
		return result, nil
	}

	result.ItemsCount = len(items)
	return result, nil
}

// checkLinkedOrder rejects a draft order that the payer does not own or whose
// total differs from the amount being charged.
func checkLinkedOrder(order *model.Order, userID uuid.UUID, amount decimal.Decimal) error {
	if order.UserID != userID {
		return domainErrors.ErrOrderOwnerMismatch
	}
	if !order.TotalAmount.Equal(amount) {
		return domainErrors.ErrOrderTotalMismatch
	}
	return nil
}

func (m *OrderMaterializer) createOrder(ctx context.Context, tx repository.Store, session *model.PaymentSession, id uuid.UUID, snapshot model.OrderSnapshot, method string, paidAt time.Time) error {
	order := &model.Order{
		ID:              id,
		UserID:          session.UserID,
		TotalAmount:     session.Amount,
		Currency:        session.Currency,
		Status:          model.OrderStatusConfirmed,
		PaymentStatus:   model.OrderPaymentPaid,
		PaymentMethod:   method,
		ShippingAddress: datatypes.JSONMap(snapshot.ShippingAddress),
		PaidAt:          &paidAt,
	}
	return tx.Orders().Create(ctx, order)
}

// Report writes the audit events for a committed materialization.
func (m *OrderMaterializer) Report(ctx context.Context, session *model.PaymentSession, result *MaterializeResult) {
	if result.ItemsErr != nil {
		m.events.LogOrder(ctx, model.EventOrderCreationFailed, session, result.OrderID, result.ItemsErr, map[string]interface{}{
			"items_expected": len(session.Snapshot().Items),
		})
		return
	}
	m.events.LogOrder(ctx, model.EventOrderCreated, session, result.OrderID, nil, map[string]interface{}{
		"items_count":   result.ItemsCount,
		"items_skipped": result.ItemsSkipped,
		"order_created": result.OrderCreated,
	})
}
