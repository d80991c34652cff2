package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
)

type orderRepo struct {
	root *Store
	tx   *txStore
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := r.root.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	return access(r.root, r.tx, true, func(t *tables) error {
		stored := *order
		stored.Items = nil
		t.orders[order.ID] = stored
		return nil
	})
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var found *model.Order
	err := access(r.root, r.tx, false, func(t *tables) error {
		o, ok := t.orders[id]
		if !ok {
			return domainErrors.ErrOrderNotFound
		}
		o.Items = append([]model.OrderItem(nil), t.items[id]...)
		found = &o
		return nil
	})
	return found, err
}

func (r *orderRepo) MarkPaid(ctx context.Context, id uuid.UUID, method string, paidAt time.Time) error {
	return access(r.root, r.tx, true, func(t *tables) error {
		o, ok := t.orders[id]
		if !ok {
			return domainErrors.ErrOrderNotFound
		}
		o.Status = model.OrderStatusConfirmed
		o.PaymentStatus = model.OrderPaymentPaid
		o.PaymentMethod = method
		o.PaidAt = &paidAt
		o.UpdatedAt = paidAt
		t.orders[id] = o
		return nil
	})
}

func (r *orderRepo) CountItems(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var n int64
	err := access(r.root, r.tx, false, func(t *tables) error {
		n = int64(len(t.items[orderID]))
		return nil
	})
	return n, err
}

func (r *orderRepo) CreateItems(ctx context.Context, items []model.OrderItem) error {
	now := r.root.now()
	return access(r.root, r.tx, true, func(t *tables) error {
		for _, item := range items {
			if _, ok := t.orders[item.OrderID]; !ok {
				return domainErrors.ErrOrderNotFound
			}
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			if item.CreatedAt.IsZero() {
				item.CreatedAt = now
			}
			t.items[item.OrderID] = append(t.items[item.OrderID], item)
		}
		return nil
	})
}
