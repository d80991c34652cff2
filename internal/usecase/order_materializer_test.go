package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
)

var errItemsUnavailable = errors.New("order_items: relation is locked")

// failingItemsStore fails every CreateItems call.
type failingItemsStore struct {
	repository.Store
}

func (s failingItemsStore) Orders() repository.OrderRepository {
	return failingItemsOrders{OrderRepository: s.Store.Orders()}
}

func (s failingItemsStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(failingItemsStore{Store: tx})
	})
}

type failingItemsOrders struct {
	repository.OrderRepository
}

func (failingItemsOrders) CreateItems(ctx context.Context, items []model.OrderItem) error {
	return errItemsUnavailable
}

func TestOrderMaterializer_Materialize(t *testing.T) {
	ctx := context.Background()

	materialize := func(f *fixture, store repository.Store, session *model.PaymentSession) (*MaterializeResult, error) {
		var result *MaterializeResult
		err := store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			result, err = f.materializer.Materialize(ctx, tx, session)
			return err
		})
		return result, err
	}

	t.Run("second run for the same order is a no-op", func(t *testing.T) {
		f := newFixture(t)
		session := f.processingSession(t, testSessionInput(uuid.New()))

		first, err := materialize(f, f.store, session)
		require.NoError(t, err)
		assert.True(t, first.OrderCreated)
		assert.Equal(t, 2, first.ItemsCount)

		session.OrderID = &first.OrderID
		second, err := materialize(f, f.store, session)
		require.NoError(t, err)
		assert.False(t, second.OrderCreated)
		assert.True(t, second.ItemsSkipped)
		assert.Equal(t, first.OrderID, second.OrderID)

		assert.Equal(t, 1, f.store.OrderCount())
		count, err := f.store.Orders().CountItems(ctx, first.OrderID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("draft order is updated in place", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()

		draft := &model.Order{
			ID:            uuid.New(),
			UserID:        userID,
			TotalAmount:   decimal.NewFromInt(15000),
			Currency:      "TZS",
			Status:        model.OrderStatusPending,
			PaymentStatus: model.OrderPaymentUnpaid,
		}
		require.NoError(t, f.store.Orders().Create(ctx, draft))

		in := testSessionInput(userID)
		in.OrderID = &draft.ID
		session := f.processingSession(t, in)

		result, err := f.processor.Apply(ctx, successConfirmation(session.TransactionReference))
		require.NoError(t, err)
		assert.Equal(t, draft.ID, result.Materialization.OrderID)
		assert.False(t, result.Materialization.OrderCreated)

		order, err := f.store.Orders().GetByID(ctx, draft.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderPaymentPaid, order.PaymentStatus)
		assert.Equal(t, model.OrderStatusConfirmed, order.Status)
		require.NotNil(t, order.PaidAt)
		assert.Equal(t, f.clock.Now(), *order.PaidAt)
		assert.Len(t, order.Items, 2)
		assert.Equal(t, 1, f.store.OrderCount())
	})

	t.Run("linked order that does not match the session is never paid", func(t *testing.T) {
		owner := uuid.New()

		tests := []struct {
			name    string
			payer   uuid.UUID
			total   int64
			wantErr error
		}{
			{name: "another user's draft", payer: uuid.New(), total: 15000, wantErr: domainErrors.ErrOrderOwnerMismatch},
			{name: "draft with a larger total", payer: owner, total: 900000, wantErr: domainErrors.ErrOrderTotalMismatch},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				draft := &model.Order{
					ID:            uuid.New(),
					UserID:        owner,
					TotalAmount:   decimal.NewFromInt(tt.total),
					Currency:      "TZS",
					Status:        model.OrderStatusPending,
					PaymentStatus: model.OrderPaymentUnpaid,
				}
				require.NoError(t, f.store.Orders().Create(ctx, draft))

				in := testSessionInput(tt.payer)
				in.OrderID = &draft.ID
				session := f.processingSession(t, in)

				_, err := f.processor.Apply(ctx, successConfirmation(session.TransactionReference))
				assert.ErrorIs(t, err, tt.wantErr)

				order, err := f.store.Orders().GetByID(ctx, draft.ID)
				require.NoError(t, err)
				assert.Equal(t, model.OrderPaymentUnpaid, order.PaymentStatus)
				assert.Empty(t, order.Items)

				stored := f.reload(t, session.TransactionReference)
				assert.Equal(t, model.SessionStatusProcessing, stored.Status)
				assert.Contains(t, f.store.EventTypes(stored.ID), model.EventOrderCreationFailed)
			})
		}
	})

	t.Run("missing linked order is created with the linked id", func(t *testing.T) {
		f := newFixture(t)
		orderID := uuid.New()
		in := testSessionInput(uuid.New())
		in.OrderID = &orderID
		session := f.processingSession(t, in)

		result, err := materialize(f, f.store, session)
		require.NoError(t, err)
		assert.Equal(t, orderID, result.OrderID)
		assert.True(t, result.OrderCreated)
	})

	t.Run("item failure keeps order and completes session", func(t *testing.T) {
		f := newFixtureWithStore(t, func(s repository.Store) repository.Store {
			return failingItemsStore{Store: s}
		})
		session := f.processingSession(t, testSessionInput(uuid.New()))

		result, err := f.processor.Apply(ctx, successConfirmation(session.TransactionReference))
		require.NoError(t, err)
		require.NotNil(t, result.Materialization.ItemsErr)
		assert.ErrorIs(t, result.Materialization.ItemsErr, errItemsUnavailable)

		var creationErr *domainErrors.OrderCreationError
		assert.True(t, errors.As(error(result.Materialization.ItemsErr), &creationErr))
		assert.Equal(t, result.Materialization.OrderID, creationErr.OrderID)

		stored := f.reload(t, session.TransactionReference)
		assert.Equal(t, model.SessionStatusCompleted, stored.Status)
		assert.Equal(t, 1, f.store.OrderCount())

		count, err := f.store.Orders().CountItems(ctx, result.Materialization.OrderID)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Equal(t, 1, f.store.CountEvents(model.EventOrderCreationFailed))
		assert.Equal(t, 0, f.store.CountEvents(model.EventOrderCreated))
	})

	t.Run("empty snapshot", func(t *testing.T) {
		f := newFixture(t)
		in := testSessionInput(uuid.New())
		in.Snapshot = model.OrderSnapshot{}
		session := f.processingSession(t, in)

		_, err := materialize(f, f.store, session)
		assert.ErrorIs(t, err, domainErrors.ErrEmptyOrderSnapshot)
	})
}
