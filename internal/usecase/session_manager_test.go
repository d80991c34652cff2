package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
)

func TestSessionManager_CreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh session starts pending", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()

		outcome, err := f.sessions.CreateSession(ctx, testSessionInput(userID))
		require.NoError(t, err)

		assert.Equal(t, entity.Fresh, outcome.Kind)
		assert.False(t, outcome.IsDuplicate())
		assert.Equal(t, model.SessionStatusPending, outcome.Session.Status)
		assert.Equal(t, f.clock.Now().Add(testAbsoluteTimeout), outcome.Session.ExpiresAt)
		assert.Len(t, outcome.Session.Snapshot().Items, 2)
		assert.Equal(t, []model.EventType{model.EventPaymentInitiated}, f.store.EventTypes(outcome.Session.ID))
	})

	t.Run("processing session inside active window is a live duplicate", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		first := f.processingSession(t, testSessionInput(userID))

		f.clock.Advance(30 * time.Second)
		outcome, err := f.sessions.CreateSession(ctx, testSessionInput(userID))
		require.NoError(t, err)

		assert.Equal(t, entity.LiveDuplicate, outcome.Kind)
		assert.True(t, outcome.IsDuplicate())
		assert.Equal(t, first.ID, outcome.Session.ID)
		assert.Equal(t, 1, f.store.SessionCount())
		assert.Equal(t, 1, f.store.CountEvents(model.EventPaymentDuplicate))
	})

	t.Run("pending session inside active window is a live duplicate", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()

		first, err := f.sessions.CreateSession(ctx, testSessionInput(userID))
		require.NoError(t, err)

		f.clock.Advance(5 * time.Second)
		second, err := f.sessions.CreateSession(ctx, testSessionInput(userID))
		require.NoError(t, err)

		assert.True(t, second.IsDuplicate())
		assert.Equal(t, first.Session.TransactionReference, second.Session.TransactionReference)
	})

	t.Run("stale session is superseded", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		first := f.processingSession(t, testSessionInput(userID))

		f.clock.Advance(testActiveWindow + time.Second)
		outcome, err := f.sessions.CreateSession(ctx, testSessionInput(userID))
		require.NoError(t, err)

		assert.Equal(t, entity.Superseded, outcome.Kind)
		assert.Equal(t, []string{first.ID.String()}, outcome.SupersededIDs)
		assert.NotEqual(t, first.TransactionReference, outcome.Session.TransactionReference)
		assert.Equal(t, model.SessionStatusPending, outcome.Session.Status)
		assert.Equal(t, 2, f.store.SessionCount())

		stale := f.reload(t, first.TransactionReference)
		assert.Equal(t, model.SessionStatusFailed, stale.Status)
		require.NotNil(t, stale.FailureReason)
		assert.Equal(t, FailureReasonTimeout, *stale.FailureReason)
		assert.Contains(t, f.store.EventTypes(first.ID), model.EventSessionSuperseded)
	})

	t.Run("different dedupe key is never a duplicate", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		f.processingSession(t, testSessionInput(userID))

		tests := []struct {
			name   string
			mutate func(in *CreateSessionInput)
		}{
			{name: "amount", mutate: func(in *CreateSessionInput) { in.Amount = decimal.NewFromInt(16000) }},
			{name: "provider", mutate: func(in *CreateSessionInput) { in.Provider = model.ProviderTigoPesa }},
			{name: "phone", mutate: func(in *CreateSessionInput) { in.PhoneNumber = "0755000111" }},
			{name: "user", mutate: func(in *CreateSessionInput) { in.UserID = uuid.New() }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := testSessionInput(userID)
				tt.mutate(&in)

				outcome, err := f.sessions.CreateSession(ctx, in)
				require.NoError(t, err)
				assert.Equal(t, entity.Fresh, outcome.Kind)
			})
		}
	})

	t.Run("terminal sessions do not block", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()
		first := f.processingSession(t, testSessionInput(userID))
		require.NoError(t, f.sessions.UpdateStatus(ctx, first.ID, repository.StatusUpdate{Status: model.SessionStatusCompleted}))

		outcome, err := f.sessions.CreateSession(ctx, testSessionInput(userID))
		require.NoError(t, err)
		assert.Equal(t, entity.Fresh, outcome.Kind)
	})

	t.Run("concurrent calls create one session", func(t *testing.T) {
		f := newFixture(t)
		userID := uuid.New()

		const callers = 20
		var wg sync.WaitGroup
		outcomes := make([]entity.CreateOutcome, callers)
		errs := make([]error, callers)

		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i], errs[i] = f.sessions.CreateSession(ctx, testSessionInput(userID))
			}(i)
		}
		wg.Wait()

		fresh := 0
		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			if !outcomes[i].IsDuplicate() {
				fresh++
			}
		}
		assert.Equal(t, 1, fresh)
		assert.Equal(t, 1, f.store.SessionCount())
	})
}

func TestSessionManager_Transition(t *testing.T) {
	ctx := context.Background()

	transition := func(f *fixture, reference string, update repository.StatusUpdate) (*model.PaymentSession, bool, error) {
		var session *model.PaymentSession
		var changed bool
		err := f.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			session, changed, err = f.sessions.Transition(ctx, tx, reference, update)
			return err
		})
		return session, changed, err
	}

	t.Run("completion from pending passes through processing", func(t *testing.T) {
		f := newFixture(t)
		outcome, err := f.sessions.CreateSession(ctx, testSessionInput(uuid.New()))
		require.NoError(t, err)

		session, changed, err := transition(f, outcome.Session.TransactionReference, repository.StatusUpdate{Status: model.SessionStatusCompleted})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, model.SessionStatusCompleted, session.Status)
	})

	t.Run("terminal session is left alone", func(t *testing.T) {
		f := newFixture(t)
		session := f.processingSession(t, testSessionInput(uuid.New()))
		require.NoError(t, f.sessions.UpdateStatus(ctx, session.ID, repository.StatusUpdate{Status: model.SessionStatusCompleted}))

		got, changed, err := transition(f, session.TransactionReference, repository.StatusUpdate{Status: model.SessionStatusFailed})
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, model.SessionStatusCompleted, got.Status)
		assert.Equal(t, model.SessionStatusCompleted, f.reload(t, session.TransactionReference).Status)
	})

	t.Run("undefined edge is rejected and rolled back", func(t *testing.T) {
		f := newFixture(t)
		outcome, err := f.sessions.CreateSession(ctx, testSessionInput(uuid.New()))
		require.NoError(t, err)

		_, _, err = transition(f, outcome.Session.TransactionReference, repository.StatusUpdate{Status: model.SessionStatusExpired})
		assert.ErrorIs(t, err, domainErrors.ErrInvalidTransition)
		assert.Equal(t, model.SessionStatusPending, f.reload(t, outcome.Session.TransactionReference).Status)
	})

	t.Run("unknown reference", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := transition(f, "MOMOMISSING", repository.StatusUpdate{Status: model.SessionStatusFailed})
		assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)
	})
}

func TestSessionManager_Lookups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	orderID := uuid.New()
	in := testSessionInput(uuid.New())
	in.OrderID = &orderID

	outcome, err := f.sessions.CreateSession(ctx, in)
	require.NoError(t, err)

	byOrder, err := f.sessions.GetByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, outcome.Session.ID, byOrder.ID)

	_, err = f.sessions.GetByOrderID(ctx, uuid.New())
	assert.ErrorIs(t, err, domainErrors.ErrSessionNotFound)

	events, err := f.sessions.Events(ctx, outcome.Session.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventPaymentInitiated, events[0].EventType)
	assert.Equal(t, outcome.Session.TransactionReference, events[0].Details["reference"])
}
