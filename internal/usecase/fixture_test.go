package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/momo-checkout/internal/adapter/repository/memory"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/provider"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// MockGateway is a mock implementation of provider.MobileMoneyGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitiateCharge(ctx context.Context, req *provider.ChargeRequest) (*provider.ChargeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ChargeResponse), args.Error(1)
}

func (m *MockGateway) QueryStatus(ctx context.Context, reference string) (*provider.StatusSnapshot, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.StatusSnapshot), args.Error(1)
}

func (m *MockGateway) Name() string {
	return "mock"
}

// MockPublisher is a mock implementation of messaging.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg interface{}) error {
	args := m.Called(ctx, topic, msg)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

type sequenceRefs struct {
	n atomic.Int64
}

func (s *sequenceRefs) Generate() string {
	return fmt.Sprintf("MOMOTEST%06d", s.n.Add(1))
}

const (
	testActiveWindow    = 60 * time.Second
	testAbsoluteTimeout = 30 * time.Minute
	testDwell           = 30 * time.Second
)

type fixture struct {
	clock        *fakeClock
	store        *memory.Store
	gateway      *MockGateway
	publisher    *MockPublisher
	events       *EventLogger
	sessions     *SessionManager
	materializer *OrderMaterializer
	processor    *WebhookProcessor
	reconciler   *Reconciler
	sweeper      *Sweeper
	initiator    *PaymentInitiator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore wires every service against wrap(store) when wrap is set.
func newFixtureWithStore(t *testing.T, wrap func(repository.Store) repository.Store) *fixture {
	t.Helper()

	logger := zap.NewNop()
	clock := newFakeClock()
	mem := memory.NewStore().WithClock(clock.Now)

	var store repository.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}

	gateway := new(MockGateway)
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	events := NewEventLogger(store, logger)
	events.now = clock.Now

	sessions := NewSessionManager(store, &sequenceRefs{}, events, testActiveWindow, testAbsoluteTimeout, logger)
	sessions.now = clock.Now

	materializer := NewOrderMaterializer(events, logger)
	materializer.now = clock.Now

	notifier := NewNotifier(publisher, logger)

	processor := NewWebhookProcessor(store, sessions, materializer, events, notifier, logger)
	processor.now = clock.Now

	reconciler := NewReconciler(store, sessions, processor, gateway, events, notifier, ReconcilerConfig{
		AbsoluteTimeout:         testAbsoluteTimeout,
		ManualReconcileMinDwell: testDwell,
		GatewayTimeout:          time.Second,
	}, logger)
	reconciler.now = clock.Now

	sweeper := NewSweeper(store, reconciler, testActiveWindow, testAbsoluteTimeout, 10, logger)
	sweeper.now = clock.Now

	initiator := NewPaymentInitiator(store, sessions, gateway, events, notifier, InitiatorConfig{
		Currency:       "TZS",
		WebhookURL:     "https://shop.example.com/webhook/mobile-money",
		GatewayTimeout: time.Second,
	}, logger)
	initiator.now = clock.Now

	return &fixture{
		clock:        clock,
		store:        mem,
		gateway:      gateway,
		publisher:    publisher,
		events:       events,
		sessions:     sessions,
		materializer: materializer,
		processor:    processor,
		reconciler:   reconciler,
		sweeper:      sweeper,
		initiator:    initiator,
	}
}

func testSnapshot() model.OrderSnapshot {
	return model.OrderSnapshot{
		Items: []model.SnapshotItem{
			{ProductID: "sku-1", Name: "Kitenge", Quantity: 2, Price: decimal.NewFromInt(5000)},
			{ProductID: "sku-2", Name: "Kikoi", Quantity: 1, Price: decimal.NewFromInt(5000)},
		},
		ShippingAddress: map[string]interface{}{"city": "Dar es Salaam"},
	}
}

func testSessionInput(userID uuid.UUID) CreateSessionInput {
	return CreateSessionInput{
		UserID:      userID,
		Amount:      decimal.NewFromInt(15000),
		Currency:    "TZS",
		Provider:    model.ProviderMPesa,
		PhoneNumber: "0712345678",
		Snapshot:    testSnapshot(),
	}
}

// processingSession creates a fresh session and records a gateway accept.
func (f *fixture) processingSession(t *testing.T, in CreateSessionInput) *model.PaymentSession {
	t.Helper()
	ctx := context.Background()

	outcome, err := f.sessions.CreateSession(ctx, in)
	require.NoError(t, err)
	require.False(t, outcome.IsDuplicate())

	require.NoError(t, f.sessions.UpdateStatus(ctx, outcome.Session.ID, repository.StatusUpdate{
		Status: model.SessionStatusProcessing,
	}))

	session, err := f.sessions.GetByReference(ctx, outcome.Session.TransactionReference)
	require.NoError(t, err)
	return session
}

func (f *fixture) reload(t *testing.T, reference string) *model.PaymentSession {
	t.Helper()
	session, err := f.sessions.GetByReference(context.Background(), reference)
	require.NoError(t, err)
	return session
}
