package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/provider"
)

func testInitiateInput(userID uuid.UUID) InitiatePaymentInput {
	return InitiatePaymentInput{
		UserID:      userID,
		Amount:      decimal.NewFromInt(15000),
		Currency:    "tzs",
		Provider:    "M-Pesa",
		PhoneNumber: "+255 712 345 678",
		BuyerName:   "Asha Mrema",
		BuyerEmail:  "asha@example.com",
		Snapshot:    testSnapshot(),
	}
}

func TestPaymentInitiator_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted charge moves session to processing", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("InitiateCharge", mock.Anything, mock.MatchedBy(func(req *provider.ChargeRequest) bool {
			return req.BuyerPhone == "0712345678" &&
				req.Channel == "MPESA" &&
				req.Amount.Equal(decimal.NewFromInt(15000)) &&
				req.WebhookURL == "https://shop.example.com/webhook/mobile-money"
		})).Return(&provider.ChargeResponse{ResultCode: "000", Message: "Request in progress"}, nil).Once()

		result, err := f.initiator.Initiate(ctx, testInitiateInput(uuid.New()))
		require.NoError(t, err)

		assert.Equal(t, model.SessionStatusProcessing, result.Status)
		assert.False(t, result.IsDuplicate)
		assert.Equal(t, MessageChargeSent, result.Message)
		assert.Equal(t, testActiveWindow, result.ClientTimeout)
		assert.Regexp(t, `^MOMOTEST\d{6}$`, result.Reference)

		stored := f.reload(t, result.Reference)
		assert.Equal(t, model.SessionStatusProcessing, stored.Status)
		assert.Equal(t, "TZS", stored.Currency)
		assert.Equal(t, model.ProviderMPesa, stored.Provider)
		assert.Equal(t, []model.EventType{model.EventPaymentInitiated, model.EventPaymentProcessing}, f.store.EventTypes(stored.ID))

		call := f.gateway.Calls[0]
		req := call.Arguments.Get(1).(*provider.ChargeRequest)
		assert.Equal(t, result.Reference, req.Reference)
		f.gateway.AssertExpectations(t)
	})

	t.Run("retried request inside the window does not charge twice", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("InitiateCharge", mock.Anything, mock.Anything).
			Return(&provider.ChargeResponse{ResultCode: "000"}, nil).Once()
		userID := uuid.New()

		first, err := f.initiator.Initiate(ctx, testInitiateInput(userID))
		require.NoError(t, err)

		f.clock.Advance(10 * time.Second)
		second, err := f.initiator.Initiate(ctx, testInitiateInput(userID))
		require.NoError(t, err)

		assert.True(t, second.IsDuplicate)
		assert.Equal(t, first.Reference, second.Reference)
		assert.Equal(t, MessageDuplicate, second.Message)
		f.gateway.AssertNumberOfCalls(t, "InitiateCharge", 1)
	})

	t.Run("gateway rejections", func(t *testing.T) {
		tests := []struct {
			name      string
			err       error
			wantCode  string
			retryable bool
		}{
			{
				name:      "insufficient funds is retryable",
				err:       domainErrors.NewGatewayError(domainErrors.GatewayCodeInsufficientFunds, "insufficient balance", nil),
				wantCode:  domainErrors.GatewayCodeInsufficientFunds,
				retryable: true,
			},
			{
				name:      "invalid credentials is permanent",
				err:       domainErrors.NewGatewayError(domainErrors.GatewayCodeInvalidCredentials, "invalid api key", nil),
				wantCode:  domainErrors.GatewayCodeInvalidCredentials,
				retryable: false,
			},
			{
				name:      "unclassified error is a transport fault",
				err:       errors.New("connection reset by peer"),
				wantCode:  domainErrors.GatewayCodeTransport,
				retryable: true,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				f.gateway.On("InitiateCharge", mock.Anything, mock.Anything).Return(nil, tt.err)

				result, err := f.initiator.Initiate(ctx, testInitiateInput(uuid.New()))
				require.NoError(t, err)

				assert.Equal(t, model.SessionStatusFailed, result.Status)
				assert.Equal(t, tt.retryable, result.Retryable)
				assert.Equal(t, tt.wantCode, result.ErrorCode)
				assert.Equal(t, GatewayMessage(tt.wantCode), result.Message)

				stored := f.reload(t, result.Reference)
				assert.Equal(t, model.SessionStatusFailed, stored.Status)
				require.NotNil(t, stored.FailureReason)
				assert.Contains(t, *stored.FailureReason, tt.wantCode)
				f.publisher.AssertCalled(t, "Publish", mock.Anything, TopicPaymentFailed, mock.Anything)
			})
		}
	})

	t.Run("non-accept result code is a rejection", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("InitiateCharge", mock.Anything, mock.Anything).
			Return(&provider.ChargeResponse{ResultCode: "004", Message: "cancelled"}, nil)

		result, err := f.initiator.Initiate(ctx, testInitiateInput(uuid.New()))
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusFailed, result.Status)
		assert.True(t, result.Retryable)
		assert.Equal(t, GatewayMessage(domainErrors.GatewayCodeUserCancelled), result.Message)
	})

	t.Run("gateway deadline maps to timeout", func(t *testing.T) {
		f := newFixture(t)
		f.initiator.cfg.GatewayTimeout = 20 * time.Millisecond
		f.gateway.On("InitiateCharge", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, context.DeadlineExceeded)

		result, err := f.initiator.Initiate(ctx, testInitiateInput(uuid.New()))
		require.NoError(t, err)
		assert.Equal(t, domainErrors.GatewayCodeTimeout, result.ErrorCode)
		assert.True(t, result.Retryable)
		assert.Equal(t, model.SessionStatusFailed, f.reload(t, result.Reference).Status)
	})

	t.Run("unmapped provider omits channel", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("InitiateCharge", mock.Anything, mock.MatchedBy(func(req *provider.ChargeRequest) bool {
			return req.Channel == ""
		})).Return(&provider.ChargeResponse{ResultCode: "000"}, nil)

		in := testInitiateInput(uuid.New())
		in.Provider = "Halopesa"
		result, err := f.initiator.Initiate(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusProcessing, result.Status)
	})

	t.Run("whole amount with trailing zeros completes against the charged amount", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("InitiateCharge", mock.Anything, mock.MatchedBy(func(req *provider.ChargeRequest) bool {
			return req.Amount.Equal(decimal.NewFromInt(15000))
		})).Return(&provider.ChargeResponse{ResultCode: "000"}, nil).Once()

		in := testInitiateInput(uuid.New())
		in.Amount = decimal.RequireFromString("15000.00")
		result, err := f.initiator.Initiate(ctx, in)
		require.NoError(t, err)

		applied, err := f.processor.Apply(ctx, successConfirmation(result.Reference))
		require.NoError(t, err)
		assert.True(t, applied.Changed)
		assert.Equal(t, model.SessionStatusCompleted, f.reload(t, result.Reference).Status)
	})

	t.Run("webhook completing during the charge is not overwritten", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("InitiateCharge", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				req := args.Get(1).(*provider.ChargeRequest)
				_, err := f.processor.Apply(ctx, successConfirmation(req.Reference))
				assert.NoError(t, err)
			}).
			Return(&provider.ChargeResponse{ResultCode: "000", GatewayTransactionID: "TXN-LATE"}, nil).Once()

		result, err := f.initiator.Initiate(ctx, testInitiateInput(uuid.New()))
		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusCompleted, result.Status)

		stored := f.reload(t, result.Reference)
		assert.Equal(t, model.SessionStatusCompleted, stored.Status)
		assert.NotContains(t, f.store.EventTypes(stored.ID), model.EventPaymentProcessing)
	})

	t.Run("linked draft orders", func(t *testing.T) {
		owner := uuid.New()

		tests := []struct {
			name    string
			payer   uuid.UUID
			total   int64
			status  model.OrderPaymentStatus
			wantErr error
		}{
			{name: "owned by another user", payer: uuid.New(), total: 15000, status: model.OrderPaymentUnpaid, wantErr: domainErrors.ErrOrderOwnerMismatch},
			{name: "total differs from amount", payer: owner, total: 900000, status: model.OrderPaymentUnpaid, wantErr: domainErrors.ErrOrderTotalMismatch},
			{name: "already paid", payer: owner, total: 15000, status: model.OrderPaymentPaid, wantErr: domainErrors.ErrOrderAlreadyPaid},
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
					PaymentStatus: tt.status,
				}
				require.NoError(t, f.store.Orders().Create(ctx, draft))

				in := testInitiateInput(tt.payer)
				in.OrderID = &draft.ID
				_, err := f.initiator.Initiate(ctx, in)

				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, f.store.SessionCount())
				f.gateway.AssertNotCalled(t, "InitiateCharge", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("invalid input never reaches the gateway", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(in *InitiatePaymentInput)
			field  string
		}{
			{name: "short phone", mutate: func(in *InitiatePaymentInput) { in.PhoneNumber = "12345" }, field: "phone_number"},
			{name: "zero amount", mutate: func(in *InitiatePaymentInput) { in.Amount = decimal.Zero }, field: "amount"},
			{name: "negative amount", mutate: func(in *InitiatePaymentInput) { in.Amount = decimal.NewFromInt(-5) }, field: "amount"},
			{name: "fractional amount", mutate: func(in *InitiatePaymentInput) { in.Amount = decimal.RequireFromString("1000.50") }, field: "amount"},
			{name: "empty cart", mutate: func(in *InitiatePaymentInput) { in.Snapshot = model.OrderSnapshot{} }, field: "order_data"},
			{name: "unknown provider", mutate: func(in *InitiatePaymentInput) { in.Provider = "paypal" }, field: "provider"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				in := testInitiateInput(uuid.New())
				tt.mutate(&in)

				_, err := f.initiator.Initiate(ctx, in)

				var validationErr *domainErrors.ValidationError
				require.True(t, errors.As(err, &validationErr))
				assert.Equal(t, tt.field, validationErr.Field)
				assert.Zero(t, f.store.SessionCount())
				f.gateway.AssertNotCalled(t, "InitiateCharge", mock.Anything, mock.Anything)
			})
		}
	})
}

func TestGatewayMessage(t *testing.T) {
	assert.Equal(t, gatewayMessages[domainErrors.GatewayCodeGeneric], GatewayMessage("zzz"))
	assert.Contains(t, GatewayMessage(domainErrors.GatewayCodeInvalidCredentials), "contact support")
}
