package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/provider"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
)

const (
	MessageChargeSent = "Payment request sent. Approve the prompt on your phone to complete the payment."
	MessageDuplicate  = "A payment for this order is already in progress. Check your phone for the approval prompt."
)

// gatewayMessages are the user-facing reasons for failed initiations.
var gatewayMessages = map[string]string{
	domainErrors.GatewayCodeInvalidCredentials: "Mobile money payments are temporarily unavailable. Please contact support.",
	domainErrors.GatewayCodeMissingParameters:  "The payment request was incomplete. Please check your details and try again.",
	domainErrors.GatewayCodeInsufficientFunds:  "Insufficient balance in your mobile money account.",
	domainErrors.GatewayCodeUserCancelled:      "The payment was cancelled on your phone.",
	domainErrors.GatewayCodeGeneric:            "The payment provider could not process the request. Please try again.",
	domainErrors.GatewayCodeTimeout:            "The payment provider did not respond in time. Please try again.",
	domainErrors.GatewayCodeTransport:          "The payment provider could not be reached. Please try again.",
	domainErrors.GatewayCodeBadResponse:        "The payment provider returned an unexpected response. Please try again.",
}

// GatewayMessage returns the user-facing message for a gateway result code.
func GatewayMessage(code string) string {
	if msg, ok := gatewayMessages[code]; ok {
		return msg
	}
	return gatewayMessages[domainErrors.GatewayCodeGeneric]
}

type InitiatePaymentInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Provider    string
	PhoneNumber string
	BuyerName   string
	BuyerEmail  string
	OrderID     *uuid.UUID
	Snapshot    model.OrderSnapshot
}

type InitiatePaymentResult struct {
	SessionID   uuid.UUID
	Reference   string
	Status      model.SessionStatus
	Message     string
	IsDuplicate bool
	// Retryable is only meaningful when Status is failed.
	Retryable     bool
	ErrorCode     string
	ClientTimeout time.Duration
}

type InitiatorConfig struct {
	Currency       string
	WebhookURL     string
	GatewayTimeout time.Duration
}

// PaymentInitiator starts a mobile-money charge for a checkout.
type PaymentInitiator struct {
	store    repository.Store
	sessions *SessionManager
	gateway  provider.MobileMoneyGateway
	events   *EventLogger
	notifier *Notifier
	cfg      InitiatorConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewPaymentInitiator(
	store repository.Store,
	sessions *SessionManager,
	gateway provider.MobileMoneyGateway,
	events *EventLogger,
	notifier *Notifier,
	cfg InitiatorConfig,
	logger *zap.Logger,
) *PaymentInitiator {
	if cfg.Currency == "" {
		cfg.Currency = "TZS"
	}
	return &PaymentInitiator{
		store:    store,
		sessions: sessions,
		gateway:  gateway,
		events:   events,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Initiate validates the request, creates or reuses a session and pushes the
// charge. Gateway rejections are reported in the result with status failed,
// not as an error; errors are validation or storage failures.
func (i *PaymentInitiator) Initiate(ctx context.Context, in InitiatePaymentInput) (*InitiatePaymentResult, error) {
	if !in.Amount.IsPositive() {
		return nil, &domainErrors.ValidationError{Field: "amount", Message: "must be greater than zero"}
	}
	// The gateway charges whole units only.
	if !in.Amount.Equal(in.Amount.Truncate(0)) {
		return nil, &domainErrors.ValidationError{Field: "amount", Message: "must be a whole number", Raw: in.Amount.String()}
	}
	amount := in.Amount.Truncate(0)
	if in.Snapshot.IsEmpty() {
		return nil, &domainErrors.ValidationError{Field: "order_data", Message: "must contain at least one item"}
	}

	phone, err := NormalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	network, err := ParseProvider(in.Provider)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = i.cfg.Currency
	}

	if in.OrderID != nil {
		if err := i.checkDraftOrder(ctx, *in.OrderID, in.UserID, amount); err != nil {
			return nil, err
		}
	}

	outcome, err := i.sessions.CreateSession(ctx, CreateSessionInput{
		UserID:      in.UserID,
		Amount:      amount,
		Currency:    currency,
		Provider:    network,
		PhoneNumber: phone,
		Snapshot:    in.Snapshot,
		OrderID:     in.OrderID,
	})
	if err != nil {
		i.logger.Error("Failed to create payment session",
			zap.String("user_id", in.UserID.String()),
			zap.Error(err))
		return nil, err
	}

	session := outcome.Session
	result := &InitiatePaymentResult{
		SessionID:     session.ID,
		Reference:     session.TransactionReference,
		Status:        session.Status,
		ClientTimeout: i.sessions.ActiveWindow(),
	}

	if outcome.Kind == entity.LiveDuplicate {
		result.IsDuplicate = true
		result.Message = MessageDuplicate
		return result, nil
	}

	logger := i.logger.With(
		zap.String("reference", session.TransactionReference),
		zap.String("provider", string(network)))

	resp, err := i.charge(ctx, session, in)
	if err != nil {
		var gwErr *domainErrors.GatewayError
		if !errors.As(err, &gwErr) {
			gwErr = domainErrors.NewGatewayError(domainErrors.GatewayCodeTransport, "gateway call failed", err)
		}
		logger.Warn("Gateway rejected charge",
			zap.String("code", gwErr.Code),
			zap.Bool("retryable", gwErr.Retryable),
			zap.Error(err))

		failed, err := i.markFailed(ctx, session, gwErr)
		if err != nil {
			return nil, err
		}
		result.Status = failed.Status
		result.Retryable = gwErr.Retryable
		result.ErrorCode = gwErr.Code
		result.Message = GatewayMessage(gwErr.Code)
		return result, nil
	}

	update := repository.StatusUpdate{Status: model.SessionStatusProcessing}
	if resp.GatewayTransactionID != "" {
		txID := resp.GatewayTransactionID
		update.GatewayTransactionID = &txID
	}

	var updated *model.PaymentSession
	var changed bool
	err = i.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		updated, changed, err = i.sessions.Transition(ctx, tx, session.TransactionReference, update)
		return err
	})
	if err != nil {
		logger.Error("Failed to record gateway acceptance", zap.Error(err))
		return nil, err
	}
	if !changed {
		logger.Info("Session moved on before the gateway accept was recorded",
			zap.String("status", string(updated.Status)))
		result.Status = updated.Status
		result.Message = MessageChargeSent
		return result, nil
	}

	i.events.Log(ctx, model.EventPaymentProcessing, updated, nil, map[string]interface{}{
		"result_code":    resp.ResultCode,
		"transaction_id": resp.GatewayTransactionID,
		"gateway":        i.gateway.Name(),
	})
	logger.Info("Mobile money charge accepted", zap.String("status", string(updated.Status)))

	result.Status = updated.Status
	result.Message = MessageChargeSent
	return result, nil
}

// checkDraftOrder verifies that an existing draft order can be paid by this
// session. An unknown id is allowed; the order is created on completion.
func (i *PaymentInitiator) checkDraftOrder(ctx context.Context, orderID, userID uuid.UUID, amount decimal.Decimal) error {
	order, err := i.store.Orders().GetByID(ctx, orderID)
	if errors.Is(err, domainErrors.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load linked order: %w", err)
	}
	if err := checkLinkedOrder(order, userID, amount); err != nil {
		return err
	}
	if order.PaymentStatus == model.OrderPaymentPaid {
		return domainErrors.ErrOrderAlreadyPaid
	}
	return nil
}

func (i *PaymentInitiator) charge(ctx context.Context, session *model.PaymentSession, in InitiatePaymentInput) (*provider.ChargeResponse, error) {
	channel, _ := ChannelFor(session.Provider)

	callCtx := ctx
	if i.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.cfg.GatewayTimeout)
		defer cancel()
	}

	resp, err := i.gateway.InitiateCharge(callCtx, &provider.ChargeRequest{
		Reference:  session.TransactionReference,
		BuyerName:  in.BuyerName,
		BuyerEmail: in.BuyerEmail,
		BuyerPhone: session.PhoneNumber,
		Amount:     session.Amount,
		WebhookURL: i.cfg.WebhookURL,
		Channel:    channel,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeTimeout, "gateway did not respond in time", err)
		}
		return nil, err
	}
	if resp.ResultCode != "" && resp.ResultCode != "000" {
		return nil, domainErrors.NewGatewayError(resp.ResultCode, resp.Message, nil)
	}
	return resp, nil
}

func (i *PaymentInitiator) markFailed(ctx context.Context, session *model.PaymentSession, gwErr *domainErrors.GatewayError) (*model.PaymentSession, error) {
	reason := "gateway " + gwErr.Code + ": " + gwErr.Message

	var updated *model.PaymentSession
	var changed bool
	// The request context may already be past its deadline here.
	ctx = context.WithoutCancel(ctx)
	err := i.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		updated, changed, err = i.sessions.Transition(ctx, tx, session.TransactionReference, repository.StatusUpdate{
			Status:        model.SessionStatusFailed,
			FailureReason: &reason,
		})
		return err
	})
	if err != nil {
		i.logger.Error("Failed to mark session failed",
			zap.String("reference", session.TransactionReference),
			zap.Error(err))
		return nil, err
	}

	if changed {
		i.events.Log(ctx, model.EventPaymentFailed, updated, gwErr, map[string]interface{}{
			"code":      gwErr.Code,
			"retryable": gwErr.Retryable,
			"source":    "initiator",
		})
		i.notifier.Notify(ctx, TopicPaymentFailed, updated, i.now())
	}
	return updated, nil
}
