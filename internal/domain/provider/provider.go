package provider

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/entity"
)

// MobileMoneyGateway is the outbound contract with the payment gateway.
// Implementations return *errors.GatewayError on failure.
type MobileMoneyGateway interface {
	// InitiateCharge pushes a charge to the buyer's phone. Reference is always
	// the session's transaction reference, never an order id.
	InitiateCharge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// QueryStatus asks the gateway for the current state of reference.
	QueryStatus(ctx context.Context, reference string) (*StatusSnapshot, error)

	Name() string
}

type ChargeRequest struct {
	Reference  string
	BuyerName  string
	BuyerEmail string
	BuyerPhone string
	Amount     decimal.Decimal
	WebhookURL string
	// Channel is omitted from the wire request when empty.
	Channel string
}

type ChargeResponse struct {
	Reference string
	// GatewayTransactionID is empty when the gateway does not assign one at accept time.
	GatewayTransactionID string
	ResultCode           string
	Message              string
}

// StatusSnapshot is the gateway's view of one charge.
type StatusSnapshot struct {
	Reference            string
	Found                bool
	Outcome              entity.ConfirmationOutcome
	RawStatus            string
	GatewayTransactionID string
	Amount               decimal.Decimal
	Channel              string
	SubscriberPhone      string
	Message              string
}
