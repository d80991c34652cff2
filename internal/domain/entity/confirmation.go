package entity

import (
	"github.com/shopspring/decimal"
)

// ConfirmationOutcome is the gateway's verdict on a charge.
type ConfirmationOutcome string

const (
	OutcomeSuccess ConfirmationOutcome = "success"
	OutcomeFailed  ConfirmationOutcome = "failed"
	// OutcomePending means the gateway has not resolved the charge yet.
	OutcomePending ConfirmationOutcome = "pending"
)

// ConfirmationSource records which path delivered a confirmation.
type ConfirmationSource string

const (
	SourceWebhook    ConfirmationSource = "webhook"
	SourceReconciler ConfirmationSource = "reconciler"
)

// GatewayConfirmation is the normalized form of a gateway verdict. The webhook
// handler builds it from a callback; the reconciler synthesizes it from a
// status query. Both feed the same processing path.
type GatewayConfirmation struct {
	Reference            string
	Outcome              ConfirmationOutcome
	GatewayTransactionID string
	// Amount is zero when the gateway did not report one.
	Amount          decimal.Decimal
	Channel         string
	SubscriberPhone string
	Reason          string
	Source          ConfirmationSource
	Raw             map[string]interface{}
}

// ParseGatewayStatus maps a gateway payment_status string to an outcome.
func ParseGatewayStatus(status string) ConfirmationOutcome {
	switch status {
	case "COMPLETED", "SUCCESS", "SUCCESSFUL", "completed", "success":
		return OutcomeSuccess
	case "FAILED", "CANCELLED", "CANCELED", "REJECTED", "failed", "cancelled":
		return OutcomeFailed
	default:
		return OutcomePending
	}
}
