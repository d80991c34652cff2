package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound     = errors.New("payment session not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidTransition   = errors.New("invalid payment session transition")
	ErrEmptyOrderSnapshot  = errors.New("order snapshot has no items")
	ErrAmountMismatch      = errors.New("confirmed amount does not match session amount")
	ErrInvalidSignature    = errors.New("webhook signature verification failed")
	ErrUnsupportedProvider = errors.New("unsupported mobile money provider")
	ErrForbidden           = errors.New("payment session belongs to another user")

	// Linked draft orders must belong to the payer and total the session amount.
	ErrOrderOwnerMismatch = errors.New("linked order belongs to another user")
	ErrOrderTotalMismatch = errors.New("linked order total does not match payment amount")
	ErrOrderAlreadyPaid   = errors.New("linked order is already paid")
)

// ValidationError is returned for malformed caller input. Never retried.
type ValidationError struct {
	Field    string
	Message  string
	Raw      string
	Stripped string
}

func (e *ValidationError) Error() string {
	if e.Raw != "" || e.Stripped != "" {
		return fmt.Sprintf("invalid %s: %s (raw=%q, stripped=%q)", e.Field, e.Message, e.Raw, e.Stripped)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewPhoneValidationError creates a ValidationError for an unparseable phone number
func NewPhoneValidationError(raw, stripped string) *ValidationError {
	return &ValidationError{
		Field:    "phone_number",
		Message:  "expected 0XXXXXXXXX, 255XXXXXXXXX or XXXXXXXXX",
		Raw:      raw,
		Stripped: stripped,
	}
}

// Gateway error codes
const (
	GatewayCodeInvalidCredentials = "001"
	GatewayCodeMissingParameters  = "002"
	GatewayCodeInsufficientFunds  = "003"
	GatewayCodeUserCancelled      = "004"
	GatewayCodeGeneric            = "999"
	GatewayCodeTimeout            = "TIMEOUT"
	GatewayCodeTransport          = "TRANSPORT"
	GatewayCodeBadResponse        = "BAD_RESPONSE"
)

// GatewayError is a failed call to the payment gateway.
type GatewayError struct {
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gateway error %s: %s - %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// NewGatewayError classifies code into retryable or permanent.
func NewGatewayError(code, message string, cause error) *GatewayError {
	return &GatewayError{
		Code:      code,
		Message:   message,
		Retryable: code != GatewayCodeInvalidCredentials,
		Cause:     cause,
	}
}

// OrderCreationError means the payment is confirmed but line items could not
// be persisted. It never rolls back the session.
type OrderCreationError struct {
	OrderID uuid.UUID
	Cause   error
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("order %s created without items: %v", e.OrderID, e.Cause)
}

func (e *OrderCreationError) Unwrap() error {
	return e.Cause
}

// ReconcileTooEarlyError is returned when a user asks to reconcile before the dwell time elapsed.
type ReconcileTooEarlyError struct {
	Reference string
	AllowedAt time.Time
}

func (e *ReconcileTooEarlyError) Error() string {
	return fmt.Sprintf("reconcile of %s not allowed before %s", e.Reference, e.AllowedAt.Format(time.RFC3339))
}

// RetryAfter is the remaining wait relative to now, rounded up to a second.
func (e *ReconcileTooEarlyError) RetryAfter(now time.Time) time.Duration {
	d := e.AllowedAt.Sub(now)
	if d <= 0 {
		return 0
	}
	if rem := d % time.Second; rem != 0 {
		d += time.Second - rem
	}
	return d
}
