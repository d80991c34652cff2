package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/middleware/auth"
	"github.com/wekeepgrowing/momo-checkout/internal/usecase"
	pkgErrors "github.com/wekeepgrowing/momo-checkout/pkg/errors"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	initiator  *usecase.PaymentInitiator
	sessions   *usecase.SessionManager
	reconciler *usecase.Reconciler
	logger     *zap.Logger
}

func NewPaymentHandler(initiator *usecase.PaymentInitiator, sessions *usecase.SessionManager, reconciler *usecase.Reconciler, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		initiator:  initiator,
		sessions:   sessions,
		reconciler: reconciler,
		logger:     logger,
	}
}

type initiatePaymentRequest struct {
	Amount      decimal.Decimal     `json:"amount"`
	Currency    string              `json:"currency" validate:"omitempty,len=3"`
	Provider    string              `json:"provider" validate:"required"`
	PhoneNumber string              `json:"phone_number" validate:"required"`
	BuyerName   string              `json:"buyer_name" validate:"required,max=120"`
	BuyerEmail  string              `json:"buyer_email" validate:"required,email"`
	OrderID     string              `json:"order_id" validate:"omitempty,uuid"`
	OrderData   model.OrderSnapshot `json:"order_data"`
}

type initiatePaymentResponse struct {
	TransactionReference string `json:"transaction_reference"`
	Status               string `json:"status"`
	Message              string `json:"message"`
	IsDuplicate          bool   `json:"is_duplicate"`
	Retryable            *bool  `json:"retryable,omitempty"`
	ErrorCode            string `json:"error_code,omitempty"`
	ClientTimeoutSeconds int    `json:"client_timeout_seconds"`
}

type sessionResponse struct {
	TransactionReference string     `json:"transaction_reference"`
	Status               string     `json:"status"`
	Amount               string     `json:"amount"`
	Currency             string     `json:"currency"`
	Provider             string     `json:"provider"`
	OrderID              *uuid.UUID `json:"order_id,omitempty"`
	FailureReason        *string    `json:"failure_reason,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	ExpiresAt            time.Time  `json:"expires_at"`
	CanReconcileAt       *time.Time `json:"can_reconcile_at,omitempty"`
}

type reconcileResponse struct {
	sessionResponse
	Action        string `json:"action"`
	GatewayStatus string `json:"gateway_status,omitempty"`
}

// Initiate handles POST /api/v1/payments/mobile-money
func (h *PaymentHandler) Initiate(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required", "code": "AUTH_REQUIRED"})
	}

	var req initiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body", "code": "INVALID_ARGUMENT"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in := usecase.InitiatePaymentInput{
		UserID:      user.UserID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Provider:    req.Provider,
		PhoneNumber: req.PhoneNumber,
		BuyerName:   req.BuyerName,
		BuyerEmail:  req.BuyerEmail,
		Snapshot:    req.OrderData,
	}
	if req.OrderID != "" {
		orderID := uuid.MustParse(req.OrderID)
		in.OrderID = &orderID
	}

	result, err := h.initiator.Initiate(c.Request().Context(), in)
	if err != nil {
		return fail(c, h.logger, err, "Failed to initiate mobile money payment")
	}

	resp := initiatePaymentResponse{
		TransactionReference: result.Reference,
		Status:               string(result.Status),
		Message:              result.Message,
		IsDuplicate:          result.IsDuplicate,
		ClientTimeoutSeconds: int(result.ClientTimeout / time.Second),
	}

	status := http.StatusOK
	if result.Status == model.SessionStatusFailed {
		retryable := result.Retryable
		resp.Retryable = &retryable
		resp.ErrorCode = result.ErrorCode
		status = http.StatusPaymentRequired
	}
	return c.JSON(status, resp)
}

// GetStatus handles GET /api/v1/payments/mobile-money/:reference
func (h *PaymentHandler) GetStatus(c echo.Context) error {
	session, err := h.ownedSession(c, c.Param("reference"))
	if err != nil {
		return fail(c, h.logger, err, "Failed to load payment session")
	}
	return c.JSON(http.StatusOK, h.toSessionResponse(session))
}

// Reconcile handles POST /api/v1/payments/mobile-money/:reference/reconcile
func (h *PaymentHandler) Reconcile(c echo.Context) error {
	session, err := h.ownedSession(c, c.Param("reference"))
	if err != nil {
		return fail(c, h.logger, err, "Failed to load payment session")
	}

	result, err := h.reconciler.Reconcile(c.Request().Context(), session.TransactionReference, usecase.TriggerManual)
	if err != nil {
		return fail(c, h.logger, err, "Manual reconcile failed")
	}

	return c.JSON(http.StatusOK, reconcileResponse{
		sessionResponse: h.toSessionResponse(result.Session),
		Action:          string(result.Action),
		GatewayStatus:   result.GatewayStatus,
	})
}

// GetOrderPayment handles GET /api/v1/payments/orders/:orderId/payment
func (h *PaymentHandler) GetOrderPayment(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required", "code": "AUTH_REQUIRED"})
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid order ID", "code": "INVALID_ARGUMENT"})
	}

	session, err := h.sessions.GetByOrderID(c.Request().Context(), orderID)
	if err != nil {
		return fail(c, h.logger, err, "Failed to load order payment")
	}
	if session.UserID != user.UserID {
		return fail(c, h.logger, domainErrors.ErrForbidden, "Order payment requested by another user")
	}
	return c.JSON(http.StatusOK, h.toSessionResponse(session))
}

func (h *PaymentHandler) ownedSession(c echo.Context, reference string) (*model.PaymentSession, error) {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return nil, pkgErrors.NewAppError(pkgErrors.ErrUnauthenticated, "Authentication required", err)
	}

	session, err := h.sessions.GetByReference(c.Request().Context(), reference)
	if err != nil {
		return nil, err
	}
	if session.UserID != user.UserID {
		return nil, domainErrors.ErrForbidden
	}
	return session, nil
}

func (h *PaymentHandler) toSessionResponse(session *model.PaymentSession) sessionResponse {
	resp := sessionResponse{
		TransactionReference: session.TransactionReference,
		Status:               string(session.Status),
		Amount:               session.Amount.StringFixed(2),
		Currency:             session.Currency,
		Provider:             string(session.Provider),
		FailureReason:        session.FailureReason,
		CreatedAt:            session.CreatedAt,
		UpdatedAt:            session.UpdatedAt,
		ExpiresAt:            session.ExpiresAt,
	}
	if session.Status == model.SessionStatusCompleted {
		resp.OrderID = session.OrderID
	}
	if !session.Status.IsTerminal() {
		allowedAt := h.reconciler.ReconcileAllowedAt(session)
		resp.CanReconcileAt = &allowedAt
	}
	return resp
}
