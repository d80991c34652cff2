package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	pkgErrors "github.com/wekeepgrowing/momo-checkout/pkg/errors"
	"go.uber.org/zap"
)

// toAppError maps domain errors onto transport-neutral codes.
func toAppError(err error) *pkgErrors.AppError {
	var appErr *pkgErrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErr *domainErrors.ValidationError
	var tooEarly *domainErrors.ReconcileTooEarlyError
	var gatewayErr *domainErrors.GatewayError

	switch {
	case errors.As(err, &validationErr):
		return pkgErrors.NewAppError(pkgErrors.ErrInvalidArgument, validationErr.Error(), err).
			WithDetail("field", validationErr.Field)
	case errors.As(err, &tooEarly):
		return pkgErrors.NewAppError(pkgErrors.ErrTooEarly, "Payment is still being processed, try again later", err).
			WithDetail("can_reconcile_at", tooEarly.AllowedAt.UTC().Format(time.RFC3339))
	case errors.As(err, &gatewayErr):
		return pkgErrors.NewAppError(pkgErrors.ErrGatewayUnavailable, "Payment provider unavailable", err).
			WithDetail("retryable", gatewayErr.Retryable)
	case errors.Is(err, domainErrors.ErrSessionNotFound):
		return pkgErrors.NewAppError(pkgErrors.ErrNotFound, "Payment session not found", err)
	case errors.Is(err, domainErrors.ErrOrderNotFound):
		return pkgErrors.NewAppError(pkgErrors.ErrNotFound, "Order not found", err)
	case errors.Is(err, domainErrors.ErrForbidden):
		return pkgErrors.NewAppError(pkgErrors.ErrUnauthorized, "Payment session belongs to another user", err)
	case errors.Is(err, domainErrors.ErrOrderOwnerMismatch):
		return pkgErrors.NewAppError(pkgErrors.ErrUnauthorized, "Order belongs to another user", err)
	case errors.Is(err, domainErrors.ErrOrderTotalMismatch):
		return pkgErrors.NewAppError(pkgErrors.ErrPreconditionFailed, "Amount does not match the order total", err)
	case errors.Is(err, domainErrors.ErrOrderAlreadyPaid):
		return pkgErrors.NewAppError(pkgErrors.ErrConflict, "Order is already paid", err)
	case errors.Is(err, domainErrors.ErrInvalidSignature):
		return pkgErrors.NewAppError(pkgErrors.ErrUnauthenticated, "Invalid webhook signature", err)
	case errors.Is(err, domainErrors.ErrAmountMismatch):
		return pkgErrors.NewAppError(pkgErrors.ErrPreconditionFailed, "Confirmed amount does not match", err)
	case errors.Is(err, domainErrors.ErrEmptyOrderSnapshot):
		return pkgErrors.NewAppError(pkgErrors.ErrInvalidArgument, "Order data must contain at least one item", err)
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		return pkgErrors.NewAppError(pkgErrors.ErrConflict, "Payment session cannot change state", err)
	default:
		return pkgErrors.NewAppError(pkgErrors.ErrInternal, "Internal server error", err)
	}
}

// fail logs err and converts it into the echo error the error handler renders.
func fail(c echo.Context, logger *zap.Logger, err error, msg string) error {
	appErr := toAppError(err)
	pkgErrors.LogError(logger, appErr, msg,
		zap.String("path", c.Request().URL.Path),
		zap.String("method", c.Request().Method))

	var tooEarly *domainErrors.ReconcileTooEarlyError
	if errors.As(err, &tooEarly) {
		retryAfter := tooEarly.RetryAfter(time.Now())
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(retryAfter/time.Second)))
	}
	return pkgErrors.ToHTTPError(appErr)
}
