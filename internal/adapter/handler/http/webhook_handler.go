package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/usecase"
	"go.uber.org/zap"
)

const (
	signatureHeader = "X-Webhook-Signature"
	apiKeyHeader    = "x-api-key"
	maxWebhookBody  = 64 << 10
)

type WebhookConfig struct {
	// Secret enables HMAC-SHA256 verification when set.
	Secret       string
	APIKey       string
	VerifyAPIKey bool
}

// WebhookHandler receives gateway payment callbacks.
type WebhookHandler struct {
	processor *usecase.WebhookProcessor
	events    *usecase.EventLogger
	config    WebhookConfig
	logger    *zap.Logger
}

func NewWebhookHandler(processor *usecase.WebhookProcessor, events *usecase.EventLogger, cfg WebhookConfig, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		events:    events,
		config:    cfg,
		logger:    logger,
	}
}

// Handle processes POST /webhook/mobile-money
func (h *WebhookHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("Failed to read webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to read request body", "code": "INVALID_ARGUMENT"})
	}

	if err := h.authenticate(c.Request(), body); err != nil {
		h.logger.Warn("Webhook authentication failed",
			zap.String("remote_ip", c.RealIP()),
			zap.Error(err))
		h.events.Log(ctx, model.EventWebhookRejected, nil, err, map[string]interface{}{
			"remote_ip": c.RealIP(),
		})
		return fail(c, h.logger, domainErrors.ErrInvalidSignature, "Webhook rejected")
	}

	conf, err := parseConfirmation(body)
	if err != nil {
		h.logger.Warn("Invalid webhook payload", zap.Error(err), zap.ByteString("body", body))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "code": "INVALID_ARGUMENT"})
	}

	h.logger.Info("Received mobile money webhook",
		zap.String("reference", conf.Reference),
		zap.String("outcome", string(conf.Outcome)),
		zap.String("transaction_id", conf.GatewayTransactionID))

	result, err := h.processor.Apply(ctx, conf)
	if err != nil {
		return fail(c, h.logger, err, "Failed to apply webhook")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"changed": result.Changed,
	})
}

func (h *WebhookHandler) authenticate(r *http.Request, body []byte) error {
	if h.config.VerifyAPIKey {
		got := r.Header.Get(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.config.APIKey)) != 1 {
			return errors.New("api key mismatch")
		}
	}
	if h.config.Secret == "" {
		return nil
	}

	got, err := hex.DecodeString(strings.TrimPrefix(r.Header.Get(signatureHeader), "sha256="))
	if err != nil || len(got) == 0 {
		return errors.New("missing or malformed signature")
	}
	if !hmac.Equal(got, Sign(h.config.Secret, body)) {
		return errors.New("signature mismatch")
	}
	return nil
}

// Sign returns the HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func parseConfirmation(body []byte) (entity.GatewayConfirmation, error) {
	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return entity.GatewayConfirmation{}, fmt.Errorf("invalid JSON payload: %w", err)
	}

	reference := stringField(raw, "order_id")
	if reference == "" {
		return entity.GatewayConfirmation{}, errors.New("order_id is required")
	}
	status := stringField(raw, "payment_status")
	if status == "" {
		return entity.GatewayConfirmation{}, errors.New("payment_status is required")
	}

	conf := entity.GatewayConfirmation{
		Reference:            reference,
		Outcome:              entity.ParseGatewayStatus(status),
		GatewayTransactionID: stringField(raw, "transaction_id", "transid", "reference"),
		Channel:              stringField(raw, "channel"),
		SubscriberPhone:      stringField(raw, "subscriber_phone", "msisdn"),
		Reason:               stringField(raw, "message"),
		Source:               entity.SourceWebhook,
		Raw:                  raw,
	}

	if amount := stringField(raw, "amount"); amount != "" {
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return entity.GatewayConfirmation{}, fmt.Errorf("invalid amount %q", amount)
		}
		conf.Amount = parsed
	}
	return conf, nil
}

// stringField returns the first non-empty value among keys, accepting strings and numbers.
func stringField(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
