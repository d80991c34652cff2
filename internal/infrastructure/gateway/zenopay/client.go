// Package zenopay implements provider.MobileMoneyGateway against the ZenoPay
// Tanzania mobile-money API.
package zenopay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/provider"
	"go.uber.org/zap"
)

const (
	chargePath = "/api/payments/mobile_money_tanzania"
	statusPath = "/api/payments/order-status"

	resultCodeAccepted = "000"
	defaultTimeout     = 45 * time.Second
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) Name() string {
	return "zenopay"
}

type chargeRequest struct {
	OrderID    string `json:"order_id"`
	BuyerEmail string `json:"buyer_email"`
	BuyerName  string `json:"buyer_name"`
	BuyerPhone string `json:"buyer_phone"`
	Amount     int64  `json:"amount"`
	WebhookURL string `json:"webhook_url,omitempty"`
	Channel    string `json:"channel,omitempty"`
}

type chargeResponse struct {
	Status     string `json:"status"`
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	OrderID    string `json:"order_id"`
}

type statusResponse struct {
	Reference  string      `json:"reference"`
	ResultCode string      `json:"resultcode"`
	Result     string      `json:"result"`
	Message    string      `json:"message"`
	Data       []statusRow `json:"data"`
}

type statusRow struct {
	OrderID       string          `json:"order_id"`
	CreationDate  string          `json:"creation_date"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus string          `json:"payment_status"`
	TransID       string          `json:"transid"`
	Channel       string          `json:"channel"`
	Reference     string          `json:"reference"`
	MSISDN        string          `json:"msisdn"`
}

// InitiateCharge pushes a USSD charge prompt to the buyer.
// POST /api/payments/mobile_money_tanzania
func (c *Client) InitiateCharge(ctx context.Context, req *provider.ChargeRequest) (*provider.ChargeResponse, error) {
	logger := c.logger.With(zap.String("reference", req.Reference))
	logger.Info("ZenoPay: Initiating charge",
		zap.String("amount", req.Amount.String()),
		zap.String("channel", req.Channel))

	body, err := json.Marshal(chargeRequest{
		OrderID:    req.Reference,
		BuyerEmail: req.BuyerEmail,
		BuyerName:  req.BuyerName,
		BuyerPhone: req.BuyerPhone,
		Amount:     req.Amount.Round(0).IntPart(),
		WebhookURL: req.WebhookURL,
		Channel:    req.Channel,
	})
	if err != nil {
		return nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeBadResponse, "failed to prepare request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chargePath, bytes.NewReader(body))
	if err != nil {
		return nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeTransport, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	status, respBody, err := c.do(httpReq)
	if err != nil {
		logger.Error("ZenoPay: Charge request failed", zap.Error(err))
		return nil, err
	}

	var resp chargeResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &resp); err != nil && status < 300 {
			return nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeBadResponse, "failed to parse response", err)
		}
	}

	if gwErr := classify(status, resp.ResultCode, resp.Message); gwErr != nil {
		logger.Warn("ZenoPay: Charge rejected",
			zap.Int("status_code", status),
			zap.String("result_code", gwErr.Code),
			zap.String("message", gwErr.Message))
		return nil, gwErr
	}

	logger.Info("ZenoPay: Charge accepted", zap.String("message", resp.Message))
	return &provider.ChargeResponse{
		Reference:  req.Reference,
		ResultCode: resp.ResultCode,
		Message:    resp.Message,
	}, nil
}

// QueryStatus looks up a charge by reference.
// GET /api/payments/order-status?order_id=
func (c *Client) QueryStatus(ctx context.Context, reference string) (*provider.StatusSnapshot, error) {
	endpoint := c.baseURL + statusPath + "?" + url.Values{"order_id": {reference}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeTransport, "failed to create request", err)
	}

	status, respBody, err := c.do(httpReq)
	if err != nil {
		c.logger.Warn("ZenoPay: Status query failed", zap.String("reference", reference), zap.Error(err))
		return nil, err
	}

	if status == http.StatusNotFound {
		return &provider.StatusSnapshot{Reference: reference}, nil
	}

	var resp statusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		if status >= 300 {
			return nil, classify(status, "", "")
		}
		return nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeBadResponse, "failed to parse status response", err)
	}
	if status >= 300 {
		return nil, classify(status, resp.ResultCode, resp.Message)
	}

	row := pickRow(resp.Data, reference)
	if row == nil {
		return &provider.StatusSnapshot{Reference: reference, Message: resp.Message}, nil
	}

	return &provider.StatusSnapshot{
		Reference:            reference,
		Found:                true,
		Outcome:              entity.ParseGatewayStatus(row.PaymentStatus),
		RawStatus:            row.PaymentStatus,
		GatewayTransactionID: row.TransID,
		Amount:               row.Amount,
		Channel:              row.Channel,
		SubscriberPhone:      row.MSISDN,
		Message:              resp.Message,
	}, nil
}

// do sends req with the API key and reads the whole body. Transport failures
// come back as *GatewayError.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return 0, nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeTimeout, "gateway did not respond in time", err)
		}
		return 0, nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeTransport, "gateway request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, domainErrors.NewGatewayError(domainErrors.GatewayCodeTransport, "failed to read response", err)
	}
	return resp.StatusCode, body, nil
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

// classify returns nil for an accepted call.
func classify(status int, resultCode, message string) *domainErrors.GatewayError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domainErrors.NewGatewayError(domainErrors.GatewayCodeInvalidCredentials, orDefault(message, "invalid api key"), nil)
	case status >= 500:
		return domainErrors.NewGatewayError(domainErrors.GatewayCodeTransport, fmt.Sprintf("gateway returned HTTP %d", status), nil)
	case resultCode == resultCodeAccepted && status < 300:
		return nil
	case resultCode != "":
		return domainErrors.NewGatewayError(resultCode, orDefault(message, "charge rejected"), nil)
	case status >= 300:
		return domainErrors.NewGatewayError(domainErrors.GatewayCodeBadResponse, fmt.Sprintf("gateway returned HTTP %d", status), nil)
	default:
		return domainErrors.NewGatewayError(domainErrors.GatewayCodeBadResponse, "response carried no result code", nil)
	}
}

func pickRow(rows []statusRow, reference string) *statusRow {
	for i := range rows {
		if rows[i].OrderID == reference {
			return &rows[i]
		}
	}
	// Older responses omit order_id on each row.
	if len(rows) == 1 && rows[0].OrderID == "" {
		return &rows[0]
	}
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
