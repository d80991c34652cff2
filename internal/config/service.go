package config

import (
	"fmt"
	"time"
)

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	// PublicURL is the externally reachable base URL used to build the webhook callback.
	PublicURL string `yaml:"public_url"`
}

// WebhookURL is the callback address handed to the gateway on every charge.
func (c ServiceConfig) WebhookURL() string {
	return c.PublicURL + "/webhook/mobile-money"
}

// PaymentConfig carries the timing rules of the session lifecycle.
type PaymentConfig struct {
	// ActiveWindow is how long a processing session counts as a live
	// duplicate. The same value is returned to clients as their request timeout.
	ActiveWindow time.Duration `yaml:"active_window"`
	// AbsoluteTimeout after which an unresolved session is expired.
	AbsoluteTimeout time.Duration `yaml:"absolute_timeout"`
	// ManualReconcileMinDwell gates end-user triggered reconciliation.
	ManualReconcileMinDwell time.Duration `yaml:"manual_reconcile_min_dwell"`
	GatewayTimeout          time.Duration `yaml:"gateway_timeout"`
	SweepInterval           time.Duration `yaml:"sweep_interval"`
	SweepBatch              int           `yaml:"sweep_batch"`
	ReferencePrefix         string        `yaml:"reference_prefix"`
	NodeID                  int64         `yaml:"node_id"`
	Currency                string        `yaml:"currency"`
}

func (c *PaymentConfig) applyDefaults() {
	if c.ActiveWindow == 0 {
		c.ActiveWindow = 60 * time.Second
	}
	if c.AbsoluteTimeout == 0 {
		c.AbsoluteTimeout = 30 * time.Minute
	}
	if c.ManualReconcileMinDwell == 0 {
		c.ManualReconcileMinDwell = 30 * time.Second
	}
	if c.GatewayTimeout == 0 {
		c.GatewayTimeout = 30 * time.Second
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Minute
	}
	if c.SweepBatch == 0 {
		c.SweepBatch = 50
	}
	if c.ReferencePrefix == "" {
		c.ReferencePrefix = "MOMO"
	}
	if c.Currency == "" {
		c.Currency = "TZS"
	}
}

func (c *PaymentConfig) Validate() error {
	if c.AbsoluteTimeout <= c.ActiveWindow {
		return fmt.Errorf("payment.absolute_timeout (%s) must exceed payment.active_window (%s)", c.AbsoluteTimeout, c.ActiveWindow)
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("payment.node_id must be within 0..1023")
	}
	return nil
}

// GatewayConfig configures the mobile-money gateway client and webhook authentication.
type GatewayConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	// WebhookSecret enables HMAC-SHA256 verification of X-Webhook-Signature.
	WebhookSecret string `yaml:"webhook_secret"`
	// VerifyAPIKey requires the callback to echo the x-api-key header.
	VerifyAPIKey bool `yaml:"verify_api_key"`
}

func (c *GatewayConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://zenoapi.com"
	}
	if c.Timeout == 0 {
		c.Timeout = 45 * time.Second
	}
}
