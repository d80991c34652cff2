package config

import (
	"fmt"

	pkgconfig "github.com/wekeepgrowing/momo-checkout/pkg/config"
	"github.com/wekeepgrowing/momo-checkout/pkg/logger"
	"github.com/wekeepgrowing/momo-checkout/pkg/messaging"
)

const serviceName = "payment"

type Config struct {
	Service   ServiceConfig    `yaml:"service"`
	Database  DatabaseConfig   `yaml:"database"`
	Server    ServerConfig     `yaml:"server"`
	Log       logger.Config    `yaml:"log"`
	JWT       JWTConfig        `yaml:"jwt"`
	Payment   PaymentConfig    `yaml:"payment"`
	Gateway   GatewayConfig    `yaml:"gateway"`
	Messaging messaging.Config `yaml:"messaging"`
}

type JWTConfig struct {
	Secret    string   `yaml:"secret"`
	SkipPaths []string `yaml:"skip_paths"`
}

// LoadConfig reads configs/payment.yaml (or $CONFIG_PATH) through viper,
// applies PAYMENT_* environment overrides and fills defaults.
func LoadConfig() (*Config, error) {
	src, err := pkgconfig.Load(serviceName)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := src.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", src.File(), err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a configuration usable for local development and tests.
func Default() *Config {
	cfg := &Config{
		Service: ServiceConfig{Name: serviceName, Environment: "dev"},
		Server: ServerConfig{
			HTTP: HTTPConfig{Host: "0.0.0.0", Port: 8080},
			GRPC: GRPCConfig{Host: "0.0.0.0", Port: 9090},
		},
		Log:       logger.Config{Level: "info", Format: "json", Output: "stdout"},
		Messaging: messaging.Config{Driver: "none"},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	c.Database.applyDefaults()
	c.Payment.applyDefaults()
	c.Gateway.applyDefaults()
}

// Validate checks settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c.Server.HTTP.Port <= 0 {
		return fmt.Errorf("server.http.port must be positive")
	}
	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverMemory {
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	return c.Payment.Validate()
}
