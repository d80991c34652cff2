// Package app assembles the payment service from its configuration.
package app

import (
	"fmt"

	"github.com/wekeepgrowing/momo-checkout/internal/config"
	"github.com/wekeepgrowing/momo-checkout/internal/infrastructure/database"
	"github.com/wekeepgrowing/momo-checkout/internal/infrastructure/gateway/zenopay"
	"github.com/wekeepgrowing/momo-checkout/internal/infrastructure/idgen"
	"github.com/wekeepgrowing/momo-checkout/internal/usecase"
	"github.com/wekeepgrowing/momo-checkout/pkg/messaging"
	"go.uber.org/zap"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Database  *database.Handle
	Publisher messaging.Publisher
	Services  *usecase.Services
}

// New opens the store and broker and wires the use cases. The caller owns Close.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Open(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	publisher, err := messaging.NewPublisher(cfg.Messaging)
	if err != nil {
		_ = db.Close(logger)
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	refs, err := idgen.NewReferenceGenerator(cfg.Payment.ReferencePrefix, cfg.Payment.NodeID)
	if err != nil {
		_ = publisher.Close()
		_ = db.Close(logger)
		return nil, err
	}

	gateway := zenopay.NewClient(zenopay.Config{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.Timeout,
	}, logger)

	logger.Info("Payment service wired",
		zap.String("database", cfg.Database.Driver),
		zap.String("messaging", cfg.Messaging.Driver),
		zap.String("gateway", gateway.Name()),
		zap.String("reference_prefix", refs.Prefix()),
		zap.Duration("active_window", cfg.Payment.ActiveWindow),
		zap.Duration("absolute_timeout", cfg.Payment.AbsoluteTimeout))

	return &App{
		Config:    cfg,
		Logger:    logger,
		Database:  db,
		Publisher: publisher,
		Services:  usecase.NewServices(cfg, db.Store, gateway, publisher, refs, logger),
	}, nil
}

func (a *App) Migrate() error {
	return a.Database.Migrate(a.Logger)
}

func (a *App) Close() {
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Error("Failed to close message publisher", zap.Error(err))
	}
	if err := a.Database.Close(a.Logger); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
}
