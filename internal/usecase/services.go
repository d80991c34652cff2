package usecase

import (
	"github.com/wekeepgrowing/momo-checkout/internal/config"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/provider"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"github.com/wekeepgrowing/momo-checkout/pkg/messaging"
	"go.uber.org/zap"
)

// Services bundles the payment use cases sharing one store and gateway
type Services struct {
	Events       *EventLogger
	Notifier     *Notifier
	Sessions     *SessionManager
	Materializer *OrderMaterializer
	Processor    *WebhookProcessor
	Reconciler   *Reconciler
	Sweeper      *Sweeper
	Initiator    *PaymentInitiator
}

// NewServices wires every use case from cfg
func NewServices(cfg *config.Config, store repository.Store, gateway provider.MobileMoneyGateway, publisher messaging.Publisher, refs ReferenceSource, logger *zap.Logger) *Services {
	payment := cfg.Payment

	events := NewEventLogger(store, logger)
	notifier := NewNotifier(publisher, logger)
	sessions := NewSessionManager(store, refs, events, payment.ActiveWindow, payment.AbsoluteTimeout, logger)
	materializer := NewOrderMaterializer(events, logger)
	processor := NewWebhookProcessor(store, sessions, materializer, events, notifier, logger)
	reconciler := NewReconciler(store, sessions, processor, gateway, events, notifier, ReconcilerConfig{
		AbsoluteTimeout:         payment.AbsoluteTimeout,
		ManualReconcileMinDwell: payment.ManualReconcileMinDwell,
		GatewayTimeout:          payment.GatewayTimeout,
	}, logger)

	return &Services{
		Events:       events,
		Notifier:     notifier,
		Sessions:     sessions,
		Materializer: materializer,
		Processor:    processor,
		Reconciler:   reconciler,
		Sweeper:      NewSweeper(store, reconciler, payment.ActiveWindow, payment.AbsoluteTimeout, payment.SweepBatch, logger),
		Initiator: NewPaymentInitiator(store, sessions, gateway, events, notifier, InitiatorConfig{
			Currency:       payment.Currency,
			WebhookURL:     cfg.Service.WebhookURL(),
			GatewayTimeout: payment.GatewayTimeout,
		}, logger),
	}
}
