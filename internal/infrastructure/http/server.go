package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/wekeepgrowing/momo-checkout/internal/adapter/handler/http"
	"github.com/wekeepgrowing/momo-checkout/internal/config"
	"github.com/wekeepgrowing/momo-checkout/internal/middleware/auth"
	"github.com/wekeepgrowing/momo-checkout/internal/usecase"
	"github.com/wekeepgrowing/momo-checkout/pkg/logger"
	"go.uber.org/zap"
)

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	services *usecase.Services
}

func NewServer(cfg *config.Config, log *zap.Logger, services *usecase.Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger.WithEchoLogger(e, log)
	e.Validator = handlers.NewRequestValidator()

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins(cfg.Server.HTTP.AllowOrigins),
		AllowMethods: []string{echo.GET, echo.POST},
	}))

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		services: services,
	}
	s.setupRoutes()
	return s
}

func allowOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := s.config.Server.HTTP.Addr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	paymentHandler := handlers.NewPaymentHandler(s.services.Initiator, s.services.Sessions, s.services.Reconciler, s.logger)
	webhookHandler := handlers.NewWebhookHandler(s.services.Processor, s.services.Events, handlers.WebhookConfig{
		Secret:       s.config.Gateway.WebhookSecret,
		APIKey:       s.config.Gateway.APIKey,
		VerifyAPIKey: s.config.Gateway.VerifyAPIKey,
	}, s.logger)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.JWT.Secret,
		Logger: s.logger,
		SkipPaths: append([]string{
			"/health",
			"/webhook",
		}, s.config.JWT.SkipPaths...),
	}

	// Protected routes (require JWT authentication)
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	payments := v1.Group("/payments")
	payments.POST("/mobile-money", paymentHandler.Initiate)
	payments.GET("/mobile-money/:reference", paymentHandler.GetStatus)
	payments.POST("/mobile-money/:reference/reconcile", paymentHandler.Reconcile)
	payments.GET("/orders/:orderId/payment", paymentHandler.GetOrderPayment)

	// Gateway callback (outside API versioning, authenticated by signature)
	s.echo.POST("/webhook/mobile-money", webhookHandler.Handle)
}
