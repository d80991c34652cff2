package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/momo-checkout/internal/adapter/repository/memory"
	"github.com/wekeepgrowing/momo-checkout/internal/config"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/provider"
	"go.uber.org/zap"
)

func TestNewServices(t *testing.T) {
	cfg := config.Default()
	cfg.Service.PublicURL = "https://shop.example.com"
	cfg.Payment.ActiveWindow = 45 * time.Second

	gateway := new(MockGateway)
	gateway.On("InitiateCharge", mock.Anything, mock.MatchedBy(func(req *provider.ChargeRequest) bool {
		return req.WebhookURL == "https://shop.example.com/webhook/mobile-money"
	})).Return(&provider.ChargeResponse{ResultCode: "000"}, nil).Once()

	services := NewServices(cfg, memory.NewStore(), gateway, nil, &sequenceRefs{}, zap.NewNop())

	assert.Equal(t, 45*time.Second, services.Sessions.ActiveWindow())

	result, err := services.Initiator.Initiate(context.Background(), testInitiateInput(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, result.ClientTimeout)
	assert.Equal(t, "TZS", cfg.Payment.Currency)
	gateway.AssertExpectations(t)
}
