package database

import (
	"fmt"

	gormRepo "github.com/wekeepgrowing/momo-checkout/internal/adapter/repository"
	"github.com/wekeepgrowing/momo-checkout/internal/adapter/repository/memory"
	"github.com/wekeepgrowing/momo-checkout/internal/config"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handle bundles the store with the resources behind it.
type Handle struct {
	Store repository.Store
	// DB is nil for the memory driver.
	DB *gorm.DB
}

// Open builds the store for the configured driver.
func Open(cfg *config.DatabaseConfig, logger *zap.Logger) (*Handle, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		return &Handle{Store: memory.NewStore()}, nil
	case config.DriverPostgres:
		db, err := NewConnection(cfg, logger)
		if err != nil {
			return nil, err
		}
		return &Handle{Store: gormRepo.NewStore(db, logger), DB: db}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate is a no-op for the memory driver.
func (h *Handle) Migrate(logger *zap.Logger) error {
	if h.DB == nil {
		return nil
	}
	return Migrate(h.DB, logger)
}

func (h *Handle) Close(logger *zap.Logger) error {
	if h.DB == nil {
		return nil
	}
	return Close(h.DB, logger)
}
