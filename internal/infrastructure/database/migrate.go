package database

import (
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	logger.Info("Creating PostgreSQL extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	logger.Info("Running GORM auto-migrations...")
	err := db.AutoMigrate(
		&model.PaymentSession{},
		&model.Order{},
		&model.OrderItem{},
		&model.PaymentLogEvent{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}
	logger.Info("GORM auto-migrations completed successfully")

	logger.Info("Creating custom indexes...")
	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates custom indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	statements := []string{
		// Dedupe scan only ever looks at in-flight rows
		`CREATE INDEX IF NOT EXISTS idx_payment_sessions_in_flight ON payment_sessions (user_id, amount, provider, phone_number, created_at DESC) WHERE status IN ('pending', 'processing')`,
		// Sweeper scan
		`CREATE INDEX IF NOT EXISTS idx_payment_sessions_stale ON payment_sessions (status, created_at) WHERE status IN ('pending', 'processing')`,
		`CREATE INDEX IF NOT EXISTS idx_payment_log_events_session ON payment_log_events (session_id, created_at) WHERE session_id IS NOT NULL`,
		`ALTER TABLE payment_sessions DROP CONSTRAINT IF EXISTS chk_payment_sessions_amount_positive`,
		`ALTER TABLE payment_sessions ADD CONSTRAINT chk_payment_sessions_amount_positive CHECK (amount > 0)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
