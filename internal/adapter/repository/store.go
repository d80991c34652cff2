package repository

import (
	"context"

	domainRepo "github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// gormStore implements domainRepo.Store on postgres
type gormStore struct {
	db *gorm.DB
	// root is the non-transactional handle used for the audit log.
	root   *gorm.DB
	logger *zap.Logger
}

// NewStore creates a postgres-backed store
func NewStore(db *gorm.DB, logger *zap.Logger) domainRepo.Store {
	return &gormStore{db: db, root: db, logger: logger}
}

func (s *gormStore) Sessions() domainRepo.SessionRepository {
	return &sessionRepository{db: s.db, logger: s.logger}
}

func (s *gormStore) Orders() domainRepo.OrderRepository {
	return &orderRepository{db: s.db, logger: s.logger}
}

// Events always writes outside the current transaction so that audit records
// survive a rollback.
func (s *gormStore) Events() domainRepo.EventRepository {
	return &eventRepository{db: s.root, logger: s.logger}
}

// Transaction opens a transaction, or a SAVEPOINT when s is already bound to one.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx domainRepo.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, root: s.root, logger: s.logger})
	})
}
