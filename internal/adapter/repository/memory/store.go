// Package memory is an in-process implementation of repository.Store used by
// tests and by the memory database driver. Transactions are serialized and run
// against a private copy of the data that is swapped in on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/repository"
)

type tables struct {
	sessions map[uuid.UUID]model.PaymentSession
	orders   map[uuid.UUID]model.Order
	items    map[uuid.UUID][]model.OrderItem
}

func newTables() *tables {
	return &tables{
		sessions: make(map[uuid.UUID]model.PaymentSession),
		orders:   make(map[uuid.UUID]model.Order),
		items:    make(map[uuid.UUID][]model.OrderItem),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		sessions: make(map[uuid.UUID]model.PaymentSession, len(t.sessions)),
		orders:   make(map[uuid.UUID]model.Order, len(t.orders)),
		items:    make(map[uuid.UUID][]model.OrderItem, len(t.items)),
	}
	for k, v := range t.sessions {
		c.sessions[k] = v
	}
	for k, v := range t.orders {
		c.orders[k] = v
	}
	for k, v := range t.items {
		c.items[k] = append([]model.OrderItem(nil), v...)
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	// txMu serializes writers: transactions and root-level writes.
	txMu sync.Mutex
	// mu guards committed.
	mu        sync.RWMutex
	committed *tables

	events *eventLog
	now    func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		committed: newTables(),
		events:    &eventLog{},
		now:       time.Now,
	}
}

// WithClock overrides the clock used for created_at/updated_at defaults.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Sessions() repository.SessionRepository {
	return &sessionRepo{root: s}
}

func (s *Store) Orders() repository.OrderRepository {
	return &orderRepo{root: s}
}

func (s *Store) Events() repository.EventRepository {
	return s.events
}

// Transaction runs fn against a copy of the committed data and publishes the
// copy when fn returns nil.
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	tx := &txStore{root: s, data: work}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = tx.data
	s.mu.Unlock()
	return nil
}

// read runs fn with the committed tables under a read lock.
func (s *Store) read(fn func(t *tables)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// write runs a single-statement transaction.
func (s *Store) write(fn func(t *tables) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.committed)
}

// txStore is a Store bound to one in-flight transaction.
type txStore struct {
	root *Store
	data *tables
}

func (t *txStore) Sessions() repository.SessionRepository {
	return &sessionRepo{root: t.root, tx: t}
}

func (t *txStore) Orders() repository.OrderRepository {
	return &orderRepo{root: t.root, tx: t}
}

func (t *txStore) Events() repository.EventRepository {
	return t.root.events
}

// Transaction on a tx store behaves like a savepoint.
func (t *txStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	nested := &txStore{root: t.root, data: t.data.clone()}
	if err := fn(nested); err != nil {
		return err
	}
	t.data = nested.data
	return nil
}

// access dispatches to tx data when bound, otherwise to the committed tables.
func access(root *Store, tx *txStore, writeOp bool, fn func(t *tables) error) error {
	if tx != nil {
		return fn(tx.data)
	}
	if writeOp {
		return root.write(fn)
	}
	var err error
	root.read(func(t *tables) { err = fn(t) })
	return err
}
