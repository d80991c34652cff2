package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
)

// eventLog is outside the transactional tables: appends are never rolled back.
type eventLog struct {
	mu     sync.Mutex
	events []model.PaymentLogEvent
}

func (l *eventLog) Append(ctx context.Context, event *model.PaymentLogEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, *event)
	return nil
}

func (l *eventLog) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*model.PaymentLogEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*model.PaymentLogEvent
	for _, e := range l.events {
		if e.SessionID != nil && *e.SessionID == sessionID {
			event := e
			out = append(out, &event)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// EventTypes returns the type of every event recorded for sessionID in order.
func (s *Store) EventTypes(sessionID uuid.UUID) []model.EventType {
	events, _ := s.events.ListBySession(context.Background(), sessionID, 0)
	types := make([]model.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

// CountEvents counts events of type t across all sessions.
func (s *Store) CountEvents(t model.EventType) int {
	s.events.mu.Lock()
	defer s.events.mu.Unlock()

	n := 0
	for _, e := range s.events.events {
		if e.EventType == t {
			n++
		}
	}
	return n
}

// OrderCount returns the number of orders held by the store.
func (s *Store) OrderCount() int {
	n := 0
	s.read(func(t *tables) { n = len(t.orders) })
	return n
}

// SessionCount returns the number of sessions held by the store.
func (s *Store) SessionCount() int {
	n := 0
	s.read(func(t *tables) { n = len(t.sessions) })
	return n
}
