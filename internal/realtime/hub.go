// Package realtime fans newly written log records out to live subscribers.
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liliang-cn/beacon/internal/domain"
)

const subscriberBuffer = 64

// Subscription receives the records matching its filter on C until closed
type Subscription struct {
	ID     uuid.UUID
	Filter domain.LogFilter
	C      <-chan *domain.LogRecord

	ch   chan *domain.LogRecord
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription from its hub and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub keeps the live subscriptions of this process
type Hub struct {
	mu     sync.RWMutex
	logger *zap.Logger
	subs   map[uuid.UUID]*Subscription
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger.With(zap.String("component", "hub")),
		subs:   make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a subscriber for records matching filter
func (h *Hub) Subscribe(filter domain.LogFilter) *Subscription {
	ch := make(chan *domain.LogRecord, subscriberBuffer)
	sub := &Subscription{
		ID:     uuid.New(),
		Filter: filter,
		C:      ch,
		ch:     ch,
		hub:    h,
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	h.logger.Debug("subscriber added", zap.String("subscription_id", sub.ID.String()))
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub.ID)
	close(sub.ch)
	h.mu.Unlock()

	h.logger.Debug("subscriber removed", zap.String("subscription_id", sub.ID.String()))
}

// Broadcast delivers rec to every matching subscriber. A subscriber whose
// buffer is full misses the record; the stream's reconciliation picks it up.
func (h *Hub) Broadcast(rec *domain.LogRecord) {
	if rec == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.Filter.Matches(rec) {
			continue
		}
		select {
		case sub.ch <- rec:
		default:
			h.logger.Warn("dropping log notification; subscriber buffer full",
				zap.String("subscription_id", sub.ID.String()),
				zap.String("log_id", rec.ID),
			)
		}
	}
}

// Len returns the number of live subscriptions
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Readers see C closed and stop.
func (h *Hub) Close() {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.Close()
	}
}
