// Package realtime carries document change events from the writers (the
// HTTP handlers, the BaaS webhook, the message broker) to the readers that
// keep aggregations fresh.
package realtime

import (
	"context"
	"sync"

	"github.com/boddenberg/financio-bfa-go/internal/domain"

	"go.uber.org/zap"
)

const subscriberBuffer = 64

// Hub is an in-process fan-out of change events. Publish never blocks:
// a subscriber whose buffer is full misses the event and is logged.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.ChangeEvent
	next   int
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{subs: make(map[int]chan domain.ChangeEvent), logger: logger}
}

// Publish implements port.EventPublisher.
func (h *Hub) Publish(_ context.Context, ev domain.ChangeEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("realtime: subscriber buffer full, event dropped",
				zap.Int("subscriber", id),
				zap.Strings("events", ev.Events),
			)
		}
	}
	return nil
}

// Subscribe implements port.EventSource. The channel is closed when ctx
// ends or cancel is called.
func (h *Hub) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, func()) {
	ch := make(chan domain.ChangeEvent, subscriberBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel
}

// Subscribers reports how many subscriptions are open.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
