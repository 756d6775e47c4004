// Package events provides the in-process publish/subscribe fabric that fans
// batch submissions out into unit-of-work signals. The bus implements the
// same EventPublisher port a broker-backed transport would, so swapping in a
// queue or broker does not touch the services.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portssvc "github.com/lucasmedeiros/credit_engine/internal/core/ports/services"
	"github.com/lucasmedeiros/credit_engine/internal/platform/dispatch"
)

// Handler consumes one event. Handlers run on the dispatch pool and must not
// assume they share a goroutine with the publisher.
type Handler func(ctx context.Context, event domain.Event)

// Bus routes events to the handlers subscribed to their event type and runs
// each delivery on the dispatch pool.
type Bus struct {
	pool   *dispatch.Pool
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates a bus backed by the given pool.
func NewBus(pool *dispatch.Pool, logger *slog.Logger) *Bus {
	return &Bus{
		pool:     pool,
		logger:   logger,
		handlers: make(map[string][]Handler),
	}
}

var _ portssvc.EventPublisher = (*Bus)(nil)

// Subscribe registers a handler for the given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers the event to every subscribed handler via the pool.
// Handlers outlive the publishing request, so the context is detached from
// the caller's cancellation before hand-off.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	meta := event.Meta()

	b.mu.RLock()
	handlers := b.handlers[meta.EventType]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Warn("No handlers subscribed for event type", slog.String("event_type", meta.EventType))
		return nil
	}

	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		h := handler
		if err := b.pool.Submit(func() { h(detached, event) }); err != nil {
			return err
		}
	}
	return nil
}

// PublishAll delivers the events in order.
func (b *Bus) PublishAll(ctx context.Context, events []domain.Event) error {
	for _, event := range events {
		if err := b.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
