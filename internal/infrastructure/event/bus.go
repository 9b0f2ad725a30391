package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/supplychain/procurement/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus hands each event to its subscribers on the publishing
// goroutine. Handler errors and panics are counted and logged; the remaining
// subscribers still receive the event.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	log      *zap.Logger

	running   atomic.Bool
	published atomic.Int64
	failed    atomic.Int64
}

func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &InMemoryEventBus{registry: NewHandlerRegistry(), log: log.Named("event_bus")}
}

// Publish never fails; a nil event is skipped.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		if e == nil {
			continue
		}
		b.published.Add(1)
		for _, h := range b.registry.GetHandlers(e.EventType()) {
			if err := deliver(ctx, h, e); err != nil {
				b.failed.Add(1)
				b.log.Error("Event handler failed",
					zap.String("event_type", e.EventType()),
					zap.Stringer("event_id", e.EventID()),
					zap.Stringer("aggregate_id", e.AggregateID()),
					zap.Error(err))
			}
		}
	}
	return nil
}

// Subscribe registers h for eventTypes, or for h.EventTypes() when none are given.
func (b *InMemoryEventBus) Subscribe(h shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = h.EventTypes()
	}
	b.registry.Register(h, eventTypes...)
	b.log.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(h shared.EventHandler) {
	b.registry.Unregister(h)
}

func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.log.Info("Event bus started")
	return nil
}

// Stop only flips the running flag and logs the counters.
func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	published, failed := b.Stats()
	b.log.Info("Event bus stopped", zap.Int64("published", published), zap.Int64("handler_failures", failed))
	return nil
}

func (b *InMemoryEventBus) IsRunning() bool { return b.running.Load() }

// Stats returns the published event count and the failed handler call count.
func (b *InMemoryEventBus) Stats() (published, failed int64) {
	return b.published.Load(), b.failed.Load()
}

func deliver(ctx context.Context, h shared.EventHandler, e shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, e)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
