package event

import (
	"slices"
	"sync"

	"github.com/supplychain/procurement/internal/domain/shared"
)

// HandlerRegistry routes event types to handlers. Lookups return the handlers
// registered for the type before the catch-all handlers, each group in
// registration order.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	catchAll []shared.EventHandler
	// distinct handlers in first-registration order
	known []shared.EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byType: make(map[string][]shared.EventHandler)}
}

// Register subscribes handler to eventTypes, or to every type when none are
// given. Repeating a registration changes nothing.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.known, handler) {
		r.known = append(r.known, handler)
	}
	if len(eventTypes) == 0 {
		r.catchAll = appendOnce(r.catchAll, handler)
		return
	}
	for _, eventType := range eventTypes {
		r.byType[eventType] = appendOnce(r.byType[eventType], handler)
	}
}

// Unregister drops every subscription held by handler.
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	same := func(h shared.EventHandler) bool { return h == handler }
	r.known = slices.DeleteFunc(r.known, same)
	r.catchAll = slices.DeleteFunc(r.catchAll, same)
	for eventType, handlers := range r.byType {
		if handlers = slices.DeleteFunc(handlers, same); len(handlers) == 0 {
			delete(r.byType, eventType)
		} else {
			r.byType[eventType] = handlers
		}
	}
}

// GetHandlers returns a fresh slice of the handlers that receive eventType.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Concat(r.byType[eventType], r.catchAll)
}

// GetAllHandlers returns each registered handler once.
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.known)
}

func appendOnce(handlers []shared.EventHandler, handler shared.EventHandler) []shared.EventHandler {
	if slices.Contains(handlers, handler) {
		return handlers
	}
	return append(handlers, handler)
}
