package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/domain/trade"
)

type mockHandler struct {
	name string
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error { return nil }
func (h *mockHandler) EventTypes() []string                                      { return nil }

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	r := NewHandlerRegistry()
	h := &mockHandler{name: "confirmations"}
	r.Register(h, trade.EventTypeOrderConfirmed, trade.EventTypeOrderAcceptedWithDiscrepancy)

	assert.Len(t, r.GetHandlers(trade.EventTypeOrderConfirmed), 1)
	assert.Len(t, r.GetHandlers(trade.EventTypeOrderAcceptedWithDiscrepancy), 1)
	assert.Empty(t, r.GetHandlers(trade.EventTypeOrderDeclined))
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	r := NewHandlerRegistry()
	specific := &mockHandler{name: "specific"}
	wildcard := &mockHandler{name: "wildcard"}
	r.Register(wildcard)
	r.Register(specific, trade.EventTypeOrderEdited)

	handlers := r.GetHandlers(trade.EventTypeOrderEdited)
	assert.Equal(t, []shared.EventHandler{specific, wildcard}, handlers)
	assert.Equal(t, []shared.EventHandler{wildcard}, r.GetHandlers(trade.EventTypeOrderDeclined))
}

func TestHandlerRegistry_Register_Duplicate(t *testing.T) {
	r := NewHandlerRegistry()
	h := &mockHandler{name: "dup"}
	r.Register(h, trade.EventTypeOrderEdited)
	r.Register(h, trade.EventTypeOrderEdited)
	r.Register(h)
	r.Register(h)

	assert.Len(t, r.GetHandlers(trade.EventTypeOrderEdited), 2)
	assert.Len(t, r.GetAllHandlers(), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	r := NewHandlerRegistry()
	a := &mockHandler{name: "a"}
	b := &mockHandler{name: "b"}
	r.Register(a, trade.EventTypeAmendmentProposed)
	r.Register(b)
	r.Unregister(a)

	assert.Equal(t, []shared.EventHandler{b}, r.GetHandlers(trade.EventTypeAmendmentProposed))
	r.Unregister(b)
	assert.Empty(t, r.GetAllHandlers())
}

func TestHandlerRegistry_GetAllHandlers_RegistrationOrder(t *testing.T) {
	r := NewHandlerRegistry()
	audit := &mockHandler{name: "audit"}
	shortfall := &mockHandler{name: "shortfall"}
	metrics := &mockHandler{name: "metrics"}
	r.Register(audit)
	r.Register(shortfall, trade.EventTypeOrderConfirmed)
	r.Register(metrics)
	r.Register(shortfall, trade.EventTypeOrderAcceptedWithDiscrepancy)

	assert.Equal(t, []shared.EventHandler{audit, shortfall, metrics}, r.GetAllHandlers())

	handlers := r.GetHandlers(trade.EventTypeOrderConfirmed)
	handlers[0] = nil
	assert.Equal(t, []shared.EventHandler{shortfall, audit, metrics}, r.GetHandlers(trade.EventTypeOrderConfirmed))
}
