package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/domain/trade"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string, tenantID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, trade.AggregateTypePurchaseOrder, uuid.New(), tenantID,
			time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)),
	}
}

type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	received   []shared.DomainEvent
	err        error
	panicWith  any
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

type recordedEvent struct {
	tenantID  uuid.UUID
	eventType string
}

type fakeRecorder struct {
	events []recordedEvent
}

func (r *fakeRecorder) RecordEvent(ctx context.Context, tenantID uuid.UUID, eventType string) {
	r.events = append(r.events, recordedEvent{tenantID: tenantID, eventType: eventType})
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &testHandler{eventTypes: []string{trade.EventTypeAmendmentProposed}}
	bus.Subscribe(handler)
	require.NoError(t, bus.Start(context.Background()))
	assert.True(t, bus.IsRunning())

	tenantID := uuid.New()
	err := bus.Publish(context.Background(),
		newTestEvent(trade.EventTypeAmendmentProposed, tenantID),
		newTestEvent(trade.EventTypeOrderDeclined, tenantID),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, handler.count())
	assert.Equal(t, trade.EventTypeAmendmentProposed, handler.received[0].EventType())
	assert.Equal(t, tenantID, handler.received[0].TenantID())

	published, failed := bus.Stats()
	assert.Equal(t, int64(2), published)
	assert.Zero(t, failed)

	require.NoError(t, bus.Stop(context.Background()))
	assert.False(t, bus.IsRunning())
}

func TestInMemoryEventBus_SubscribeExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := &testHandler{eventTypes: []string{trade.EventTypeOrderEdited}}
	bus.Subscribe(handler, trade.EventTypeOrderConfirmed)

	_ = bus.Publish(context.Background(),
		newTestEvent(trade.EventTypeOrderEdited, uuid.New()),
		newTestEvent(trade.EventTypeOrderConfirmed, uuid.New()),
	)

	require.Equal(t, 1, handler.count())
	assert.Equal(t, trade.EventTypeOrderConfirmed, handler.received[0].EventType())
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := &testHandler{eventTypes: []string{trade.EventTypeOrderConfirmed}, err: errors.New("boom")}
	panicking := &testHandler{eventTypes: []string{trade.EventTypeOrderConfirmed}, panicWith: "kaput"}
	healthy := &testHandler{eventTypes: []string{trade.EventTypeOrderConfirmed}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent(trade.EventTypeOrderConfirmed, uuid.New()))
	require.NoError(t, err)

	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, healthy.count())

	_, failed := bus.Stats()
	assert.Equal(t, int64(2), failed)

	entries := logs.FilterMessage("Event handler failed").All()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1].ContextMap()["error"], "handler panicked: kaput")
}

func TestInMemoryEventBus_NilEventsAreSkipped(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &testHandler{}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), nil))
	assert.Zero(t, handler.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &testHandler{eventTypes: []string{trade.EventTypeOrderDeclined}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	_ = bus.Publish(context.Background(), newTestEvent(trade.EventTypeOrderDeclined, uuid.New()))
	assert.Zero(t, handler.count())
}

func TestAuditHandler_LogsEnvelope(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewAuditHandler(zap.New(core)))

	evt := newTestEvent(trade.EventTypeAmendmentApproved, uuid.New())
	require.NoError(t, bus.Publish(context.Background(), evt))

	entries := logs.FilterMessage("domain event").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, trade.EventTypeAmendmentApproved, fields["event_type"])
	assert.Equal(t, evt.AggregateID().String(), fields["aggregate_id"])
	assert.Equal(t, evt.TenantID().String(), fields["tenant_id"])
	assert.Equal(t, trade.AggregateTypePurchaseOrder, fields["aggregate_type"])
}

func TestMetricsHandler_RecordsEveryEvent(t *testing.T) {
	recorder := &fakeRecorder{}
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewMetricsHandler(recorder))

	tenantID := uuid.New()
	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent(trade.EventTypeOrderEdited, tenantID),
		newTestEvent(trade.EventTypeOrderDeclined, tenantID),
	))

	require.Len(t, recorder.events, 2)
	assert.Equal(t, recordedEvent{tenantID: tenantID, eventType: trade.EventTypeOrderEdited}, recorder.events[0])
	assert.Equal(t, trade.EventTypeOrderDeclined, recorder.events[1].eventType)

	assert.NoError(t, NewMetricsHandler(nil).Handle(context.Background(), newTestEvent("x", tenantID)))
}
