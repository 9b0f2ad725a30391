package event

import (
	"context"

	"github.com/google/uuid"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// EventRecorder counts published events
type EventRecorder interface {
	RecordEvent(ctx context.Context, tenantID uuid.UUID, eventType string)
}

// MetricsHandler forwards every event to an EventRecorder
type MetricsHandler struct {
	recorder EventRecorder
}

// NewMetricsHandler creates a metrics handler. A nil recorder makes it a no-op.
func NewMetricsHandler(recorder EventRecorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// EventTypes returns nil so the handler receives every event
func (h *MetricsHandler) EventTypes() []string {
	return nil
}

// Handle records the event type for the event's tenant
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.recorder == nil {
		return nil
	}
	h.recorder.RecordEvent(ctx, event.TenantID(), event.EventType())
	return nil
}

var _ shared.EventHandler = (*MetricsHandler)(nil)
