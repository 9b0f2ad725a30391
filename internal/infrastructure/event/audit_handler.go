package event

import (
	"context"

	"github.com/supplychain/procurement/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditHandler writes one structured log line per domain event
type AuditHandler struct {
	logger *zap.Logger
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(logger *zap.Logger) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditHandler{logger: logger.Named("audit")}
}

// EventTypes returns nil so the handler receives every event
func (h *AuditHandler) EventTypes() []string {
	return nil
}

// Handle logs the event envelope
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
