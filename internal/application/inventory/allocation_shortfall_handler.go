package inventory

import (
	"context"
	"fmt"

	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AllocationShortfallHandler handles AllocationPlanned events and reports plans
// that could not cover the order quantity
type AllocationShortfallHandler struct {
	logger *zap.Logger
}

// NewAllocationShortfallHandler creates a new AllocationShortfallHandler
func NewAllocationShortfallHandler(zapLogger *zap.Logger) *AllocationShortfallHandler {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &AllocationShortfallHandler{logger: zapLogger}
}

// EventTypes returns the event types this handler is interested in
func (h *AllocationShortfallHandler) EventTypes() []string {
	return []string{inventory.EventTypeAllocationPlanned}
}

// Handle processes an AllocationPlanned event
func (h *AllocationShortfallHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	planned, ok := event.(*inventory.AllocationPlannedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected *AllocationPlannedEvent, got %T", event)
	}
	if planned.CanFulfill {
		return nil
	}

	logger.WithLogger(ctx, h.logger).Warn("confirmed order cannot be fully allocated",
		zap.String("tenant_id", planned.TenantID().String()),
		zap.String("order_id", planned.OrderID.String()),
		zap.String("policy", string(planned.Policy)),
		zap.String("required", planned.Required.String()),
		zap.String("remaining", planned.Remaining.String()),
	)
	return nil
}
