package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeHarvestBatch = "HarvestBatch"
	AggregateTypeAllocation   = "Allocation"
)

// Event type constants
const (
	EventTypeHarvestDeclared   = "HarvestDeclared"
	EventTypeAllocationPlanned = "AllocationPlanned"
)

// HarvestDeclaredEvent is raised when a new batch enters the pool
type HarvestDeclaredEvent struct {
	shared.BaseDomainEvent
	BatchID   uuid.UUID       `json:"batch_id"`
	BatchCode string          `json:"batch_code"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
}

// NewHarvestDeclaredEvent creates a new HarvestDeclaredEvent
func NewHarvestDeclaredEvent(b *HarvestBatch, at time.Time) *HarvestDeclaredEvent {
	return &HarvestDeclaredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeHarvestDeclared, AggregateTypeHarvestBatch, b.ID, b.TenantID, at),
		BatchID:         b.ID,
		BatchCode:       b.BatchCode,
		ProductID:       b.ProductID,
		Quantity:        b.Quantity,
		Unit:            b.Unit,
	}
}

// AllocationPlannedEvent is raised when batches are planned for an order
type AllocationPlannedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	Policy         PolicyType      `json:"policy"`
	Required       decimal.Decimal `json:"required"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	Remaining      decimal.Decimal `json:"remaining"`
	CanFulfill     bool            `json:"can_fulfill"`
	BatchIDs       []uuid.UUID     `json:"batch_ids"`
}

// NewAllocationPlannedEvent creates a new AllocationPlannedEvent keyed by the order
func NewAllocationPlannedEvent(tenantID, orderID uuid.UUID, plan AllocationPlan, at time.Time) *AllocationPlannedEvent {
	return &AllocationPlannedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationPlanned, AggregateTypeAllocation, orderID, tenantID, at),
		OrderID:         orderID,
		Policy:          plan.Policy,
		Required:        plan.RequiredQuantity,
		TotalAllocated:  plan.TotalAllocated,
		Remaining:       plan.Remaining,
		CanFulfill:      plan.CanFulfill,
		BatchIDs:        plan.BatchIDs(),
	}
}
