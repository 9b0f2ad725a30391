package allocation

import (
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared/strategy"
)

// FIFOPolicy draws from the oldest batches first
type FIFOPolicy struct {
	strategy.Meta
}

// NewFIFOPolicy creates a new FIFO allocation policy
func NewFIFOPolicy() *FIFOPolicy {
	return &FIFOPolicy{
		Meta: strategy.NewMeta(
			string(inventory.PolicyFIFO),
			strategy.KindAllocation,
			"First In First Out - consumes batches by production date (oldest first)",
		),
	}
}

// Policy returns the policy type
func (p *FIFOPolicy) Policy() inventory.PolicyType {
	return inventory.PolicyFIFO
}

// Allocate consumes batches oldest first, drawing only the remainder from the last one
func (p *FIFOPolicy) Allocate(required decimal.Decimal, eligible []inventory.HarvestBatch) []inventory.Draw {
	sorted := copyBatches(eligible)
	inventory.SortByAge(sorted, false)
	return drawInOrder(required, sorted)
}

// copyBatches returns a slice the policy may reorder freely
func copyBatches(batches []inventory.HarvestBatch) []inventory.HarvestBatch {
	out := make([]inventory.HarvestBatch, len(batches))
	copy(out, batches)
	return out
}

// drawInOrder takes whole batches in the given order until the requirement is met
func drawInOrder(required decimal.Decimal, batches []inventory.HarvestBatch) []inventory.Draw {
	remaining := required
	draws := make([]inventory.Draw, 0)

	for _, b := range batches {
		if !remaining.IsPositive() {
			break
		}
		if !b.Quantity.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, b.Quantity)
		draws = append(draws, inventory.Draw{Batch: b, Quantity: take})
		remaining = remaining.Sub(take)
	}
	return draws
}

var _ inventory.AllocationPolicy = (*FIFOPolicy)(nil)
