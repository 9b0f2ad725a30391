package allocation

import (
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared/strategy"
)

// EntireBatchesFirstPolicy takes whole batches that fit before splitting any batch
type EntireBatchesFirstPolicy struct {
	strategy.Meta
}

// NewEntireBatchesFirstPolicy creates a new entire-batches-first allocation policy
func NewEntireBatchesFirstPolicy() *EntireBatchesFirstPolicy {
	return &EntireBatchesFirstPolicy{
		Meta: strategy.NewMeta(
			string(inventory.PolicyEntireBatchesFirst),
			strategy.KindAllocation,
			"Entire batches first - uses whole batches that fit, then splits the smallest batch covering the rest",
		),
	}
}

// Policy returns the policy type
func (p *EntireBatchesFirstPolicy) Policy() inventory.PolicyType {
	return inventory.PolicyEntireBatchesFirst
}

// Allocate walks batches largest first taking every batch that fits whole,
// then draws the remainder from the smallest unused batch.
// At most one record is partial.
func (p *EntireBatchesFirstPolicy) Allocate(required decimal.Decimal, eligible []inventory.HarvestBatch) []inventory.Draw {
	sorted := copyBatches(eligible)
	inventory.SortBySize(sorted, false)

	remaining := required
	draws := make([]inventory.Draw, 0)
	unused := make([]inventory.HarvestBatch, 0, len(sorted))

	for _, b := range sorted {
		if remaining.IsPositive() && b.Quantity.LessThanOrEqual(remaining) {
			draws = append(draws, inventory.Draw{Batch: b, Quantity: b.Quantity})
			remaining = remaining.Sub(b.Quantity)
			continue
		}
		unused = append(unused, b)
	}

	if !remaining.IsPositive() || len(unused) == 0 {
		return draws
	}

	// every unused batch is larger than what is left, so the smallest one covers it
	inventory.SortBySize(unused, true)
	return append(draws, inventory.Draw{Batch: unused[0], Quantity: remaining})
}

var _ inventory.AllocationPolicy = (*EntireBatchesFirstPolicy)(nil)
