package allocation

import (
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared/strategy"
)

// LIFOPolicy draws from the newest batches first
type LIFOPolicy struct {
	strategy.Meta
}

// NewLIFOPolicy creates a new LIFO allocation policy
func NewLIFOPolicy() *LIFOPolicy {
	return &LIFOPolicy{
		Meta: strategy.NewMeta(
			string(inventory.PolicyLIFO),
			strategy.KindAllocation,
			"Last In First Out - consumes batches by production date (newest first)",
		),
	}
}

// Policy returns the policy type
func (p *LIFOPolicy) Policy() inventory.PolicyType {
	return inventory.PolicyLIFO
}

// Allocate consumes batches newest first, drawing only the remainder from the last one
func (p *LIFOPolicy) Allocate(required decimal.Decimal, eligible []inventory.HarvestBatch) []inventory.Draw {
	sorted := copyBatches(eligible)
	inventory.SortByAge(sorted, true)
	return drawInOrder(required, sorted)
}

var _ inventory.AllocationPolicy = (*LIFOPolicy)(nil)
