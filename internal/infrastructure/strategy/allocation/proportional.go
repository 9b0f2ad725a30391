package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared/strategy"
)

// DefaultProportionalScale is the number of decimal places kept in proportional shares
const DefaultProportionalScale int32 = 3

// ProportionalPolicy draws from every batch in proportion to its share of the pool
type ProportionalPolicy struct {
	strategy.Meta
	scale int32
}

// NewProportionalPolicy creates a proportional policy truncating shares to scale decimal places
func NewProportionalPolicy(scale int32) *ProportionalPolicy {
	if scale < 0 {
		scale = DefaultProportionalScale
	}
	return &ProportionalPolicy{
		Meta:  strategy.NewMeta(
			string(inventory.PolicyProportional),
			strategy.KindAllocation,
			"Proportional - draws from every batch by its share of the pool",
		),
		scale: scale,
	}
}

// Policy returns the policy type
func (p *ProportionalPolicy) Policy() inventory.PolicyType {
	return inventory.PolicyProportional
}

// Scale returns the number of decimal places kept in each share
func (p *ProportionalPolicy) Scale() int32 {
	return p.scale
}

// Allocate splits required across the pool by quantity_i / Σquantity.
// Shares are truncated and the rounding remainder goes to the largest batches, so the total equals required exactly.
// If the pool cannot cover required, every batch is taken whole.
func (p *ProportionalPolicy) Allocate(required decimal.Decimal, eligible []inventory.HarvestBatch) []inventory.Draw {
	ordered := copyBatches(eligible)
	inventory.SortByAge(ordered, false)

	pool := decimal.Zero
	for _, b := range ordered {
		pool = pool.Add(b.Quantity)
	}
	if !pool.IsPositive() {
		return nil
	}
	if required.GreaterThanOrEqual(pool) {
		return drawInOrder(pool, ordered)
	}

	shares := make(map[int]decimal.Decimal, len(ordered))
	assigned := decimal.Zero
	for i, b := range ordered {
		share := b.Quantity.Mul(required).Div(pool).Truncate(p.scale)
		shares[i] = share
		assigned = assigned.Add(share)
	}

	leftover := required.Sub(assigned)
	if leftover.IsPositive() {
		bySize := make([]int, len(ordered))
		for i := range bySize {
			bySize[i] = i
		}
		sortIndexesBySize(bySize, ordered)
		for _, i := range bySize {
			if !leftover.IsPositive() {
				break
			}
			room := ordered[i].Quantity.Sub(shares[i])
			add := decimal.Min(room, leftover)
			if add.IsPositive() {
				shares[i] = shares[i].Add(add)
				leftover = leftover.Sub(add)
			}
		}
	}

	draws := make([]inventory.Draw, 0, len(ordered))
	for i, b := range ordered {
		if shares[i].IsPositive() {
			draws = append(draws, inventory.Draw{Batch: b, Quantity: shares[i]})
		}
	}
	return draws
}

// sortIndexesBySize orders indexes into batches largest batch first
func sortIndexesBySize(idx []int, batches []inventory.HarvestBatch) {
	sort.SliceStable(idx, func(a, b int) bool {
		return inventory.LessBySize(batches[idx[a]], batches[idx[b]], false)
	})
}

var _ inventory.AllocationPolicy = (*ProportionalPolicy)(nil)
