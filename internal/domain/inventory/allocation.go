package inventory

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/domain/shared/strategy"
)

// PolicyType names a batch selection policy
type PolicyType string

const (
	PolicyFIFO               PolicyType = "FIFO"
	PolicyLIFO               PolicyType = "LIFO"
	PolicyEntireBatchesFirst PolicyType = "ENTIRE_BATCHES_FIRST"
	PolicyProportional       PolicyType = "PROPORTIONAL"
	// PolicyManual marks plans built from interactive picks; it is never selectable
	PolicyManual PolicyType = "MANUAL"
)

// IsValid checks if the policy can be requested from the planner
func (p PolicyType) IsValid() bool {
	switch p {
	case PolicyFIFO, PolicyLIFO, PolicyEntireBatchesFirst, PolicyProportional:
		return true
	}
	return false
}

// String returns the string representation of PolicyType
func (p PolicyType) String() string {
	return string(p)
}

// AllPolicyTypes returns every selectable policy
func AllPolicyTypes() []PolicyType {
	return []PolicyType{PolicyFIFO, PolicyLIFO, PolicyEntireBatchesFirst, PolicyProportional}
}

// ParsePolicyType normalizes user input such as "entire-batches-first" to a PolicyType.
// An empty string is returned unchanged so callers can fall back to a default.
func ParsePolicyType(s string) PolicyType {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return PolicyType(s)
}

// Exclusion reasons reported for ineligible batches
const (
	ExclusionUnitMismatch        = "unit_mismatch"
	ExclusionNonPositiveQuantity = "non_positive_quantity"
	ExclusionConsumed            = "consumed"
)

// Draw is one batch and the quantity a policy takes from it
type Draw struct {
	Batch    HarvestBatch
	Quantity decimal.Decimal
}

// AllocationPolicy selects quantities from eligible batches.
// Implementations must be deterministic, must not modify eligible,
// and must never draw more than required in total or more than a batch holds.
type AllocationPolicy interface {
	strategy.Strategy
	// Policy returns the policy type this implementation serves
	Policy() PolicyType
	// Allocate returns the draws in record order
	Allocate(required decimal.Decimal, eligible []HarvestBatch) []Draw
}

// PolicyResolver looks up a policy by name; an empty name resolves the default
type PolicyResolver interface {
	GetAllocationPolicy(name string) (AllocationPolicy, error)
}

// AllocationRequest is a planner input
type AllocationRequest struct {
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	RequiredUnit     string          `json:"required_unit"`
	Policy           PolicyType      `json:"policy"`
}

// Validate checks the request fields
func (r AllocationRequest) Validate() error {
	if !r.RequiredQuantity.IsPositive() {
		return shared.NewValidationError(shared.CodeInvalidQuantity, "Required quantity must be greater than zero")
	}
	if normalizeUnit(r.RequiredUnit) == "" {
		return shared.NewValidationError(shared.CodeMissingField, "Required unit cannot be empty")
	}
	return nil
}

// AllocationRecord is one batch's contribution to a plan
type AllocationRecord struct {
	BatchID                uuid.UUID       `json:"batch_id"`
	BatchCode              string          `json:"batch_code"`
	BatchQuantity          decimal.Decimal `json:"batch_quantity"`
	QuantityAllocated      decimal.Decimal `json:"quantity_allocated"`
	Unit                   string          `json:"unit"`
	ContributionPercentage decimal.Decimal `json:"contribution_percentage"`
	Partial                bool            `json:"partial"`
}

// ExcludedBatch is a pool batch the planner refused, with the reason
type ExcludedBatch struct {
	BatchID   uuid.UUID `json:"batch_id"`
	BatchCode string    `json:"batch_code"`
	Reason    string    `json:"reason"`
}

// AllocationPlan is the planner output. A shortfall is reported through CanFulfill and Remaining, never as an error.
type AllocationPlan struct {
	Policy           PolicyType         `json:"policy"`
	RequiredQuantity decimal.Decimal    `json:"required_quantity"`
	RequiredUnit     string             `json:"required_unit"`
	Records          []AllocationRecord `json:"records"`
	TotalAllocated   decimal.Decimal    `json:"total_allocated"`
	Remaining        decimal.Decimal    `json:"remaining"`
	CanFulfill       bool               `json:"can_fulfill"`
	Excluded         []ExcludedBatch    `json:"excluded,omitempty"`
}

// PartialCount returns the number of records that draw only part of their batch
func (p AllocationPlan) PartialCount() int {
	n := 0
	for _, r := range p.Records {
		if r.Partial {
			n++
		}
	}
	return n
}

// BatchIDs returns the ids of every allocated batch in record order
func (p AllocationPlan) BatchIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Records))
	for _, r := range p.Records {
		ids = append(ids, r.BatchID)
	}
	return ids
}

// ContributionPercentage is allocated / required × 100, rounded to two places
func ContributionPercentage(allocated, required decimal.Decimal) decimal.Decimal {
	if !required.IsPositive() {
		return decimal.Zero
	}
	return allocated.Div(required).Mul(decimal.NewFromInt(100)).Round(2)
}

// NewAllocationRecord builds a record for a draw against the required quantity
func NewAllocationRecord(b HarvestBatch, qty, required decimal.Decimal) AllocationRecord {
	return AllocationRecord{
		BatchID:                b.ID,
		BatchCode:              b.BatchCode,
		BatchQuantity:          b.Quantity,
		QuantityAllocated:      qty,
		Unit:                   b.Unit,
		ContributionPercentage: ContributionPercentage(qty, required),
		Partial:                qty.LessThan(b.Quantity),
	}
}

// Planner selects batches for a required quantity under a named policy. It is pure and never mutates the pool.
type Planner struct {
	policies PolicyResolver
}

// NewPlanner creates a planner resolving policies through the given resolver
func NewPlanner(policies PolicyResolver) *Planner {
	return &Planner{policies: policies}
}

// Plan resolves req.Policy and plans the pool under it
func (p *Planner) Plan(req AllocationRequest, pool []HarvestBatch) (AllocationPlan, error) {
	if err := req.Validate(); err != nil {
		return AllocationPlan{}, err
	}
	policy, err := p.resolve(req.Policy)
	if err != nil {
		return AllocationPlan{}, err
	}
	return PlanWith(policy, req, pool)
}

func (p *Planner) resolve(name PolicyType) (AllocationPolicy, error) {
	if name != "" && !name.IsValid() {
		return nil, shared.NewValidationErrorf(shared.CodeInvalidPolicy, "Unknown allocation policy '%s'", name)
	}
	if p.policies == nil {
		return nil, shared.NewValidationError(shared.CodeInvalidPolicy, "No allocation policies are registered")
	}
	policy, err := p.policies.GetAllocationPolicy(string(name))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationErrorf(shared.CodeInvalidPolicy, "Allocation policy '%s' is not available", name)
		}
		return nil, err
	}
	return policy, nil
}

// PlanWith plans the pool under an explicit policy
func PlanWith(policy AllocationPolicy, req AllocationRequest, pool []HarvestBatch) (AllocationPlan, error) {
	if err := req.Validate(); err != nil {
		return AllocationPlan{}, err
	}
	if policy == nil {
		return AllocationPlan{}, shared.NewValidationError(shared.CodeInvalidPolicy, "Allocation policy is required")
	}

	eligible, excluded := Eligible(pool, req.RequiredUnit)
	draws := policy.Allocate(req.RequiredQuantity, eligible)

	plan := AllocationPlan{
		Policy:           policy.Policy(),
		RequiredQuantity: req.RequiredQuantity,
		RequiredUnit:     strings.TrimSpace(req.RequiredUnit),
		Records:          make([]AllocationRecord, 0, len(draws)),
		TotalAllocated:   decimal.Zero,
		Excluded:         excluded,
	}
	for _, d := range draws {
		if !d.Quantity.IsPositive() {
			continue
		}
		qty := decimal.Min(d.Quantity, d.Batch.Quantity)
		if room := req.RequiredQuantity.Sub(plan.TotalAllocated); qty.GreaterThan(room) {
			qty = room
		}
		if !qty.IsPositive() {
			break
		}
		plan.Records = append(plan.Records, NewAllocationRecord(d.Batch, qty, req.RequiredQuantity))
		plan.TotalAllocated = plan.TotalAllocated.Add(qty)
	}
	plan.Remaining = decimal.Max(decimal.Zero, req.RequiredQuantity.Sub(plan.TotalAllocated))
	plan.CanFulfill = plan.Remaining.IsZero()
	return plan, nil
}

// Eligible splits the pool into batches the planner may draw from and those it must skip.
// Returned batches are copies.
func Eligible(pool []HarvestBatch, unit string) ([]HarvestBatch, []ExcludedBatch) {
	eligible := make([]HarvestBatch, 0, len(pool))
	var excluded []ExcludedBatch
	for _, b := range pool {
		reason := ""
		switch {
		case b.Consumed:
			reason = ExclusionConsumed
		case !b.Quantity.IsPositive():
			reason = ExclusionNonPositiveQuantity
		case !SameUnit(b.Unit, unit):
			reason = ExclusionUnitMismatch
		}
		if reason != "" {
			excluded = append(excluded, ExcludedBatch{BatchID: b.ID, BatchCode: b.BatchCode, Reason: reason})
			continue
		}
		eligible = append(eligible, b.Clone())
	}
	return eligible, excluded
}

// RemoveAllocated returns the pool without the batches the plan draws from.
// The input pool is left as it was.
func RemoveAllocated(pool []HarvestBatch, plan AllocationPlan) []HarvestBatch {
	used := make(map[uuid.UUID]struct{}, len(plan.Records))
	for _, r := range plan.Records {
		used[r.BatchID] = struct{}{}
	}
	out := make([]HarvestBatch, 0, len(pool))
	for _, b := range pool {
		if _, ok := used[b.ID]; ok {
			continue
		}
		out = append(out, b.Clone())
	}
	return out
}

// lessByIdentity breaks ties on batch code, then id
func lessByIdentity(a, b HarvestBatch) bool {
	if a.BatchCode != b.BatchCode {
		return a.BatchCode < b.BatchCode
	}
	return a.ID.String() < b.ID.String()
}

// LessByAge orders by effective date, oldest first unless newestFirst is set.
// Equal dates are ordered by batch code, then id, in both directions.
func LessByAge(a, b HarvestBatch, newestFirst bool) bool {
	da, db := a.EffectiveDate(), b.EffectiveDate()
	if !da.Equal(db) {
		if newestFirst {
			return da.After(db)
		}
		return da.Before(db)
	}
	return lessByIdentity(a, b)
}

// LessBySize orders by quantity, largest first unless smallestFirst is set.
// Equal quantities are ordered oldest first, then by batch code and id.
func LessBySize(a, b HarvestBatch, smallestFirst bool) bool {
	if !a.Quantity.Equal(b.Quantity) {
		if smallestFirst {
			return a.Quantity.LessThan(b.Quantity)
		}
		return a.Quantity.GreaterThan(b.Quantity)
	}
	return LessByAge(a, b, false)
}

// SortByAge sorts batches in place with LessByAge
func SortByAge(batches []HarvestBatch, newestFirst bool) {
	sort.SliceStable(batches, func(i, j int) bool {
		return LessByAge(batches[i], batches[j], newestFirst)
	})
}

// SortBySize sorts batches in place with LessBySize
func SortBySize(batches []HarvestBatch, smallestFirst bool) {
	sort.SliceStable(batches, func(i, j int) bool {
		return LessBySize(batches[i], batches[j], smallestFirst)
	})
}
