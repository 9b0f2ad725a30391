package inventory

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// Pick is one interactive selection: a batch and the quantity to take from it.
// A zero quantity means as much as the batch and the remainder allow.
type Pick struct {
	Batch    HarvestBatch
	Quantity decimal.Decimal
}

// AllocationSession is a manual allocation built one pick at a time.
// Sessions are values: Add and Remove return a new session and leave the receiver untouched.
type AllocationSession struct {
	required decimal.Decimal
	unit     string
	records  []AllocationRecord
	batches  map[uuid.UUID]HarvestBatch
}

// NewAllocationSession starts an empty session for the required quantity
func NewAllocationSession(required decimal.Decimal, unit string) (*AllocationSession, error) {
	req := AllocationRequest{RequiredQuantity: required, RequiredUnit: unit}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &AllocationSession{
		required: required,
		unit:     strings.TrimSpace(unit),
		batches:  make(map[uuid.UUID]HarvestBatch),
	}, nil
}

// FoldPicks replays picks in order into a new session
func FoldPicks(required decimal.Decimal, unit string, picks []Pick) (*AllocationSession, error) {
	s, err := NewAllocationSession(required, unit)
	if err != nil {
		return nil, err
	}
	for i, p := range picks {
		s, err = s.Add(p.Batch, p.Quantity)
		if err != nil {
			return nil, fmt.Errorf("pick %d (%s): %w", i+1, p.Batch.BatchCode, err)
		}
	}
	return s, nil
}

// Add returns a session with the pick appended
func (s *AllocationSession) Add(b HarvestBatch, qty decimal.Decimal) (*AllocationSession, error) {
	remaining := s.Remaining()
	switch {
	case remaining.IsZero():
		return nil, shared.NewValidationError(shared.CodeAllocationComplete, "The required quantity is already fully allocated")
	case b.Consumed:
		return nil, shared.NewValidationErrorf(shared.CodeBatchUnavailable, "Batch %s has already been consumed", b.BatchCode)
	case !b.Quantity.IsPositive():
		return nil, shared.NewValidationErrorf(shared.CodeBatchUnavailable, "Batch %s has no quantity", b.BatchCode)
	case !SameUnit(b.Unit, s.unit):
		return nil, shared.NewValidationErrorf(shared.CodeUnitMismatch,
			"Batch %s is measured in %s, allocation requires %s", b.BatchCode, b.Unit, s.unit)
	case qty.IsNegative():
		return nil, shared.NewValidationError(shared.CodeInvalidQuantity, "Pick quantity cannot be negative")
	case qty.GreaterThan(b.Quantity):
		return nil, shared.NewValidationErrorf(shared.CodeInvalidQuantity,
			"Pick of %s exceeds batch %s quantity %s", qty, b.BatchCode, b.Quantity)
	}
	if _, dup := s.batches[b.ID]; dup {
		return nil, shared.NewValidationErrorf(shared.CodeDuplicatePick, "Batch %s is already part of this allocation", b.BatchCode)
	}

	take := qty
	if take.IsZero() {
		take = b.Quantity
	}
	take = decimal.Min(take, remaining)

	next := s.copy()
	next.batches[b.ID] = b.Clone()
	next.records = append(next.records, NewAllocationRecord(b, take, s.required))
	return next, nil
}

// Remove returns a session without the pick for batchID
func (s *AllocationSession) Remove(batchID uuid.UUID) (*AllocationSession, error) {
	if _, ok := s.batches[batchID]; !ok {
		return nil, fmt.Errorf("%w: batch %s is not part of this allocation", shared.ErrNotFound, batchID)
	}
	next := s.copy()
	delete(next.batches, batchID)
	kept := next.records[:0]
	for _, r := range next.records {
		if r.BatchID != batchID {
			kept = append(kept, r)
		}
	}
	next.records = kept
	return next, nil
}

// Required returns the quantity the session must cover
func (s *AllocationSession) Required() decimal.Decimal {
	return s.required
}

// Unit returns the required unit
func (s *AllocationSession) Unit() string {
	return s.unit
}

// Records returns a copy of the picks in the order they were added
func (s *AllocationSession) Records() []AllocationRecord {
	return append([]AllocationRecord(nil), s.records...)
}

// TotalAllocated sums the picked quantities
func (s *AllocationSession) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.records {
		total = total.Add(r.QuantityAllocated)
	}
	return total
}

// Remaining is the quantity still to be covered, never negative
func (s *AllocationSession) Remaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, s.required.Sub(s.TotalAllocated()))
}

// CanFulfill reports whether the picks cover the required quantity
func (s *AllocationSession) CanFulfill() bool {
	return s.Remaining().IsZero()
}

// Available returns the pool without the batches already picked
func (s *AllocationSession) Available(pool []HarvestBatch) []HarvestBatch {
	out := make([]HarvestBatch, 0, len(pool))
	for _, b := range pool {
		if _, picked := s.batches[b.ID]; picked {
			continue
		}
		out = append(out, b.Clone())
	}
	return out
}

// Plan renders the session as a plan so it can be previewed like any planner output
func (s *AllocationSession) Plan() AllocationPlan {
	return AllocationPlan{
		Policy:           PolicyManual,
		RequiredQuantity: s.required,
		RequiredUnit:     s.unit,
		Records:          s.Records(),
		TotalAllocated:   s.TotalAllocated(),
		Remaining:        s.Remaining(),
		CanFulfill:       s.CanFulfill(),
	}
}

func (s *AllocationSession) copy() *AllocationSession {
	next := &AllocationSession{
		required: s.required,
		unit:     s.unit,
		records:  append([]AllocationRecord(nil), s.records...),
		batches:  make(map[uuid.UUID]HarvestBatch, len(s.batches)+1),
	}
	for id, b := range s.batches {
		next.batches[id] = b
	}
	return next
}
