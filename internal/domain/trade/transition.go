package trade

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// TransitionKind names a negotiation transition
type TransitionKind string

const (
	TransitionPropose TransitionKind = "propose"
	TransitionApprove TransitionKind = "approve"
	TransitionAccept  TransitionKind = "accept"
	TransitionReject  TransitionKind = "reject"
	TransitionEdit    TransitionKind = "edit"
)

// AllTransitionKinds returns every transition kind in display order
func AllTransitionKinds() []TransitionKind {
	return []TransitionKind{
		TransitionPropose,
		TransitionApprove,
		TransitionAccept,
		TransitionReject,
		TransitionEdit,
	}
}

// String returns the string representation of TransitionKind
func (k TransitionKind) String() string {
	return string(k)
}

// Transition is one of ProposeAmendment, ApproveAmendment, AcceptOrder, RejectOrder or EditOrder.
// The set is closed: apply is unexported.
type Transition interface {
	Kind() TransitionKind
	apply(o *PurchaseOrder, now time.Time) (Outcome, error)
}

// Outcome describes what a successful transition did
type Outcome struct {
	Kind                TransitionKind
	Events              []shared.DomainEvent
	AllocationRequired  bool
	AllocationQuantity  decimal.Decimal
	AllocationUnit      string
	DiscrepancyRecorded bool
}

func (out *Outcome) requireAllocation(o *PurchaseOrder) {
	out.AllocationRequired = true
	out.AllocationQuantity = o.Quantity
	out.AllocationUnit = o.Unit
}

func (out *Outcome) record(o *PurchaseOrder, event shared.DomainEvent) {
	o.AddDomainEvent(event)
	out.Events = append(out.Events, event)
}

// ApplyTransition validates t against the viewer's permissions and applies it to a copy of order.
// On error the input order is untouched; on success the returned order carries the new state.
func ApplyTransition(order *PurchaseOrder, viewerCompanyID uuid.UUID, t Transition, now time.Time) (*PurchaseOrder, Outcome, error) {
	if order == nil {
		return nil, Outcome{}, shared.NewValidationError(shared.CodeMissingField, "Order is required")
	}
	if t == nil {
		return nil, Outcome{}, shared.NewValidationError(shared.CodeMissingField, "Transition is required")
	}
	if !ResolveActions(order, viewerCompanyID).Allows(t.Kind()) {
		return nil, Outcome{}, shared.NewPermissionError(
			"Action '" + t.Kind().String() + "' is not permitted for this company on order " + order.PONumber)
	}

	next := order.Clone()
	next.ClearDomainEvents()
	outcome, err := t.apply(next, now)
	if err != nil {
		return nil, Outcome{}, err
	}
	outcome.Kind = t.Kind()
	next.touch(now)
	return next, outcome, nil
}

// ProposeAmendment is a seller's request to change exactly one order field
type ProposeAmendment struct {
	Type             AmendmentType
	Quantity         *decimal.Decimal
	QuantityUnit     string
	DeliveryDate     *time.Time
	DeliveryLocation *string
	Reason           string
}

// Kind implements Transition
func (ProposeAmendment) Kind() TransitionKind { return TransitionPropose }

func (p ProposeAmendment) apply(o *PurchaseOrder, now time.Time) (Outcome, error) {
	if o.HasPendingAmendment() {
		return Outcome{}, shared.NewValidationError(shared.CodeAmendmentPending, "An amendment is already awaiting buyer review")
	}
	if !p.Type.IsValid() {
		return Outcome{}, shared.NewValidationErrorf(shared.CodeInvalidAmendmentType, "Unknown amendment type '%s'", p.Type)
	}
	if err := p.checkFieldsMatchType(); err != nil {
		return Outcome{}, err
	}

	var (
		c   *change
		err error
	)
	switch p.Type {
	case AmendmentTypeQuantity:
		c, err = o.diffQuantity(p.Quantity, p.QuantityUnit)
	case AmendmentTypeDeliveryDate:
		c, err = o.diffDeliveryDate(p.DeliveryDate)
	case AmendmentTypeDeliveryLocation:
		c, err = o.diffDeliveryLocation(p.DeliveryLocation)
	}
	if err != nil {
		return Outcome{}, err
	}
	if c == nil {
		return Outcome{}, shared.NewValidationError(shared.CodeNoChange, "Proposed value does not differ from the current order")
	}

	reason, err := validateReason(p.Reason)
	if err != nil {
		return Outcome{}, err
	}

	o.Amendment = c.toProposal(reason, AmendmentOriginSeller, o.Amendment)

	var out Outcome
	out.record(o, NewAmendmentProposedEvent(o, now))
	return out, nil
}

// checkFieldsMatchType requires the type's own field and refuses any other
func (p ProposeAmendment) checkFieldsMatchType() error {
	present := map[AmendmentType]bool{
		AmendmentTypeQuantity:         p.Quantity != nil,
		AmendmentTypeDeliveryDate:     p.DeliveryDate != nil,
		AmendmentTypeDeliveryLocation: p.DeliveryLocation != nil,
	}
	if !present[p.Type] {
		return shared.NewValidationErrorf(shared.CodeMissingField, "Proposed value is required for %s", p.Type)
	}
	for t, ok := range present {
		if ok && t != p.Type {
			return shared.NewValidationError(shared.CodeMultipleChanges, "An amendment may change only one field")
		}
	}
	if p.Type != AmendmentTypeQuantity && strings.TrimSpace(p.QuantityUnit) != "" {
		return shared.NewValidationError(shared.CodeMultipleChanges, "An amendment may change only one field")
	}
	return nil
}

// ApproveAmendment is the buyer's decision on a pending proposal
type ApproveAmendment struct {
	Approve    bool
	BuyerNotes string
}

// Kind implements Transition
func (ApproveAmendment) Kind() TransitionKind { return TransitionApprove }

func (a ApproveAmendment) apply(o *PurchaseOrder, now time.Time) (Outcome, error) {
	if !o.HasPendingAmendment() {
		return Outcome{}, shared.NewValidationError(shared.CodeInvalidState, "No amendment is awaiting review")
	}

	var out Outcome
	proposal := o.Amendment
	notes := strings.TrimSpace(a.BuyerNotes)

	if !a.Approve {
		reverted := OrderStatus("")
		if o.Status == OrderStatusAccepted {
			if err := o.transitionTo(OrderStatusPending); err != nil {
				return Outcome{}, err
			}
			reverted = OrderStatusPending
		}
		o.Amendment.Status = AmendmentStatusRejected
		o.Amendment.clearProposal()
		o.Amendment.BuyerNotes = notes
		out.record(o, NewAmendmentRejectedEvent(o, proposal.Type, reverted, now))
		return out, nil
	}

	if o.Status == OrderStatusAccepted {
		if err := o.transitionTo(OrderStatusConfirmed); err != nil {
			return Outcome{}, err
		}
		confirmed := now
		o.ConfirmedAt = &confirmed
	}
	o.promote(proposal)
	o.Amendment.Status = AmendmentStatusApproved
	o.Amendment.clearProposal()
	o.Amendment.Count++
	amended := now
	o.Amendment.LastAmendedAt = &amended
	o.Amendment.BuyerNotes = notes

	out.requireAllocation(o)
	out.record(o, NewAmendmentApprovedEvent(o, proposal.Type, now))
	if o.Status == OrderStatusConfirmed && proposal.Origin == AmendmentOriginAcceptance {
		out.record(o, NewOrderConfirmedEvent(o, now))
	}
	return out, nil
}

// AcceptOrder is the seller's confirmation. Confirmed values that differ from the order
// become a proposal for buyer review.
type AcceptOrder struct {
	ConfirmedQuantity         *decimal.Decimal
	ConfirmedQuantityUnit     string
	ConfirmedDeliveryDate     *time.Time
	ConfirmedDeliveryLocation *string
	DiscrepancyReason         string
	Notes                     string
}

// Kind implements Transition
func (AcceptOrder) Kind() TransitionKind { return TransitionAccept }

func (a AcceptOrder) apply(o *PurchaseOrder, now time.Time) (Outcome, error) {
	if o.HasPendingAmendment() {
		return Outcome{}, shared.NewValidationError(shared.CodeAmendmentPending, "Resolve the pending amendment before accepting")
	}

	diffs := make([]*change, 0, 3)
	qty, err := o.diffQuantity(a.ConfirmedQuantity, a.ConfirmedQuantityUnit)
	if err != nil {
		return Outcome{}, err
	}
	date, err := o.diffDeliveryDate(a.ConfirmedDeliveryDate)
	if err != nil {
		return Outcome{}, err
	}
	loc, err := o.diffDeliveryLocation(a.ConfirmedDeliveryLocation)
	if err != nil {
		return Outcome{}, err
	}
	for _, c := range []*change{qty, date, loc} {
		if c != nil {
			diffs = append(diffs, c)
		}
	}

	if notes := strings.TrimSpace(a.Notes); notes != "" {
		o.Notes = notes
	}

	var out Outcome
	switch len(diffs) {
	case 0:
		if err := o.transitionTo(OrderStatusConfirmed); err != nil {
			return Outcome{}, err
		}
		confirmed := now
		o.ConfirmedAt = &confirmed
		out.requireAllocation(o)
		out.record(o, NewOrderConfirmedEvent(o, now))
	case 1:
		reason, err := validateReason(a.DiscrepancyReason)
		if err != nil {
			return Outcome{}, err
		}
		if err := o.transitionTo(OrderStatusAccepted); err != nil {
			return Outcome{}, err
		}
		o.Amendment = diffs[0].toProposal(reason, AmendmentOriginAcceptance, o.Amendment)
		out.DiscrepancyRecorded = true
		out.record(o, NewOrderAcceptedWithDiscrepancyEvent(o, now))
	default:
		return Outcome{}, shared.NewValidationError(shared.CodeMultipleChanges,
			"Only one confirmed value may differ from the order; propose the others separately")
	}
	return out, nil
}

// RejectOrder is the seller declining the order
type RejectOrder struct {
	Reason string
}

// Kind implements Transition
func (RejectOrder) Kind() TransitionKind { return TransitionReject }

func (r RejectOrder) apply(o *PurchaseOrder, now time.Time) (Outcome, error) {
	reason := strings.TrimSpace(r.Reason)
	if reason == "" {
		return Outcome{}, shared.NewValidationError(shared.CodeMissingField, "Rejection reason is required")
	}
	if err := o.transitionTo(OrderStatusDeclined); err != nil {
		return Outcome{}, err
	}
	o.DeclineReason = reason
	declined := now
	o.DeclinedAt = &declined
	o.Amendment.clearProposal()

	var out Outcome
	out.record(o, NewOrderDeclinedEvent(o, now))
	return out, nil
}

// EditOrder is a direct field edit by either party. Nil fields are left unchanged.
type EditOrder struct {
	Quantity         *decimal.Decimal
	Unit             *string
	UnitPrice        *decimal.Decimal
	DeliveryDate     *time.Time
	DeliveryLocation *string
	Notes            *string
}

// Kind implements Transition
func (EditOrder) Kind() TransitionKind { return TransitionEdit }

func (e EditOrder) apply(o *PurchaseOrder, now time.Time) (Outcome, error) {
	var changed []string

	if e.Quantity != nil {
		if !e.Quantity.IsPositive() {
			return Outcome{}, shared.NewValidationError(shared.CodeInvalidQuantity, "Quantity must be greater than zero")
		}
		if !e.Quantity.Equal(o.Quantity) {
			o.Quantity = *e.Quantity
			changed = append(changed, "quantity")
		}
	}
	if e.Unit != nil {
		u := strings.TrimSpace(*e.Unit)
		if u == "" {
			return Outcome{}, shared.NewValidationError(shared.CodeMissingField, "Unit cannot be empty")
		}
		if !SameUnit(u, o.Unit) {
			o.Unit = u
			changed = append(changed, "unit")
		}
	}
	if e.UnitPrice != nil {
		if err := validateUnitPrice(*e.UnitPrice); err != nil {
			return Outcome{}, err
		}
		if !e.UnitPrice.Equal(o.UnitPrice) {
			o.UnitPrice = *e.UnitPrice
			changed = append(changed, "unit_price")
		}
	}
	if e.DeliveryDate != nil {
		if e.DeliveryDate.IsZero() {
			return Outcome{}, shared.NewValidationError(shared.CodeMissingField, "Delivery date cannot be empty")
		}
		if !sameDay(*e.DeliveryDate, o.DeliveryDate) {
			o.DeliveryDate = *e.DeliveryDate
			changed = append(changed, "delivery_date")
		}
	}
	if e.DeliveryLocation != nil {
		loc := strings.TrimSpace(*e.DeliveryLocation)
		if loc == "" {
			return Outcome{}, shared.NewValidationError(shared.CodeMissingField, "Delivery location cannot be empty")
		}
		if loc != o.DeliveryLocation {
			o.DeliveryLocation = loc
			changed = append(changed, "delivery_location")
		}
	}
	if e.Notes != nil && *e.Notes != o.Notes {
		o.Notes = *e.Notes
		changed = append(changed, "notes")
	}

	if len(changed) == 0 {
		return Outcome{}, shared.NewValidationError(shared.CodeNoChange, "Edit does not change any field")
	}
	if o.HasPendingAmendment() && touchesProposal(o.Amendment.Type, changed) {
		return Outcome{}, shared.NewValidationError(shared.CodeAmendmentPending,
			"Field has a pending amendment; wait for the buyer decision")
	}

	o.RecalculateTotal()

	var out Outcome
	out.record(o, NewOrderEditedEvent(o, changed, now))
	return out, nil
}

// touchesProposal reports whether an edit changes the field a pending amendment covers
func touchesProposal(t AmendmentType, changed []string) bool {
	for _, f := range changed {
		switch {
		case t == AmendmentTypeQuantity && (f == "quantity" || f == "unit"):
			return true
		case t == AmendmentTypeDeliveryDate && f == "delivery_date":
			return true
		case t == AmendmentTypeDeliveryLocation && f == "delivery_location":
			return true
		}
	}
	return false
}

var (
	_ Transition = ProposeAmendment{}
	_ Transition = ApproveAmendment{}
	_ Transition = AcceptOrder{}
	_ Transition = RejectOrder{}
	_ Transition = EditOrder{}
)
