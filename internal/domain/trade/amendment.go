package trade

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// MinAmendmentReasonLength is the minimum number of characters in an amendment reason
const MinAmendmentReasonLength = 10

// AmendmentStatus is the negotiation state of the order's single active amendment
type AmendmentStatus string

const (
	AmendmentStatusNone     AmendmentStatus = "none"
	AmendmentStatusProposed AmendmentStatus = "proposed"
	AmendmentStatusApproved AmendmentStatus = "approved"
	AmendmentStatusRejected AmendmentStatus = "rejected"
)

// IsValid checks if the amendment status is known
func (s AmendmentStatus) IsValid() bool {
	switch s {
	case AmendmentStatusNone, AmendmentStatusProposed, AmendmentStatusApproved, AmendmentStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of AmendmentStatus
func (s AmendmentStatus) String() string {
	return string(s)
}

// AmendmentType names the single order field an amendment changes
type AmendmentType string

const (
	AmendmentTypeQuantity         AmendmentType = "quantity_change"
	AmendmentTypeDeliveryDate     AmendmentType = "delivery_date_change"
	AmendmentTypeDeliveryLocation AmendmentType = "delivery_location_change"
)

// IsValid checks if the amendment type is known
func (t AmendmentType) IsValid() bool {
	switch t {
	case AmendmentTypeQuantity, AmendmentTypeDeliveryDate, AmendmentTypeDeliveryLocation:
		return true
	}
	return false
}

// String returns the string representation of AmendmentType
func (t AmendmentType) String() string {
	return string(t)
}

// AmendmentOrigin records which flow produced a proposal
type AmendmentOrigin string

const (
	// AmendmentOriginSeller is an explicit seller proposal
	AmendmentOriginSeller AmendmentOrigin = "seller"
	// AmendmentOriginAcceptance is a discrepancy raised while the seller accepted the order
	AmendmentOriginAcceptance AmendmentOrigin = "acceptance"
)

// Amendment is the order's amendment sub-record.
// Count and LastAmendedAt survive across cycles; the proposal fields are cleared once decided.
type Amendment struct {
	Status                   AmendmentStatus
	Type                     AmendmentType
	ProposedQuantity         *decimal.Decimal
	ProposedQuantityUnit     string
	ProposedDeliveryDate     *time.Time
	ProposedDeliveryLocation *string
	Reason                   string
	Origin                   AmendmentOrigin
	Count                    int
	LastAmendedAt            *time.Time
	BuyerNotes               string
}

// IsProposed returns true while the amendment awaits a buyer decision
func (a Amendment) IsProposed() bool {
	return a.Status == AmendmentStatusProposed
}

// clearProposal discards the proposal fields and returns the status to none
func (a *Amendment) clearProposal() {
	a.Status = AmendmentStatusNone
	a.Type = ""
	a.ProposedQuantity = nil
	a.ProposedQuantityUnit = ""
	a.ProposedDeliveryDate = nil
	a.ProposedDeliveryLocation = nil
	a.Reason = ""
	a.Origin = ""
}

func (a Amendment) clone() Amendment {
	c := a
	if a.ProposedQuantity != nil {
		q := *a.ProposedQuantity
		c.ProposedQuantity = &q
	}
	c.ProposedDeliveryDate = cloneTime(a.ProposedDeliveryDate)
	if a.ProposedDeliveryLocation != nil {
		loc := *a.ProposedDeliveryLocation
		c.ProposedDeliveryLocation = &loc
	}
	c.LastAmendedAt = cloneTime(a.LastAmendedAt)
	return c
}

// change is one candidate field change measured against the order's confirmed values
type change struct {
	kind     AmendmentType
	quantity decimal.Decimal
	unit     string
	date     time.Time
	location string
}

// toProposal builds the proposed amendment sub-record for a single change
func (c change) toProposal(reason string, origin AmendmentOrigin, prior Amendment) Amendment {
	a := prior.clone()
	a.clearProposal()
	a.Status = AmendmentStatusProposed
	a.Type = c.kind
	a.Reason = reason
	a.Origin = origin
	switch c.kind {
	case AmendmentTypeQuantity:
		q := c.quantity
		a.ProposedQuantity = &q
		a.ProposedQuantityUnit = c.unit
	case AmendmentTypeDeliveryDate:
		d := c.date
		a.ProposedDeliveryDate = &d
	case AmendmentTypeDeliveryLocation:
		loc := c.location
		a.ProposedDeliveryLocation = &loc
	}
	return a
}

// diffQuantity returns a change if quantity/unit differ from the order, validating the value first
func (o *PurchaseOrder) diffQuantity(q *decimal.Decimal, unit string) (*change, error) {
	if q == nil {
		return nil, nil
	}
	if !q.IsPositive() {
		return nil, shared.NewValidationError(shared.CodeInvalidQuantity, "Quantity must be greater than zero")
	}
	u := strings.TrimSpace(unit)
	if u == "" {
		u = o.Unit
	}
	if q.Equal(o.Quantity) && SameUnit(u, o.Unit) {
		return nil, nil
	}
	return &change{kind: AmendmentTypeQuantity, quantity: *q, unit: u}, nil
}

// diffDeliveryDate returns a change if the date differs from the order at day granularity
func (o *PurchaseOrder) diffDeliveryDate(d *time.Time) (*change, error) {
	if d == nil {
		return nil, nil
	}
	if d.IsZero() {
		return nil, shared.NewValidationError(shared.CodeMissingField, "Delivery date cannot be empty")
	}
	if sameDay(*d, o.DeliveryDate) {
		return nil, nil
	}
	return &change{kind: AmendmentTypeDeliveryDate, date: *d}, nil
}

// diffDeliveryLocation returns a change if the location differs from the order
func (o *PurchaseOrder) diffDeliveryLocation(loc *string) (*change, error) {
	if loc == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*loc)
	if v == "" {
		return nil, shared.NewValidationError(shared.CodeMissingField, "Delivery location cannot be empty")
	}
	if v == strings.TrimSpace(o.DeliveryLocation) {
		return nil, nil
	}
	return &change{kind: AmendmentTypeDeliveryLocation, location: v}, nil
}

// promote copies the proposed value into the confirmed fields
func (o *PurchaseOrder) promote(a Amendment) {
	switch a.Type {
	case AmendmentTypeQuantity:
		if a.ProposedQuantity != nil {
			o.Quantity = *a.ProposedQuantity
		}
		if a.ProposedQuantityUnit != "" {
			o.Unit = a.ProposedQuantityUnit
		}
		o.RecalculateTotal()
	case AmendmentTypeDeliveryDate:
		if a.ProposedDeliveryDate != nil {
			o.DeliveryDate = *a.ProposedDeliveryDate
		}
	case AmendmentTypeDeliveryLocation:
		if a.ProposedDeliveryLocation != nil {
			o.DeliveryLocation = *a.ProposedDeliveryLocation
		}
	}
}

// validateReason enforces the minimum reason length on trimmed text
func validateReason(reason string) (string, error) {
	r := strings.TrimSpace(reason)
	if r == "" {
		return "", shared.NewValidationError(shared.CodeMissingField, "Amendment reason is required")
	}
	if utf8.RuneCountInString(r) < MinAmendmentReasonLength {
		return "", shared.NewValidationErrorf(shared.CodeReasonTooShort,
			"Amendment reason must be at least %d characters", MinAmendmentReasonLength)
	}
	return r, nil
}
