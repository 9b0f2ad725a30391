package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// OrderStatus represents the lifecycle status of a purchase order
type OrderStatus string

const (
	OrderStatusDraft              OrderStatus = "DRAFT"
	OrderStatusPending            OrderStatus = "PENDING"
	OrderStatusAwaitingAcceptance OrderStatus = "AWAITING_ACCEPTANCE"
	OrderStatusAccepted           OrderStatus = "ACCEPTED"
	OrderStatusConfirmed          OrderStatus = "CONFIRMED"
	OrderStatusShipped            OrderStatus = "SHIPPED"
	OrderStatusDelivered          OrderStatus = "DELIVERED"
	OrderStatusCancelled          OrderStatus = "CANCELLED"
	OrderStatusRejected           OrderStatus = "REJECTED"
	OrderStatusDeclined           OrderStatus = "DECLINED"
)

// IsValid checks if the status is a known OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusPending, OrderStatusAwaitingAcceptance, OrderStatusAccepted,
		OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusRejected, OrderStatusDeclined:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses that end the order's life
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRejected || s == OrderStatusDeclined
}

// IsOpenForSeller returns true while the seller may still accept or reject
func (s OrderStatus) IsOpenForSeller() bool {
	return s == OrderStatusPending || s == OrderStatusAwaitingAcceptance
}

// IsEditable returns true for statuses in which either party may edit the order directly
func (s OrderStatus) IsEditable() bool {
	return s == OrderStatusPending || s == OrderStatusAwaitingAcceptance || s == OrderStatusAccepted
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusDraft:
		return target == OrderStatusPending || target == OrderStatusCancelled
	case OrderStatusPending, OrderStatusAwaitingAcceptance:
		return target == OrderStatusAccepted || target == OrderStatusConfirmed ||
			target == OrderStatusDeclined || target == OrderStatusRejected || target == OrderStatusCancelled
	case OrderStatusAccepted:
		return target == OrderStatusConfirmed || target == OrderStatusPending || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusShipped || target == OrderStatusCancelled
	case OrderStatusShipped:
		return target == OrderStatusDelivered
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected, OrderStatusDeclined:
		return false
	}
	return false
}

// PurchaseOrder represents a negotiated purchase order between a buyer and a seller company.
// TotalAmount is always derived from the confirmed Quantity and UnitPrice, never from a proposal.
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	PONumber         string
	BuyerCompanyID   uuid.UUID
	SellerCompanyID  uuid.UUID
	ProductID        uuid.UUID
	Quantity         decimal.Decimal
	Unit             string
	UnitPrice        decimal.Decimal
	TotalAmount      decimal.Decimal
	DeliveryDate     time.Time
	DeliveryLocation string
	Status           OrderStatus
	Amendment        Amendment
	Notes            string
	DeclineReason    string
	ConfirmedAt      *time.Time
	DeclinedAt       *time.Time
}

// NewOrderParams carries the fields a buyer submits when placing an order
type NewOrderParams struct {
	PONumber         string
	BuyerCompanyID   uuid.UUID
	SellerCompanyID  uuid.UUID
	ProductID        uuid.UUID
	Quantity         decimal.Decimal
	Unit             string
	UnitPrice        decimal.Decimal
	DeliveryDate     time.Time
	DeliveryLocation string
	Notes            string
}

// NewPurchaseOrder creates a submitted purchase order in PENDING status
// validateUnitPrice applies the same rule to placed and edited orders
func validateUnitPrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return shared.NewValidationError(shared.CodeInvalidPrice, "Unit price must be greater than zero")
	}
	return nil
}

func NewPurchaseOrder(tenantID uuid.UUID, p NewOrderParams) (*PurchaseOrder, error) {
	if strings.TrimSpace(p.PONumber) == "" {
		return nil, shared.NewValidationError(shared.CodeMissingField, "PO number cannot be empty")
	}
	if len(p.PONumber) > 50 {
		return nil, shared.NewValidationError("INVALID_PO_NUMBER", "PO number cannot exceed 50 characters")
	}
	if p.BuyerCompanyID == uuid.Nil || p.SellerCompanyID == uuid.Nil {
		return nil, shared.NewValidationError(shared.CodeMissingField, "Buyer and seller companies are required")
	}
	if !p.Quantity.IsPositive() {
		return nil, shared.NewValidationError(shared.CodeInvalidQuantity, "Quantity must be positive")
	}
	if normalizeUnit(p.Unit) == "" {
		return nil, shared.NewValidationError(shared.CodeMissingField, "Unit cannot be empty")
	}
	if err := validateUnitPrice(p.UnitPrice); err != nil {
		return nil, err
	}

	order := &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID, time.Now()),
		PONumber:            strings.TrimSpace(p.PONumber),
		BuyerCompanyID:      p.BuyerCompanyID,
		SellerCompanyID:     p.SellerCompanyID,
		ProductID:           p.ProductID,
		Quantity:            p.Quantity,
		Unit:                strings.TrimSpace(p.Unit),
		UnitPrice:           p.UnitPrice,
		DeliveryDate:        p.DeliveryDate,
		DeliveryLocation:    strings.TrimSpace(p.DeliveryLocation),
		Status:              OrderStatusPending,
		Amendment:           Amendment{Status: AmendmentStatusNone},
		Notes:               p.Notes,
	}
	order.RecalculateTotal()

	return order, nil
}

// RecalculateTotal derives TotalAmount from the confirmed quantity and unit price
func (o *PurchaseOrder) RecalculateTotal() {
	o.TotalAmount = o.Quantity.Mul(o.UnitPrice).Round(4)
}

// HasPendingAmendment returns true while a proposal awaits buyer review
func (o *PurchaseOrder) HasPendingAmendment() bool {
	return o.Amendment.Status == AmendmentStatusProposed
}

// IsTerminal returns true if the order has been status-terminated
func (o *PurchaseOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

// Clone returns a deep copy of the order that shares no mutable state with the receiver
func (o *PurchaseOrder) Clone() *PurchaseOrder {
	if o == nil {
		return nil
	}
	c := *o
	c.BaseAggregateRoot = o.BaseAggregateRoot.CloneRoot()
	c.Amendment = o.Amendment.clone()
	c.ConfirmedAt = cloneTime(o.ConfirmedAt)
	c.DeclinedAt = cloneTime(o.DeclinedAt)
	return &c
}

// touch stamps a successful mutation
func (o *PurchaseOrder) touch(now time.Time) {
	o.UpdatedAt = now
	o.IncrementVersion()
}

// transitionTo moves the order to target, refusing illegal lifecycle moves
func (o *PurchaseOrder) transitionTo(target OrderStatus) error {
	if o.Status == target {
		return nil
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewValidationError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	o.Status = target
	return nil
}

// normalizeUnit trims and lower-cases a unit for comparison. Units are never converted.
func normalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// SameUnit reports whether two units are equal ignoring case and surrounding space
func SameUnit(a, b string) bool {
	return normalizeUnit(a) == normalizeUnit(b)
}

// sameDay compares dates at calendar-day granularity in UTC
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
