package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants
const (
	EventTypeAmendmentProposed            = "AmendmentProposed"
	EventTypeAmendmentApproved            = "AmendmentApproved"
	EventTypeAmendmentRejected            = "AmendmentRejected"
	EventTypeOrderConfirmed               = "OrderConfirmed"
	EventTypeOrderAcceptedWithDiscrepancy = "OrderAcceptedWithDiscrepancy"
	EventTypeOrderDeclined                = "OrderDeclined"
	EventTypeOrderEdited                  = "OrderEdited"
)

// AmendmentProposedEvent is raised when a change is proposed for buyer review
type AmendmentProposedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	PONumber      string          `json:"po_number"`
	AmendmentType AmendmentType   `json:"amendment_type"`
	Origin        AmendmentOrigin `json:"origin"`
	Reason        string          `json:"reason"`
}

// NewAmendmentProposedEvent creates a new AmendmentProposedEvent
func NewAmendmentProposedEvent(order *PurchaseOrder, at time.Time) *AmendmentProposedEvent {
	return &AmendmentProposedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAmendmentProposed, AggregateTypePurchaseOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		AmendmentType:   order.Amendment.Type,
		Origin:          order.Amendment.Origin,
		Reason:          order.Amendment.Reason,
	}
}

// AmendmentApprovedEvent is raised when the buyer approves a proposal and it is promoted
type AmendmentApprovedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	PONumber       string          `json:"po_number"`
	AmendmentType  AmendmentType   `json:"amendment_type"`
	ProductID      uuid.UUID       `json:"product_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmendmentCount int             `json:"amendment_count"`
	BuyerNotes     string          `json:"buyer_notes,omitempty"`
}

// NewAmendmentApprovedEvent creates a new AmendmentApprovedEvent from the promoted order
func NewAmendmentApprovedEvent(order *PurchaseOrder, amendmentType AmendmentType, at time.Time) *AmendmentApprovedEvent {
	return &AmendmentApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAmendmentApproved, AggregateTypePurchaseOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		AmendmentType:   amendmentType,
		ProductID:       order.ProductID,
		Quantity:        order.Quantity,
		Unit:            order.Unit,
		TotalAmount:     order.TotalAmount,
		AmendmentCount:  order.Amendment.Count,
		BuyerNotes:      order.Amendment.BuyerNotes,
	}
}

// AmendmentRejectedEvent is raised when the buyer turns down a proposal
type AmendmentRejectedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID     `json:"order_id"`
	PONumber       string        `json:"po_number"`
	AmendmentType  AmendmentType `json:"amendment_type"`
	RevertedStatus OrderStatus   `json:"reverted_status,omitempty"`
	BuyerNotes     string        `json:"buyer_notes,omitempty"`
}

// NewAmendmentRejectedEvent creates a new AmendmentRejectedEvent
func NewAmendmentRejectedEvent(order *PurchaseOrder, amendmentType AmendmentType, reverted OrderStatus, at time.Time) *AmendmentRejectedEvent {
	return &AmendmentRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAmendmentRejected, AggregateTypePurchaseOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		AmendmentType:   amendmentType,
		RevertedStatus:  reverted,
		BuyerNotes:      order.Amendment.BuyerNotes,
	}
}

// OrderConfirmedEvent is raised when the order reaches CONFIRMED and fulfillment can start
type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID       `json:"order_id"`
	PONumber  string          `json:"po_number"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
}

// NewOrderConfirmedEvent creates a new OrderConfirmedEvent
func NewOrderConfirmedEvent(order *PurchaseOrder, at time.Time) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, AggregateTypePurchaseOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		ProductID:       order.ProductID,
		Quantity:        order.Quantity,
		Unit:            order.Unit,
	}
}

// OrderAcceptedWithDiscrepancyEvent is raised when the seller accepts but confirms a different value
type OrderAcceptedWithDiscrepancyEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID     `json:"order_id"`
	PONumber      string        `json:"po_number"`
	AmendmentType AmendmentType `json:"amendment_type"`
	Reason        string        `json:"reason"`
}

// NewOrderAcceptedWithDiscrepancyEvent creates a new OrderAcceptedWithDiscrepancyEvent
func NewOrderAcceptedWithDiscrepancyEvent(order *PurchaseOrder, at time.Time) *OrderAcceptedWithDiscrepancyEvent {
	return &OrderAcceptedWithDiscrepancyEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderAcceptedWithDiscrepancy, AggregateTypePurchaseOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		AmendmentType:   order.Amendment.Type,
		Reason:          order.Amendment.Reason,
	}
}

// OrderDeclinedEvent is raised when the seller rejects the order
type OrderDeclinedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID `json:"order_id"`
	PONumber string    `json:"po_number"`
	Reason   string    `json:"reason"`
}

// NewOrderDeclinedEvent creates a new OrderDeclinedEvent
func NewOrderDeclinedEvent(order *PurchaseOrder, at time.Time) *OrderDeclinedEvent {
	return &OrderDeclinedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeclined, AggregateTypePurchaseOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		Reason:          order.DeclineReason,
	}
}

// OrderEditedEvent is raised after a direct edit outside the amendment workflow
type OrderEditedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID `json:"order_id"`
	PONumber      string    `json:"po_number"`
	ChangedFields []string  `json:"changed_fields"`
}

// NewOrderEditedEvent creates a new OrderEditedEvent
func NewOrderEditedEvent(order *PurchaseOrder, fields []string, at time.Time) *OrderEditedEvent {
	return &OrderEditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderEdited, AggregateTypePurchaseOrder, order.ID, order.TenantID, at),
		OrderID:         order.ID,
		PONumber:        order.PONumber,
		ChangedFields:   fields,
	}
}
