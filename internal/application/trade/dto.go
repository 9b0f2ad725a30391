package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/trade"
)

// Viewer identifies who is acting on an order
type Viewer struct {
	TenantID  uuid.UUID
	CompanyID uuid.UUID
}

// ==================== Request DTOs ====================

// PlaceOrderRequest represents a buyer placing a new purchase order
type PlaceOrderRequest struct {
	PONumber         string          `json:"po_number" binding:"required,min=1,max=50"`
	SellerCompanyID  uuid.UUID       `json:"seller_company_id" binding:"required"`
	ProductID        uuid.UUID       `json:"product_id" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
	Unit             string          `json:"unit" binding:"required,min=1,max=20"`
	UnitPrice        decimal.Decimal `json:"unit_price" binding:"decimal_gt0"`
	DeliveryDate     time.Time       `json:"delivery_date" binding:"required"`
	DeliveryLocation string          `json:"delivery_location" binding:"required,max=500"`
	Notes            string          `json:"notes" binding:"max=2000"`
}

// ToParams converts the request into order creation parameters for the buyer company
func (r PlaceOrderRequest) ToParams(buyerCompanyID uuid.UUID) trade.NewOrderParams {
	return trade.NewOrderParams{
		PONumber:         r.PONumber,
		BuyerCompanyID:   buyerCompanyID,
		SellerCompanyID:  r.SellerCompanyID,
		ProductID:        r.ProductID,
		Quantity:         r.Quantity,
		Unit:             r.Unit,
		UnitPrice:        r.UnitPrice,
		DeliveryDate:     r.DeliveryDate,
		DeliveryLocation: r.DeliveryLocation,
		Notes:            r.Notes,
	}
}

// ProposeAmendmentRequest represents a seller proposal to change one order field
type ProposeAmendmentRequest struct {
	AmendmentType            string           `json:"amendment_type" binding:"required,oneof=quantity_change delivery_date_change delivery_location_change"`
	ProposedQuantity         *decimal.Decimal `json:"proposed_quantity"`
	ProposedQuantityUnit     string           `json:"proposed_quantity_unit" binding:"max=20"`
	ProposedDeliveryDate     *time.Time       `json:"proposed_delivery_date"`
	ProposedDeliveryLocation *string          `json:"proposed_delivery_location" binding:"omitempty,max=500"`
	AmendmentReason          string           `json:"amendment_reason" binding:"required,max=1000"`
}

// ToTransition converts the request into the propose transition
func (r ProposeAmendmentRequest) ToTransition() trade.ProposeAmendment {
	return trade.ProposeAmendment{
		Type:             trade.AmendmentType(r.AmendmentType),
		Quantity:         r.ProposedQuantity,
		QuantityUnit:     r.ProposedQuantityUnit,
		DeliveryDate:     r.ProposedDeliveryDate,
		DeliveryLocation: r.ProposedDeliveryLocation,
		Reason:           r.AmendmentReason,
	}
}

// DecideAmendmentRequest represents the buyer's decision on a pending amendment
type DecideAmendmentRequest struct {
	Approve    *bool  `json:"approve" binding:"required"`
	BuyerNotes string `json:"buyer_notes" binding:"max=1000"`
}

// ToTransition converts the request into the approve transition
func (r DecideAmendmentRequest) ToTransition() trade.ApproveAmendment {
	approve := r.Approve != nil && *r.Approve
	return trade.ApproveAmendment{Approve: approve, BuyerNotes: r.BuyerNotes}
}

// AcceptOrderRequest represents the seller's confirmation, optionally with one discrepancy
type AcceptOrderRequest struct {
	ConfirmedQuantity         *decimal.Decimal `json:"confirmed_quantity"`
	ConfirmedQuantityUnit     string           `json:"confirmed_quantity_unit" binding:"max=20"`
	ConfirmedDeliveryDate     *time.Time       `json:"confirmed_delivery_date"`
	ConfirmedDeliveryLocation *string          `json:"confirmed_delivery_location" binding:"omitempty,max=500"`
	DiscrepancyReason         string           `json:"discrepancy_reason" binding:"max=1000"`
	Notes                     string           `json:"notes" binding:"max=2000"`
}

// ToTransition converts the request into the accept transition
func (r AcceptOrderRequest) ToTransition() trade.AcceptOrder {
	return trade.AcceptOrder{
		ConfirmedQuantity:         r.ConfirmedQuantity,
		ConfirmedQuantityUnit:     r.ConfirmedQuantityUnit,
		ConfirmedDeliveryDate:     r.ConfirmedDeliveryDate,
		ConfirmedDeliveryLocation: r.ConfirmedDeliveryLocation,
		DiscrepancyReason:         r.DiscrepancyReason,
		Notes:                     r.Notes,
	}
}

// RejectOrderRequest represents the seller declining an order
type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=1000"`
}

// ToTransition converts the request into the reject transition
func (r RejectOrderRequest) ToTransition() trade.RejectOrder {
	return trade.RejectOrder{Reason: r.Reason}
}

// EditOrderRequest represents a direct edit of order fields. Absent fields stay unchanged.
type EditOrderRequest struct {
	Quantity         *decimal.Decimal `json:"quantity"`
	Unit             *string          `json:"unit" binding:"omitempty,max=20"`
	UnitPrice        *decimal.Decimal `json:"unit_price"`
	DeliveryDate     *time.Time       `json:"delivery_date"`
	DeliveryLocation *string          `json:"delivery_location" binding:"omitempty,max=500"`
	Notes            *string          `json:"notes" binding:"omitempty,max=2000"`
}

// ToTransition converts the request into the edit transition
func (r EditOrderRequest) ToTransition() trade.EditOrder {
	return trade.EditOrder{
		Quantity:         r.Quantity,
		Unit:             r.Unit,
		UnitPrice:        r.UnitPrice,
		DeliveryDate:     r.DeliveryDate,
		DeliveryLocation: r.DeliveryLocation,
		Notes:            r.Notes,
	}
}

// ==================== Response DTOs ====================

// AmendmentResponse represents the amendment sub-record of an order
type AmendmentResponse struct {
	OrderID                  uuid.UUID        `json:"order_id"`
	Status                   string           `json:"amendment_status"`
	Type                     string           `json:"amendment_type,omitempty"`
	ProposedQuantity         *decimal.Decimal `json:"proposed_quantity,omitempty"`
	ProposedQuantityUnit     string           `json:"proposed_quantity_unit,omitempty"`
	ProposedDeliveryDate     *time.Time       `json:"proposed_delivery_date,omitempty"`
	ProposedDeliveryLocation *string          `json:"proposed_delivery_location,omitempty"`
	Reason                   string           `json:"amendment_reason,omitempty"`
	ProposedBy               string           `json:"proposed_by,omitempty"`
	Count                    int              `json:"amendment_count"`
	LastAmendedAt            *time.Time       `json:"last_amended_at,omitempty"`
	BuyerNotes               string           `json:"buyer_notes,omitempty"`
	Version                  int              `json:"version"`
}

// OrderResponse represents a purchase order in API responses
type OrderResponse struct {
	ID               uuid.UUID         `json:"id"`
	TenantID         uuid.UUID         `json:"tenant_id"`
	PONumber         string            `json:"po_number"`
	BuyerCompanyID   uuid.UUID         `json:"buyer_company_id"`
	SellerCompanyID  uuid.UUID         `json:"seller_company_id"`
	ProductID        uuid.UUID         `json:"product_id"`
	Quantity         decimal.Decimal   `json:"quantity"`
	Unit             string            `json:"unit"`
	UnitPrice        decimal.Decimal   `json:"unit_price"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	DeliveryDate     time.Time         `json:"delivery_date"`
	DeliveryLocation string            `json:"delivery_location"`
	Status           string            `json:"status"`
	Amendment        AmendmentResponse `json:"amendment"`
	Notes            string            `json:"notes,omitempty"`
	DeclineReason    string            `json:"decline_reason,omitempty"`
	ConfirmedAt      *time.Time        `json:"confirmed_at,omitempty"`
	DeclinedAt       *time.Time        `json:"declined_at,omitempty"`
	Version          int               `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ActionsResponse lists what the viewer may currently do on an order
type ActionsResponse struct {
	OrderID   uuid.UUID `json:"order_id"`
	Role      string    `json:"role"`
	Version   int       `json:"version"`
	Available []string  `json:"available"`
	trade.Actions
}

// TransitionResponse describes the order after a successful transition
type TransitionResponse struct {
	Transition          string        `json:"transition"`
	Order               OrderResponse `json:"order"`
	Events              []string      `json:"events"`
	AllocationRequired  bool          `json:"allocation_required"`
	DiscrepancyRecorded bool          `json:"discrepancy_recorded"`
}

// ToAmendmentResponse converts the order's amendment sub-record to a response DTO
func ToAmendmentResponse(order *trade.PurchaseOrder) AmendmentResponse {
	a := order.Amendment
	return AmendmentResponse{
		OrderID:                  order.ID,
		Status:                   string(a.Status),
		Type:                     string(a.Type),
		ProposedQuantity:         a.ProposedQuantity,
		ProposedQuantityUnit:     a.ProposedQuantityUnit,
		ProposedDeliveryDate:     a.ProposedDeliveryDate,
		ProposedDeliveryLocation: a.ProposedDeliveryLocation,
		Reason:                   a.Reason,
		ProposedBy:               string(a.Origin),
		Count:                    a.Count,
		LastAmendedAt:            a.LastAmendedAt,
		BuyerNotes:               a.BuyerNotes,
		Version:                  order.Version,
	}
}

// ToOrderResponse converts a domain PurchaseOrder to OrderResponse
func ToOrderResponse(order *trade.PurchaseOrder) OrderResponse {
	return OrderResponse{
		ID:               order.ID,
		TenantID:         order.TenantID,
		PONumber:         order.PONumber,
		BuyerCompanyID:   order.BuyerCompanyID,
		SellerCompanyID:  order.SellerCompanyID,
		ProductID:        order.ProductID,
		Quantity:         order.Quantity,
		Unit:             order.Unit,
		UnitPrice:        order.UnitPrice,
		TotalAmount:      order.TotalAmount,
		DeliveryDate:     order.DeliveryDate,
		DeliveryLocation: order.DeliveryLocation,
		Status:           string(order.Status),
		Amendment:        ToAmendmentResponse(order),
		Notes:            order.Notes,
		DeclineReason:    order.DeclineReason,
		ConfirmedAt:      order.ConfirmedAt,
		DeclinedAt:       order.DeclinedAt,
		Version:          order.Version,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

// ToActionsResponse resolves the viewer's actions on order
func ToActionsResponse(order *trade.PurchaseOrder, viewerCompanyID uuid.UUID) ActionsResponse {
	actions := trade.ResolveActions(order, viewerCompanyID)
	kinds := actions.List()
	available := make([]string, 0, len(kinds))
	for _, k := range kinds {
		available = append(available, k.String())
	}
	return ActionsResponse{
		OrderID:   order.ID,
		Role:      string(trade.ResolveRole(order, viewerCompanyID)),
		Version:   order.Version,
		Available: available,
		Actions:   actions,
	}
}

func toTransitionResponse(order *trade.PurchaseOrder, outcome trade.Outcome) TransitionResponse {
	events := make([]string, 0, len(outcome.Events))
	for _, e := range outcome.Events {
		events = append(events, e.EventType())
	}
	return TransitionResponse{
		Transition:          outcome.Kind.String(),
		Order:               ToOrderResponse(order),
		Events:              events,
		AllocationRequired:  outcome.AllocationRequired,
		DiscrepancyRecorded: outcome.DiscrepancyRecorded,
	}
}
