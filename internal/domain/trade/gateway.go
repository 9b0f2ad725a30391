package trade

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Submission identifies the order state a transition was computed against
type Submission struct {
	OrderID         uuid.UUID
	TenantID        uuid.UUID
	ViewerCompanyID uuid.UUID
	ExpectedVersion int
}

// NewSubmission builds a submission for the given order snapshot and viewer
func NewSubmission(order *PurchaseOrder, viewerCompanyID uuid.UUID) Submission {
	return Submission{
		OrderID:         order.ID,
		TenantID:        order.TenantID,
		ViewerCompanyID: viewerCompanyID,
		ExpectedVersion: order.Version,
	}
}

// OrderGateway is the authoritative order service.
// Every call returns the updated order or a structured error; a failure is never a partial success.
type OrderGateway interface {
	// FetchOrder reads the current order state
	FetchOrder(ctx context.Context, orderID uuid.UUID) (*PurchaseOrder, error)

	// ProposeAmendment submits a seller proposal
	ProposeAmendment(ctx context.Context, sub Submission, t ProposeAmendment) (*PurchaseOrder, error)

	// ApproveAmendment submits the buyer's decision on a pending proposal
	ApproveAmendment(ctx context.Context, sub Submission, t ApproveAmendment) (*PurchaseOrder, error)

	// AcceptOrder submits the seller's confirmation
	AcceptOrder(ctx context.Context, sub Submission, t AcceptOrder) (*PurchaseOrder, error)

	// RejectOrder submits the seller's rejection
	RejectOrder(ctx context.Context, sub Submission, t RejectOrder) (*PurchaseOrder, error)

	// EditOrder submits a direct field edit
	EditOrder(ctx context.Context, sub Submission, t EditOrder) (*PurchaseOrder, error)
}

// Submit dispatches a transition to the matching gateway operation
func Submit(ctx context.Context, gw OrderGateway, sub Submission, t Transition) (*PurchaseOrder, error) {
	switch v := t.(type) {
	case ProposeAmendment:
		return gw.ProposeAmendment(ctx, sub, v)
	case ApproveAmendment:
		return gw.ApproveAmendment(ctx, sub, v)
	case AcceptOrder:
		return gw.AcceptOrder(ctx, sub, v)
	case RejectOrder:
		return gw.RejectOrder(ctx, sub, v)
	case EditOrder:
		return gw.EditOrder(ctx, sub, v)
	}
	return nil, errUnknownTransition
}

var errUnknownTransition = errors.New("trade: unknown transition")
