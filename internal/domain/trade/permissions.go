package trade

import (
	"github.com/google/uuid"
)

// Role is the viewer's relationship to an order
type Role string

const (
	RoleNone   Role = "none"
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	// RoleBoth covers a company that is buyer and seller on the same order
	RoleBoth Role = "both"
)

// IsBuyer returns true when the role includes the buyer side
func (r Role) IsBuyer() bool {
	return r == RoleBuyer || r == RoleBoth
}

// IsSeller returns true when the role includes the seller side
func (r Role) IsSeller() bool {
	return r == RoleSeller || r == RoleBoth
}

// ResolveRole maps a viewer company to its role on the order.
// A nil order or a nil viewer has no role.
func ResolveRole(order *PurchaseOrder, viewerCompanyID uuid.UUID) Role {
	if order == nil || viewerCompanyID == uuid.Nil {
		return RoleNone
	}
	buyer := viewerCompanyID == order.BuyerCompanyID
	seller := viewerCompanyID == order.SellerCompanyID
	switch {
	case buyer && seller:
		return RoleBoth
	case buyer:
		return RoleBuyer
	case seller:
		return RoleSeller
	}
	return RoleNone
}

// Actions is the set of negotiation actions currently legal for a viewer
type Actions struct {
	CanProposeChanges bool `json:"can_propose_changes"`
	CanApproveChanges bool `json:"can_approve_changes"`
	CanAccept         bool `json:"can_accept"`
	CanReject         bool `json:"can_reject"`
	CanEdit           bool `json:"can_edit"`
}

// ResolveActions computes the legal actions for a viewer on an order.
// It has no side effects and fails closed: unknown viewers get no actions.
func ResolveActions(order *PurchaseOrder, viewerCompanyID uuid.UUID) Actions {
	role := ResolveRole(order, viewerCompanyID)
	if role == RoleNone {
		return Actions{}
	}

	proposed := order.Amendment.Status == AmendmentStatusProposed
	return Actions{
		CanProposeChanges: role.IsSeller() && order.Status == OrderStatusPending && !proposed,
		CanApproveChanges: role.IsBuyer() && proposed,
		CanAccept:         role.IsSeller() && order.Status.IsOpenForSeller(),
		CanReject:         role.IsSeller() && order.Status.IsOpenForSeller(),
		CanEdit:           order.Status.IsEditable(),
	}
}

// Allows reports whether the action set permits the given transition kind
func (a Actions) Allows(kind TransitionKind) bool {
	switch kind {
	case TransitionPropose:
		return a.CanProposeChanges
	case TransitionApprove:
		return a.CanApproveChanges
	case TransitionAccept:
		return a.CanAccept
	case TransitionReject:
		return a.CanReject
	case TransitionEdit:
		return a.CanEdit
	}
	return false
}

// None returns true when no action is permitted
func (a Actions) None() bool {
	return a == Actions{}
}

// List returns the permitted transition kinds in a stable order
func (a Actions) List() []TransitionKind {
	kinds := make([]TransitionKind, 0, 5)
	for _, k := range AllTransitionKinds() {
		if a.Allows(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
