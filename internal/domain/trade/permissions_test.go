package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolveRole(t *testing.T) {
	order := createTestPurchaseOrder(t)

	assert.Equal(t, RoleBuyer, ResolveRole(order, order.BuyerCompanyID))
	assert.Equal(t, RoleSeller, ResolveRole(order, order.SellerCompanyID))
	assert.Equal(t, RoleNone, ResolveRole(order, uuid.New()))
	assert.Equal(t, RoleNone, ResolveRole(order, uuid.Nil))
	assert.Equal(t, RoleNone, ResolveRole(nil, order.BuyerCompanyID))

	order.SellerCompanyID = order.BuyerCompanyID
	assert.Equal(t, RoleBoth, ResolveRole(order, order.BuyerCompanyID))
}

func TestResolveActions_StrangerGetsNothing(t *testing.T) {
	statuses := []OrderStatus{
		OrderStatusDraft, OrderStatusPending, OrderStatusAwaitingAcceptance, OrderStatusAccepted,
		OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusRejected, OrderStatusDeclined,
	}
	amendments := []AmendmentStatus{AmendmentStatusNone, AmendmentStatusProposed}

	for _, status := range statuses {
		for _, amendment := range amendments {
			t.Run(string(status)+"/"+string(amendment), func(t *testing.T) {
				order := createTestPurchaseOrder(t)
				order.Status = status
				order.Amendment.Status = amendment

				assert.True(t, ResolveActions(order, uuid.New()).None())
				assert.True(t, ResolveActions(order, uuid.Nil).None())
			})
		}
	}
	assert.True(t, ResolveActions(nil, uuid.New()).None())
}

func TestResolveActions(t *testing.T) {
	tests := []struct {
		name      string
		status    OrderStatus
		amendment AmendmentStatus
		seller    bool
		want      Actions
	}{
		{
			name: "seller on pending order", status: OrderStatusPending, amendment: AmendmentStatusNone, seller: true,
			want: Actions{CanProposeChanges: true, CanAccept: true, CanReject: true, CanEdit: true},
		},
		{
			name: "seller with pending proposal", status: OrderStatusPending, amendment: AmendmentStatusProposed, seller: true,
			want: Actions{CanAccept: true, CanReject: true, CanEdit: true},
		},
		{
			name: "seller awaiting acceptance", status: OrderStatusAwaitingAcceptance, amendment: AmendmentStatusNone, seller: true,
			want: Actions{CanAccept: true, CanReject: true, CanEdit: true},
		},
		{
			name: "buyer on pending order", status: OrderStatusPending, amendment: AmendmentStatusNone,
			want: Actions{CanEdit: true},
		},
		{
			name: "buyer with pending proposal", status: OrderStatusPending, amendment: AmendmentStatusProposed,
			want: Actions{CanApproveChanges: true, CanEdit: true},
		},
		{
			name: "buyer on accepted order with discrepancy", status: OrderStatusAccepted, amendment: AmendmentStatusProposed,
			want: Actions{CanApproveChanges: true, CanEdit: true},
		},
		{
			name: "seller on confirmed order", status: OrderStatusConfirmed, amendment: AmendmentStatusNone, seller: true,
			want: Actions{},
		},
		{
			name: "buyer on declined order", status: OrderStatusDeclined, amendment: AmendmentStatusNone,
			want: Actions{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := createTestPurchaseOrder(t)
			order.Status = tt.status
			order.Amendment.Status = tt.amendment

			viewer := order.BuyerCompanyID
			if tt.seller {
				viewer = order.SellerCompanyID
			}
			assert.Equal(t, tt.want, ResolveActions(order, viewer))
		})
	}
}

func TestResolveActions_BothRoles(t *testing.T) {
	order := createTestPurchaseOrder(t)
	order.SellerCompanyID = order.BuyerCompanyID

	actions := ResolveActions(order, order.BuyerCompanyID)
	assert.True(t, actions.CanProposeChanges)
	assert.True(t, actions.CanAccept)
	assert.True(t, actions.CanEdit)
	assert.False(t, actions.CanApproveChanges)
}

func TestActions_List(t *testing.T) {
	actions := Actions{CanApproveChanges: true, CanEdit: true}

	assert.Equal(t, []TransitionKind{TransitionApprove, TransitionEdit}, actions.List())
	assert.True(t, actions.Allows(TransitionEdit))
	assert.False(t, actions.Allows(TransitionAccept))
	assert.False(t, actions.Allows(TransitionKind("cancel")))
	assert.Empty(t, Actions{}.List())
}
