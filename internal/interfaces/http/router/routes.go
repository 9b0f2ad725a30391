package router

import (
	"github.com/supplychain/procurement/internal/interfaces/http/handler"
)

// OrderResource maps the amendment workflow onto /orders.
func OrderResource(h *handler.OrderHandler) Resource {
	return Resource{Prefix: "/orders", Routes: []Route{
		post("", h.PlaceOrder),
		get("/:id", h.GetOrder),
		patch("/:id", h.EditOrder),
		get("/:id/actions", h.GetActions),
		post("/:id/amendments", h.ProposeAmendment),
		post("/:id/amendments/decision", h.DecideAmendment),
		post("/:id/accept", h.AcceptOrder),
		post("/:id/reject", h.RejectOrder),
	}}
}

// AllocationResources maps batches, harvests, planning and manual sessions.
func AllocationResources(h *handler.AllocationHandler) []Resource {
	return []Resource{
		{Prefix: "/batches", Routes: []Route{get("", h.ListBatches)}},
		{Prefix: "/harvests", Routes: []Route{post("", h.DeclareHarvest)}},
		{Prefix: "/allocations", Routes: []Route{
			post("/plan", h.Plan),
			post("/compare", h.Compare),
			post("/preview", h.Preview),
		}},
		{Prefix: "/allocation-sessions", Routes: []Route{
			post("", h.CreateSession),
			get("/:id", h.GetSession),
			remove("/:id", h.DeleteSession),
			post("/:id/picks", h.AddPick),
			remove("/:id/picks/:batch_id", h.RemovePick),
		}},
	}
}
