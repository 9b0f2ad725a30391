package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	tradeapp "github.com/supplychain/procurement/internal/application/trade"
)

// OrderHandler handles the purchase order amendment workflow endpoints
type OrderHandler struct {
	BaseHandler
	service *tradeapp.AmendmentService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *tradeapp.AmendmentService) *OrderHandler {
	return &OrderHandler{service: service}
}

// PlaceOrder creates a purchase order with the viewer as buyer
// POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return
	}
	var req tradeapp.PlaceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.PlaceOrder(c.Request.Context(), viewer, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetOrder re-reads the order from the server and replaces the local snapshot
// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	viewer, orderID, ok := h.orderTarget(c)
	if !ok {
		return
	}

	order, err := h.service.RefreshOrder(c.Request.Context(), viewer, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// GetActions returns what the viewer may do on the order right now
// GET /orders/:id/actions
func (h *OrderHandler) GetActions(c *gin.Context) {
	viewer, orderID, ok := h.orderTarget(c)
	if !ok {
		return
	}

	actions, err := h.service.GetActions(c.Request.Context(), viewer, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, actions)
}

// ProposeAmendment submits a seller proposal
// POST /orders/:id/amendments
func (h *OrderHandler) ProposeAmendment(c *gin.Context) {
	viewer, orderID, ok := h.orderTarget(c)
	if !ok {
		return
	}
	var req tradeapp.ProposeAmendmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	amendment, err := h.service.ProposeAmendment(c.Request.Context(), viewer, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, amendment)
}

// DecideAmendment approves or rejects the pending proposal
// POST /orders/:id/amendments/decision
func (h *OrderHandler) DecideAmendment(c *gin.Context) {
	viewer, orderID, ok := h.orderTarget(c)
	if !ok {
		return
	}
	var req tradeapp.DecideAmendmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.DecideAmendment(c.Request.Context(), viewer, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AcceptOrder confirms the order, optionally with one discrepancy
// POST /orders/:id/accept
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	viewer, orderID, ok := h.orderTarget(c)
	if !ok {
		return
	}
	var req tradeapp.AcceptOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.AcceptOrder(c.Request.Context(), viewer, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RejectOrder declines the order
// POST /orders/:id/reject
func (h *OrderHandler) RejectOrder(c *gin.Context) {
	viewer, orderID, ok := h.orderTarget(c)
	if !ok {
		return
	}
	var req tradeapp.RejectOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.RejectOrder(c.Request.Context(), viewer, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// EditOrder changes order fields directly
// PATCH /orders/:id
func (h *OrderHandler) EditOrder(c *gin.Context) {
	viewer, orderID, ok := h.orderTarget(c)
	if !ok {
		return
	}
	var req tradeapp.EditOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.EditOrder(c.Request.Context(), viewer, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *OrderHandler) orderTarget(c *gin.Context) (tradeapp.Viewer, uuid.UUID, bool) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return tradeapp.Viewer{}, uuid.Nil, false
	}
	orderID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return tradeapp.Viewer{}, uuid.Nil, false
	}
	return viewer, orderID, true
}
