package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	inventoryapp "github.com/supplychain/procurement/internal/application/inventory"
)

// AllocationHandler handles batch, harvest and allocation endpoints
type AllocationHandler struct {
	BaseHandler
	service *inventoryapp.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(service *inventoryapp.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: service}
}

// ListBatches returns the available pool for a product
// GET /batches?product_id=&quantity=&unit=
func (h *AllocationHandler) ListBatches(c *gin.Context) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return
	}
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "product_id query parameter must be a UUID")
		return
	}
	quantity := decimal.Zero
	if raw := c.Query("quantity"); raw != "" {
		if quantity, err = decimal.NewFromString(raw); err != nil {
			h.BadRequest(c, "quantity query parameter must be a number")
			return
		}
	}

	batches, err := h.service.GetAvailableBatches(c.Request.Context(), viewer.TenantID, productID, quantity, c.Query("unit"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// DeclareHarvest records newly produced inventory
// POST /harvests
func (h *AllocationHandler) DeclareHarvest(c *gin.Context) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return
	}
	var req inventoryapp.DeclareHarvestRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.service.DeclareHarvest(c.Request.Context(), viewer.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, batch)
}

// Plan runs the planner on an explicit pool or on the gateway's pool
// POST /allocations/plan
func (h *AllocationHandler) Plan(c *gin.Context) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return
	}
	var req inventoryapp.PlanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	plan, err := h.service.Plan(c.Request.Context(), viewer.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// Compare plans the same pool under every registered policy
// POST /allocations/compare
func (h *AllocationHandler) Compare(c *gin.Context) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return
	}
	var req inventoryapp.PlanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	comparison, err := h.service.Compare(c.Request.Context(), viewer.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, comparison)
}

// Preview checks an allocation for mass balance before submission
// POST /allocations/preview
func (h *AllocationHandler) Preview(c *gin.Context) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return
	}
	var req inventoryapp.PreviewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	preview, err := h.service.Preview(c.Request.Context(), viewer.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// CreateSession starts a manual allocation
// POST /allocation-sessions
func (h *AllocationHandler) CreateSession(c *gin.Context) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return
	}
	var req inventoryapp.CreateSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), viewer.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session)
}

// GetSession returns a manual allocation with its remaining pool
// GET /allocation-sessions/:id
func (h *AllocationHandler) GetSession(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionTarget(c)
	if !ok {
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// AddPick draws from one batch
// POST /allocation-sessions/:id/picks
func (h *AllocationHandler) AddPick(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionTarget(c)
	if !ok {
		return
	}
	var req inventoryapp.AddPickRequest
	if !h.BindJSON(c, &req) {
		return
	}

	session, err := h.service.AddPick(c.Request.Context(), tenantID, sessionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// RemovePick returns a batch's pick to the pool
// DELETE /allocation-sessions/:id/picks/:batch_id
func (h *AllocationHandler) RemovePick(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionTarget(c)
	if !ok {
		return
	}
	batchID, ok := h.ParseUUIDParam(c, "batch_id")
	if !ok {
		return
	}

	session, err := h.service.RemovePick(c.Request.Context(), tenantID, sessionID, batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// DeleteSession discards a manual allocation
// DELETE /allocation-sessions/:id
func (h *AllocationHandler) DeleteSession(c *gin.Context) {
	tenantID, sessionID, ok := h.sessionTarget(c)
	if !ok {
		return
	}

	if err := h.service.DeleteSession(c.Request.Context(), tenantID, sessionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *AllocationHandler) sessionTarget(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	viewer, ok := h.Viewer(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return viewer.TenantID, sessionID, true
}
