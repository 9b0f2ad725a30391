package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	inventoryapp "github.com/supplychain/procurement/internal/application/inventory"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/interfaces/http/dto"
)

var (
	batchA = uuid.MustParse("0a000000-0000-4000-8000-00000000000a")
	batchB = uuid.MustParse("0b000000-0000-4000-8000-00000000000b")
	batchC = uuid.MustParse("0c000000-0000-4000-8000-00000000000c")
)

// threeBatchPool is 1200 kg harvested over three months, oldest first
func threeBatchPool() []map[string]any {
	return []map[string]any{
		{"id": batchA.String(), "batch_code": "HB-A", "quantity": "400", "unit": "kg", "produced_at": "2026-01-10T00:00:00Z"},
		{"id": batchB.String(), "batch_code": "HB-B", "quantity": "500", "unit": "kg", "produced_at": "2026-02-10T00:00:00Z"},
		{"id": batchC.String(), "batch_code": "HB-C", "quantity": "300", "unit": "kg", "produced_at": "2026-03-10T00:00:00Z"},
	}
}

func planBody(policy, quantity string) map[string]any {
	return map[string]any{
		"product_id":        uuid.New().String(),
		"required_quantity": quantity,
		"required_unit":     "kg",
		"policy":            policy,
		"batches":           threeBatchPool(),
	}
}

func recordBatchIDs(records []inventory.AllocationRecord) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.BatchID)
	}
	return ids
}

func TestAllocationHandler_Plan(t *testing.T) {
	s := newTestServer(t)
	company := uuid.New()

	tests := []struct {
		policy      string
		batches     []uuid.UUID
		partial     int
		unallocated []uuid.UUID
	}{
		{"FIFO", []uuid.UUID{batchA, batchB}, 1, []uuid.UUID{batchC}},
		{"LIFO", []uuid.UUID{batchC, batchB}, 0, []uuid.UUID{batchA}},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/allocations/plan", company, planBody(tt.policy, "800"))
			resp := decodeData[inventoryapp.PlanResponse](t, w, http.StatusOK)

			assert.True(t, resp.Plan.CanFulfill)
			assert.True(t, resp.Plan.TotalAllocated.Equal(decimal.NewFromInt(800)))
			assert.True(t, resp.Plan.Remaining.IsZero())
			assert.Equal(t, tt.batches, recordBatchIDs(resp.Plan.Records))
			assert.Equal(t, tt.partial, resp.PartialCount)
			assert.Empty(t, resp.Suggestions)

			unallocated := make([]uuid.UUID, 0, len(resp.Unallocated))
			for _, b := range resp.Unallocated {
				unallocated = append(unallocated, b.ID)
			}
			assert.Equal(t, tt.unallocated, unallocated)
		})
	}
}

func TestAllocationHandler_PlanShortfall(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/allocations/plan", uuid.New(), planBody("FIFO", "2000"))
	resp := decodeData[inventoryapp.PlanResponse](t, w, http.StatusOK)

	assert.False(t, resp.Plan.CanFulfill)
	assert.True(t, resp.Plan.TotalAllocated.Equal(decimal.NewFromInt(1200)))
	assert.True(t, resp.Plan.Remaining.Equal(decimal.NewFromInt(800)))
	require.Len(t, resp.Suggestions, 2)
	assert.Equal(t, inventoryapp.SuggestionDeclareHarvest, resp.Suggestions[1].Action)
	assert.True(t, resp.Suggestions[1].Quantity.Equal(decimal.NewFromInt(800)))
}

func TestAllocationHandler_PlanRequestErrors(t *testing.T) {
	s := newTestServer(t)
	company := uuid.New()

	t.Run("unknown policy", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/allocations/plan", company, planBody("RANDOM", "800"))
		info := requireError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeValidation)
		require.NotEmpty(t, info.Details)
		assert.Equal(t, "policy", info.Details[0].Field)
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/allocations/plan", company, planBody("FIFO", "-5"))
		info := requireError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeValidation)
		require.NotEmpty(t, info.Details)
		assert.Equal(t, "required_quantity", info.Details[0].Field)
	})

	t.Run("batch without code", func(t *testing.T) {
		body := planBody("FIFO", "800")
		body["batches"] = []map[string]any{{"quantity": "10", "unit": "kg"}}
		w := s.do(t, http.MethodPost, "/api/v1/allocations/plan", company, body)
		info := requireError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeValidation)
		require.NotEmpty(t, info.Details)
		assert.Equal(t, "batches[0].batch_code", info.Details[0].Field)
	})
}

func TestAllocationHandler_Compare(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/allocations/compare", uuid.New(), planBody("", "800"))
	resp := decodeData[inventoryapp.CompareResponse](t, w, http.StatusOK)

	assert.True(t, resp.RequiredQuantity.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, "FIFO", resp.DefaultPolicy)

	names := make([]string, 0, len(resp.Policies))
	for _, p := range resp.Policies {
		names = append(names, p.Policy)
		assert.True(t, p.CanFulfill, p.Policy)
		assert.True(t, p.TotalAllocated.Equal(decimal.NewFromInt(800)), p.Policy)
		assert.NotEmpty(t, p.Description, p.Policy)
	}
	assert.ElementsMatch(t, []string{"FIFO", "LIFO", "ENTIRE_BATCHES_FIRST", "PROPORTIONAL"}, names)
}

func TestAllocationHandler_HarvestAndGatewayPool(t *testing.T) {
	s := newTestServer(t)
	company := uuid.New()
	productID := uuid.New()

	w := s.do(t, http.MethodPost, "/api/v1/harvests", company, map[string]any{
		"product_id": productID.String(),
		"quantity":   "250",
		"unit":       "kg",
		"origin":     map[string]any{"farm_name": "Finca Los Andes", "latitude": 4.71, "longitude": -74.07},
	})
	batch := decodeData[inventoryapp.BatchResponse](t, w, http.StatusCreated)
	assert.NotEmpty(t, batch.BatchCode)
	assert.Equal(t, productID, batch.ProductID)
	assert.Equal(t, "Finca Los Andes", batch.Origin.FarmName)

	w = s.do(t, http.MethodGet, "/api/v1/batches?product_id="+productID.String(), company, nil)
	batches := decodeData[[]inventoryapp.BatchResponse](t, w, http.StatusOK)
	require.Len(t, batches, 1)
	assert.Equal(t, batch.ID, batches[0].ID)

	w = s.do(t, http.MethodPost, "/api/v1/allocations/plan", company, map[string]any{
		"product_id":        productID.String(),
		"required_quantity": "100",
		"required_unit":     "kg",
	})
	plan := decodeData[inventoryapp.PlanResponse](t, w, http.StatusOK)
	require.Len(t, plan.Plan.Records, 1)
	assert.Equal(t, batch.ID, plan.Plan.Records[0].BatchID)
	assert.True(t, plan.Plan.Records[0].Partial)

	t.Run("invalid coordinates", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/harvests", company, map[string]any{
			"product_id": productID.String(),
			"quantity":   "10",
			"unit":       "kg",
			"origin":     map[string]any{"latitude": 123.0},
		})
		info := requireError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeValidation)
		require.NotEmpty(t, info.Details)
		assert.Equal(t, "origin.latitude", info.Details[0].Field)
	})
}

func TestAllocationHandler_ListBatchesQueryErrors(t *testing.T) {
	s := newTestServer(t)
	company := uuid.New()

	w := s.do(t, http.MethodGet, "/api/v1/batches", company, nil)
	requireError(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)

	w = s.do(t, http.MethodGet, "/api/v1/batches?product_id="+uuid.NewString()+"&quantity=lots", company, nil)
	requireError(t, w, http.StatusBadRequest, dto.ErrCodeBadRequest)
}

func TestAllocationHandler_Preview(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/allocations/preview", uuid.New(), map[string]any{
		"requested_quantity": "800",
		"records": []map[string]any{
			{"batch_id": batchA.String(), "batch_code": "HB-A", "quantity_allocated": "400", "unit": "kg", "contribution_percentage": "50"},
			{"batch_id": batchB.String(), "batch_code": "HB-B", "quantity_allocated": "300", "unit": "kg", "contribution_percentage": "37.5"},
		},
	})
	preview := decodeData[inventory.AllocationPreview](t, w, http.StatusOK)

	assert.True(t, preview.TotalAllocated.Equal(decimal.NewFromInt(700)))
	assert.True(t, preview.Remaining.Equal(decimal.NewFromInt(100)))
	assert.False(t, preview.CanFulfill)
	assert.False(t, preview.TotalMatchesRequested)

	t.Run("requested quantity must be positive", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/allocations/preview", uuid.New(), map[string]any{"requested_quantity": "0"})
		requireError(t, w, http.StatusUnprocessableEntity, "ERR_INVALID_QUANTITY")
	})
}

func TestAllocationHandler_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	company := uuid.New()

	w := s.do(t, http.MethodPost, "/api/v1/allocation-sessions", company, map[string]any{
		"product_id":        uuid.New().String(),
		"required_quantity": "800",
		"required_unit":     "kg",
		"batches":           threeBatchPool(),
	})
	session := decodeData[inventoryapp.SessionResponse](t, w, http.StatusCreated)
	assert.Empty(t, session.Records)
	assert.Len(t, session.Available, 3)
	assert.True(t, session.Remaining.Equal(decimal.NewFromInt(800)))

	sessionPath := "/api/v1/allocation-sessions/" + session.ID.String()

	w = s.do(t, http.MethodPost, sessionPath+"/picks", company, map[string]any{"batch_id": batchB.String()})
	session = decodeData[inventoryapp.SessionResponse](t, w, http.StatusOK)
	require.Len(t, session.Records, 1)
	assert.True(t, session.Records[0].QuantityAllocated.Equal(decimal.NewFromInt(500)))

	t.Run("duplicate pick", func(t *testing.T) {
		w := s.do(t, http.MethodPost, sessionPath+"/picks", company, map[string]any{"batch_id": batchB.String()})
		requireError(t, w, http.StatusUnprocessableEntity, "ERR_DUPLICATE_PICK")
	})

	w = s.do(t, http.MethodPost, sessionPath+"/picks", company, map[string]any{"batch_id": batchA.String()})
	session = decodeData[inventoryapp.SessionResponse](t, w, http.StatusOK)
	require.Len(t, session.Records, 2)
	assert.True(t, session.Records[1].QuantityAllocated.Equal(decimal.NewFromInt(300)))
	assert.True(t, session.CanFulfill)

	w = s.do(t, http.MethodPost, "/api/v1/allocations/preview", company, map[string]any{"session_id": session.ID.String()})
	preview := decodeData[inventory.AllocationPreview](t, w, http.StatusOK)
	assert.True(t, preview.TotalAllocated.Equal(decimal.NewFromInt(800)))
	assert.True(t, preview.TotalMatchesRequested)
	assert.True(t, preview.ContributionBalanced)

	w = s.do(t, http.MethodDelete, sessionPath+"/picks/"+batchB.String(), company, nil)
	session = decodeData[inventoryapp.SessionResponse](t, w, http.StatusOK)
	require.Len(t, session.Records, 1)
	assert.Equal(t, batchA, session.Records[0].BatchID)
	assert.True(t, session.Remaining.Equal(decimal.NewFromInt(500)))

	t.Run("another tenant cannot see it", func(t *testing.T) {
		other := *s
		other.tenantID = uuid.New()
		w := other.do(t, http.MethodGet, sessionPath, company, nil)
		requireError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	})

	w = s.do(t, http.MethodDelete, sessionPath, company, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, sessionPath, company, nil)
	requireError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
}
