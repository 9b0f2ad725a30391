package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// Suggestion actions offered when a plan falls short
const (
	SuggestionProposeQuantityChange = "propose_quantity_change"
	SuggestionDeclareHarvest        = "declare_harvest"
)

// ==================== Input DTOs ====================

// OriginInput carries provenance for a batch or a harvest declaration
type OriginInput struct {
	HarvestDate    *time.Time `json:"harvest_date" yaml:"harvest_date"`
	FarmID         string     `json:"farm_id" yaml:"farm_id" binding:"max=100"`
	FarmName       string     `json:"farm_name" yaml:"farm_name" binding:"max=200"`
	Latitude       *float64   `json:"latitude" yaml:"latitude" binding:"omitempty,latitude"`
	Longitude      *float64   `json:"longitude" yaml:"longitude" binding:"omitempty,longitude"`
	Certifications []string   `json:"certifications" yaml:"certifications"`
}

// ToDomain converts the input to origin data
func (o OriginInput) ToDomain() inventory.OriginData {
	return inventory.OriginData{
		HarvestDate:    o.HarvestDate,
		FarmID:         o.FarmID,
		FarmName:       o.FarmName,
		Latitude:       o.Latitude,
		Longitude:      o.Longitude,
		Certifications: append([]string(nil), o.Certifications...),
	}
}

// BatchInput describes a pool batch supplied by the caller instead of the batch gateway
type BatchInput struct {
	ID         uuid.UUID       `json:"id" yaml:"id"`
	BatchCode  string          `json:"batch_code" yaml:"batch_code" binding:"required,max=50"`
	Quantity   decimal.Decimal `json:"quantity" yaml:"quantity"`
	Unit       string          `json:"unit" yaml:"unit" binding:"required,max=20"`
	ProducedAt time.Time       `json:"produced_at" yaml:"produced_at"`
	Consumed   bool            `json:"consumed" yaml:"consumed"`
	Origin     OriginInput     `json:"origin" yaml:"origin"`
}

// ToDomain converts the input to a batch. A missing id is derived from the batch code
// so the same input always plans the same way.
func (b BatchInput) ToDomain(tenantID, productID uuid.UUID) inventory.HarvestBatch {
	id := b.ID
	if id == uuid.Nil {
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.TrimSpace(b.BatchCode)))
	}
	return inventory.HarvestBatch{
		BaseEntity: shared.BaseEntity{ID: id, CreatedAt: b.ProducedAt, UpdatedAt: b.ProducedAt},
		TenantID:   tenantID,
		BatchCode:  strings.TrimSpace(b.BatchCode),
		ProductID:  productID,
		Quantity:   b.Quantity,
		Unit:       strings.TrimSpace(b.Unit),
		ProducedAt: b.ProducedAt,
		Consumed:   b.Consumed,
		Origin:     b.Origin.ToDomain(),
	}
}

// ToBatches converts a list of batch inputs. Each batch code and each id may
// appear only once in the pool.
func ToBatches(inputs []BatchInput, tenantID, productID uuid.UUID) ([]inventory.HarvestBatch, error) {
	batches := make([]inventory.HarvestBatch, 0, len(inputs))
	codes := make(map[string]struct{}, len(inputs))
	ids := make(map[uuid.UUID]struct{}, len(inputs))
	for _, in := range inputs {
		b := in.ToDomain(tenantID, productID)
		if _, dup := codes[b.BatchCode]; dup {
			return nil, shared.NewValidationErrorf(shared.CodeInvalidInput, "Batch %s appears more than once in the pool", b.BatchCode)
		}
		if _, dup := ids[b.ID]; dup {
			return nil, shared.NewValidationErrorf(shared.CodeInvalidInput, "Batch id %s appears more than once in the pool", b.ID)
		}
		codes[b.BatchCode] = struct{}{}
		ids[b.ID] = struct{}{}
		batches = append(batches, b)
	}
	return batches, nil
}

// PlanRequest asks for an allocation plan. When Batches is empty the pool is
// read from the batch gateway for ProductID.
type PlanRequest struct {
	ProductID        uuid.UUID       `json:"product_id" yaml:"product_id"`
	RequiredQuantity decimal.Decimal `json:"required_quantity" yaml:"required_quantity" binding:"decimal_gt0"`
	RequiredUnit     string          `json:"required_unit" yaml:"required_unit" binding:"required,max=20"`
	Policy           string          `json:"policy" yaml:"policy" binding:"omitempty,oneof=FIFO LIFO ENTIRE_BATCHES_FIRST PROPORTIONAL fifo lifo entire_batches_first proportional"`
	Batches          []BatchInput    `json:"batches" yaml:"batches" binding:"omitempty,dive"`
}

// ToAllocationRequest converts the request to the planner input
func (r PlanRequest) ToAllocationRequest() inventory.AllocationRequest {
	return inventory.AllocationRequest{
		RequiredQuantity: r.RequiredQuantity,
		RequiredUnit:     r.RequiredUnit,
		Policy:           inventory.ParsePolicyType(r.Policy),
	}
}

// OutputInput is a declared transformation output
type OutputInput struct {
	ProductID       uuid.UUID        `json:"product_id" yaml:"product_id"`
	Name            string           `json:"name" yaml:"name" binding:"required,max=200"`
	Quantity        *decimal.Decimal `json:"quantity" yaml:"quantity"`
	YieldPercentage decimal.Decimal  `json:"yield_percentage" yaml:"yield_percentage"`
}

// ToOutputs converts output inputs to transformation outputs
func ToOutputs(inputs []OutputInput) []inventory.TransformationOutput {
	outputs := make([]inventory.TransformationOutput, 0, len(inputs))
	for _, in := range inputs {
		outputs = append(outputs, inventory.TransformationOutput{
			ProductID:       in.ProductID,
			Name:            in.Name,
			Quantity:        in.Quantity,
			YieldPercentage: in.YieldPercentage,
		})
	}
	return outputs
}

// PreviewRequest checks an allocation for mass balance. Records come either from
// the request or from the session named by SessionID.
type PreviewRequest struct {
	SessionID         *uuid.UUID                   `json:"session_id" yaml:"session_id"`
	RequestedQuantity decimal.Decimal              `json:"requested_quantity" yaml:"requested_quantity"`
	Records           []inventory.AllocationRecord `json:"records" yaml:"records"`
	Outputs           []OutputInput                `json:"outputs" yaml:"outputs" binding:"omitempty,dive"`
}

// DeclareHarvestRequest records newly produced inventory
type DeclareHarvestRequest struct {
	ProductID  uuid.UUID       `json:"product_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
	Unit       string          `json:"unit" binding:"required,max=20"`
	ProducedAt *time.Time      `json:"produced_at"`
	Origin     OriginInput     `json:"origin"`
}

// ToDeclaration converts the request to a harvest declaration for the tenant
func (r DeclareHarvestRequest) ToDeclaration(tenantID uuid.UUID) inventory.HarvestDeclaration {
	d := inventory.HarvestDeclaration{
		TenantID:  tenantID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		Unit:      r.Unit,
		Origin:    r.Origin.ToDomain(),
	}
	if r.ProducedAt != nil {
		d.ProducedAt = *r.ProducedAt
	}
	return d
}

// CreateSessionRequest starts a manual allocation session
type CreateSessionRequest struct {
	ProductID        uuid.UUID       `json:"product_id" yaml:"product_id"`
	RequiredQuantity decimal.Decimal `json:"required_quantity" yaml:"required_quantity" binding:"decimal_gt0"`
	RequiredUnit     string          `json:"required_unit" yaml:"required_unit" binding:"required,max=20"`
	Batches          []BatchInput    `json:"batches" yaml:"batches" binding:"omitempty,dive"`
}

// AddPickRequest adds one batch to a session. A zero quantity takes as much as possible.
type AddPickRequest struct {
	BatchID  uuid.UUID       `json:"batch_id" yaml:"batch_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
}

// ==================== Response DTOs ====================

// BatchResponse represents a harvest batch in API responses
type BatchResponse struct {
	ID         uuid.UUID            `json:"id" yaml:"id"`
	BatchCode  string               `json:"batch_code" yaml:"batch_code"`
	ProductID  uuid.UUID            `json:"product_id" yaml:"product_id"`
	Quantity   decimal.Decimal      `json:"quantity" yaml:"quantity"`
	Unit       string               `json:"unit" yaml:"unit"`
	ProducedAt time.Time            `json:"produced_at" yaml:"produced_at"`
	Consumed   bool                 `json:"consumed" yaml:"consumed"`
	Origin     inventory.OriginData `json:"origin" yaml:"origin"`
	CreatedAt  time.Time            `json:"created_at" yaml:"created_at"`
}

// ShortfallSuggestion is a follow-up that would close an allocation gap
type ShortfallSuggestion struct {
	Action   string          `json:"action" yaml:"action"`
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
	Unit     string          `json:"unit" yaml:"unit"`
	Message  string          `json:"message" yaml:"message"`
}

// PlanResponse is an allocation plan with shortfall guidance
type PlanResponse struct {
	Plan         inventory.AllocationPlan `json:"plan" yaml:"plan"`
	PartialCount int                      `json:"partial_count" yaml:"partial_count"`
	Unallocated  []BatchResponse          `json:"unallocated" yaml:"unallocated"`
	Suggestions  []ShortfallSuggestion    `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// PolicyComparison summarizes one policy's plan for the same pool
type PolicyComparison struct {
	Policy         string                   `json:"policy" yaml:"policy"`
	Description    string                   `json:"description" yaml:"description"`
	TotalAllocated decimal.Decimal          `json:"total_allocated" yaml:"total_allocated"`
	Remaining      decimal.Decimal          `json:"remaining" yaml:"remaining"`
	CanFulfill     bool                     `json:"can_fulfill" yaml:"can_fulfill"`
	RecordCount    int                      `json:"record_count" yaml:"record_count"`
	PartialCount   int                      `json:"partial_count" yaml:"partial_count"`
	Plan           inventory.AllocationPlan `json:"plan" yaml:"plan"`
}

// CompareResponse holds one comparison per registered policy
type CompareResponse struct {
	RequiredQuantity decimal.Decimal    `json:"required_quantity" yaml:"required_quantity"`
	RequiredUnit     string             `json:"required_unit" yaml:"required_unit"`
	DefaultPolicy    string             `json:"default_policy" yaml:"default_policy"`
	Policies         []PolicyComparison `json:"policies" yaml:"policies"`
}

// SessionResponse represents a manual allocation session
type SessionResponse struct {
	ID               uuid.UUID                    `json:"id" yaml:"id"`
	ProductID        uuid.UUID                    `json:"product_id" yaml:"product_id"`
	RequiredQuantity decimal.Decimal              `json:"required_quantity" yaml:"required_quantity"`
	RequiredUnit     string                       `json:"required_unit" yaml:"required_unit"`
	Records          []inventory.AllocationRecord `json:"records" yaml:"records"`
	TotalAllocated   decimal.Decimal              `json:"total_allocated" yaml:"total_allocated"`
	Remaining        decimal.Decimal              `json:"remaining" yaml:"remaining"`
	CanFulfill       bool                         `json:"can_fulfill" yaml:"can_fulfill"`
	Available        []BatchResponse              `json:"available" yaml:"available"`
	CreatedAt        time.Time                    `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at" yaml:"updated_at"`
}

// ToBatchResponse converts a domain HarvestBatch to BatchResponse
func ToBatchResponse(b inventory.HarvestBatch) BatchResponse {
	return BatchResponse{
		ID:         b.ID,
		BatchCode:  b.BatchCode,
		ProductID:  b.ProductID,
		Quantity:   b.Quantity,
		Unit:       b.Unit,
		ProducedAt: b.ProducedAt,
		Consumed:   b.Consumed,
		Origin:     b.Origin,
		CreatedAt:  b.CreatedAt,
	}
}

// ToBatchResponses converts a list of batches
func ToBatchResponses(batches []inventory.HarvestBatch) []BatchResponse {
	responses := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		responses = append(responses, ToBatchResponse(b))
	}
	return responses
}

// ShortfallSuggestions returns follow-ups for a plan that cannot fulfill.
// A fulfilled plan has none.
func ShortfallSuggestions(plan inventory.AllocationPlan) []ShortfallSuggestion {
	if plan.CanFulfill {
		return nil
	}
	suggestions := make([]ShortfallSuggestion, 0, 2)
	if plan.TotalAllocated.IsPositive() {
		suggestions = append(suggestions, ShortfallSuggestion{
			Action:   SuggestionProposeQuantityChange,
			Quantity: plan.TotalAllocated,
			Unit:     plan.RequiredUnit,
			Message:  "Propose reducing the order quantity to " + plan.TotalAllocated.String() + " " + plan.RequiredUnit,
		})
	}
	suggestions = append(suggestions, ShortfallSuggestion{
		Action:   SuggestionDeclareHarvest,
		Quantity: plan.Remaining,
		Unit:     plan.RequiredUnit,
		Message:  "Declare a harvest of at least " + plan.Remaining.String() + " " + plan.RequiredUnit,
	})
	return suggestions
}
