package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchGateway is the authoritative inventory service
type BatchGateway interface {
	// GetAvailableBatches returns the candidate pool for a product.
	// The quantity and unit are hints; the planner still filters by unit.
	GetAvailableBatches(ctx context.Context, productID uuid.UUID, requiredQuantity decimal.Decimal, requiredUnit string) ([]HarvestBatch, error)

	// DeclareHarvest records newly produced inventory and returns the created batch
	DeclareHarvest(ctx context.Context, d HarvestDeclaration) (*HarvestBatch, error)
}
