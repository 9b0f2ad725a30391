package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBatchGateway is a sandbox inventory service backed by gorm
type GormBatchGateway struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormBatchGateway creates a new GormBatchGateway
func NewGormBatchGateway(db *gorm.DB) *GormBatchGateway {
	return &GormBatchGateway{db: db, now: time.Now}
}

// SetClock replaces the time source used for batch codes
func (g *GormBatchGateway) SetClock(now func() time.Time) {
	g.now = now
}

// GetAvailableBatches returns the unconsumed batches of a product, oldest first.
// Quantity and unit are not filtered here; the planner excludes mismatches itself.
func (g *GormBatchGateway) GetAvailableBatches(ctx context.Context, productID uuid.UUID, requiredQuantity decimal.Decimal, requiredUnit string) ([]inventory.HarvestBatch, error) {
	var rows []models.HarvestBatchModel
	if err := g.db.WithContext(ctx).
		Where("product_id = ? AND consumed = ?", productID, false).
		Order("produced_at ASC, batch_code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	batches := make([]inventory.HarvestBatch, len(rows))
	for i := range rows {
		batches[i] = *rows[i].ToDomain()
	}
	return batches, nil
}

// FindBatch reads one batch by id
func (g *GormBatchGateway) FindBatch(ctx context.Context, id uuid.UUID) (*inventory.HarvestBatch, error) {
	var row models.HarvestBatchModel
	if err := g.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: harvest batch %s", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// DeclareHarvest records a batch with the next free code for the current second
func (g *GormBatchGateway) DeclareHarvest(ctx context.Context, d inventory.HarvestDeclaration) (*inventory.HarvestBatch, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	now := g.now().UTC()

	var batch *inventory.HarvestBatch
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.HarvestBatchModel{}).
			Where("batch_code LIKE ?", inventory.BatchCodePrefixFor(now)+"%").
			Count(&taken).Error; err != nil {
			return err
		}
		b, err := inventory.NewHarvestBatch(d, inventory.NewBatchCode(now, int(taken)+1), now)
		if err != nil {
			return err
		}
		if err := tx.Create(models.HarvestBatchModelFromDomain(b)).Error; err != nil {
			return err
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// SaveBatch stores a batch as given, used to seed the sandbox
func (g *GormBatchGateway) SaveBatch(ctx context.Context, b *inventory.HarvestBatch) error {
	return g.db.WithContext(ctx).Save(models.HarvestBatchModelFromDomain(b)).Error
}

var _ inventory.BatchGateway = (*GormBatchGateway)(nil)
