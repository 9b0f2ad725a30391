package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/inventory"
)

// HarvestBatchModel is the persistence model for HarvestBatch
type HarvestBatchModel struct {
	Row
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchCode      string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_harvest_batch_product"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Unit           string          `gorm:"type:varchar(20);not null"`
	ProducedAt     time.Time       `gorm:"not null;index"`
	Consumed       bool            `gorm:"not null;default:false;index:idx_harvest_batch_product"`
	HarvestDate    *time.Time
	FarmID         string          `gorm:"type:varchar(100)"`
	FarmName       string          `gorm:"type:varchar(200)"`
	Latitude       *float64        `gorm:"type:decimal(9,6)"`
	Longitude      *float64        `gorm:"type:decimal(9,6)"`
	Certifications []string        `gorm:"type:text;serializer:json"`
}

// TableName returns the table name for GORM
func (HarvestBatchModel) TableName() string {
	return "harvest_batches"
}

// ToDomain converts the persistence model to a domain HarvestBatch
func (m *HarvestBatchModel) ToDomain() *inventory.HarvestBatch {
	return &inventory.HarvestBatch{
		BaseEntity: m.Row.entity(),
		TenantID:   m.TenantID,
		BatchCode:  m.BatchCode,
		ProductID:  m.ProductID,
		Quantity:   m.Quantity,
		Unit:       m.Unit,
		ProducedAt: m.ProducedAt.UTC(),
		Consumed:   m.Consumed,
		Origin: inventory.OriginData{
			HarvestDate:    m.HarvestDate,
			FarmID:         m.FarmID,
			FarmName:       m.FarmName,
			Latitude:       m.Latitude,
			Longitude:      m.Longitude,
			Certifications: m.Certifications,
		},
	}
}

// FromDomain populates the persistence model from a domain HarvestBatch
func (m *HarvestBatchModel) FromDomain(b *inventory.HarvestBatch) {
	m.Row = rowOf(b.BaseEntity)
	m.TenantID = b.TenantID
	m.BatchCode = b.BatchCode
	m.ProductID = b.ProductID
	m.Quantity = b.Quantity
	m.Unit = b.Unit
	m.ProducedAt = b.ProducedAt
	m.Consumed = b.Consumed
	m.HarvestDate = b.Origin.HarvestDate
	m.FarmID = b.Origin.FarmID
	m.FarmName = b.Origin.FarmName
	m.Latitude = b.Origin.Latitude
	m.Longitude = b.Origin.Longitude
	m.Certifications = b.Origin.Certifications
}

// HarvestBatchModelFromDomain creates a new persistence model from a domain HarvestBatch
func HarvestBatchModelFromDomain(b *inventory.HarvestBatch) *HarvestBatchModel {
	m := &HarvestBatchModel{}
	m.FromDomain(b)
	return m
}
