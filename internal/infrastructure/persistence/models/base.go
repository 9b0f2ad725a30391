package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// Row holds the identity and audit columns shared by every table.
type Row struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func rowOf(e shared.BaseEntity) Row {
	return Row{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}

func (r Row) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// TenantRow adds the owning tenant and the version compared on every update.
type TenantRow struct {
	Row
	Version  int       `gorm:"not null;default:0"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

func tenantRowOf(root shared.TenantAggregateRoot) TenantRow {
	return TenantRow{Row: rowOf(root.BaseEntity), Version: root.Version, TenantID: root.TenantID}
}

// root rebuilds the aggregate root. Raised events are never stored, so the result has none.
func (r TenantRow) root() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{BaseEntity: r.entity(), Version: r.Version},
		TenantID:          r.TenantID,
	}
}
