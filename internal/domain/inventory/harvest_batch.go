package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/shared"
)

// OriginData is the provenance of a harvest batch. It is displayed and audited, never planned on.
type OriginData struct {
	HarvestDate    *time.Time `json:"harvest_date,omitempty"`
	FarmID         string     `json:"farm_id,omitempty"`
	FarmName       string     `json:"farm_name,omitempty"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	Certifications []string   `json:"certifications,omitempty"`
}

// HasCertification reports whether the origin carries the named certification (case-insensitive)
func (o OriginData) HasCertification(name string) bool {
	for _, c := range o.Certifications {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

func (o OriginData) clone() OriginData {
	c := o
	if o.HarvestDate != nil {
		d := *o.HarvestDate
		c.HarvestDate = &d
	}
	if o.Latitude != nil {
		v := *o.Latitude
		c.Latitude = &v
	}
	if o.Longitude != nil {
		v := *o.Longitude
		c.Longitude = &v
	}
	if o.Certifications != nil {
		c.Certifications = append([]string(nil), o.Certifications...)
	}
	return c
}

// HarvestBatch is a discrete, dated unit of produced inventory.
// The planner treats Quantity as fully available unless Consumed is set.
type HarvestBatch struct {
	shared.BaseEntity
	TenantID   uuid.UUID
	BatchCode  string
	ProductID  uuid.UUID
	Quantity   decimal.Decimal
	Unit       string
	ProducedAt time.Time
	Consumed   bool
	Origin     OriginData
}

// EffectiveDate is the production date, falling back to the creation date when unknown
func (b HarvestBatch) EffectiveDate() time.Time {
	if b.ProducedAt.IsZero() {
		return b.CreatedAt
	}
	return b.ProducedAt
}

// Clone returns a copy that shares no mutable state with the receiver
func (b HarvestBatch) Clone() HarvestBatch {
	b.Origin = b.Origin.clone()
	return b
}

// HarvestDeclaration is the payload for recording newly produced inventory
type HarvestDeclaration struct {
	TenantID   uuid.UUID
	ProductID  uuid.UUID
	Quantity   decimal.Decimal
	Unit       string
	ProducedAt time.Time
	Origin     OriginData
}

// Validate checks the declaration before it is sent anywhere
func (d HarvestDeclaration) Validate() error {
	if d.ProductID == uuid.Nil {
		return shared.NewValidationError(shared.CodeMissingField, "Product is required")
	}
	if !d.Quantity.IsPositive() {
		return shared.NewValidationError(shared.CodeInvalidQuantity, "Harvest quantity must be greater than zero")
	}
	if normalizeUnit(d.Unit) == "" {
		return shared.NewValidationError(shared.CodeMissingField, "Unit cannot be empty")
	}
	if d.Origin.Latitude != nil && (*d.Origin.Latitude < -90 || *d.Origin.Latitude > 90) {
		return shared.NewValidationError(shared.CodeInvalidInput, "Latitude must be between -90 and 90")
	}
	if d.Origin.Longitude != nil && (*d.Origin.Longitude < -180 || *d.Origin.Longitude > 180) {
		return shared.NewValidationError(shared.CodeInvalidInput, "Longitude must be between -180 and 180")
	}
	return nil
}

// NewHarvestBatch creates a batch from a validated declaration and an assigned code
func NewHarvestBatch(d HarvestDeclaration, code string, now time.Time) (*HarvestBatch, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewValidationError(shared.CodeMissingField, "Batch code cannot be empty")
	}
	producedAt := d.ProducedAt
	if producedAt.IsZero() {
		producedAt = now
	}
	return &HarvestBatch{
		BaseEntity: shared.NewBaseEntityAt(now),
		TenantID:   d.TenantID,
		BatchCode:  code,
		ProductID:  d.ProductID,
		Quantity:   d.Quantity,
		Unit:       strings.TrimSpace(d.Unit),
		ProducedAt: producedAt,
		Origin:     d.Origin.clone(),
	}, nil
}

// normalizeUnit trims and lower-cases a unit for comparison. Units are never converted.
func normalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// SameUnit reports whether two units are equal ignoring case and surrounding space
func SameUnit(a, b string) bool {
	return normalizeUnit(a) == normalizeUnit(b)
}
