package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplychain/procurement/internal/domain/trade"
)

// TenantUniqueIndexes lists the (tenant_id, column) unique indexes the embedded
// TenantRow cannot express through struct tags.
var TenantUniqueIndexes = []TenantUniqueIndex{
	{Name: "idx_purchase_orders_tenant_po_number", Table: "purchase_orders", Column: "po_number"},
}

// TenantUniqueIndex makes Column unique within a tenant
type TenantUniqueIndex struct {
	Name   string
	Table  string
	Column string
}

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
// The amendment sub-record is flattened into amendment_* columns. PO numbers
// are unique per tenant; the composite index is declared in TenantUniqueIndexes.
type PurchaseOrderModel struct {
	TenantRow
	PONumber         string            `gorm:"column:po_number;type:varchar(50);not null"`
	BuyerCompanyID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	SellerCompanyID  uuid.UUID         `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID         `gorm:"type:uuid;index"`
	Quantity         decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Unit             string            `gorm:"type:varchar(20);not null"`
	UnitPrice        decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount      decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	DeliveryDate     time.Time         `gorm:"not null"`
	DeliveryLocation string            `gorm:"type:varchar(500)"`
	Status           trade.OrderStatus `gorm:"type:varchar(30);not null;default:'PENDING';index"`
	Notes            string            `gorm:"type:text"`
	DeclineReason    string            `gorm:"type:varchar(500)"`
	ConfirmedAt      *time.Time
	DeclinedAt       *time.Time

	AmendmentStatus           trade.AmendmentStatus `gorm:"type:varchar(20);not null;default:'none'"`
	AmendmentType             trade.AmendmentType   `gorm:"type:varchar(30)"`
	AmendmentQuantity         *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	AmendmentQuantityUnit     string                `gorm:"type:varchar(20)"`
	AmendmentDeliveryDate     *time.Time
	AmendmentDeliveryLocation *string               `gorm:"type:varchar(500)"`
	AmendmentReason           string                `gorm:"type:text"`
	AmendmentOrigin           trade.AmendmentOrigin `gorm:"type:varchar(20)"`
	AmendmentCount            int                   `gorm:"not null;default:0"`
	LastAmendedAt             *time.Time
	AmendmentBuyerNotes       string                `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder
func (m *PurchaseOrderModel) ToDomain() *trade.PurchaseOrder {
	order := &trade.PurchaseOrder{
		PONumber:         m.PONumber,
		BuyerCompanyID:   m.BuyerCompanyID,
		SellerCompanyID:  m.SellerCompanyID,
		ProductID:        m.ProductID,
		Quantity:         m.Quantity,
		Unit:             m.Unit,
		UnitPrice:        m.UnitPrice,
		TotalAmount:      m.TotalAmount,
		DeliveryDate:     m.DeliveryDate.UTC(),
		DeliveryLocation: m.DeliveryLocation,
		Status:           m.Status,
		Notes:            m.Notes,
		DeclineReason:    m.DeclineReason,
		ConfirmedAt:      m.ConfirmedAt,
		DeclinedAt:       m.DeclinedAt,
		Amendment: trade.Amendment{
			Status:                   m.AmendmentStatus,
			Type:                     m.AmendmentType,
			ProposedQuantity:         m.AmendmentQuantity,
			ProposedQuantityUnit:     m.AmendmentQuantityUnit,
			ProposedDeliveryDate:     m.AmendmentDeliveryDate,
			ProposedDeliveryLocation: m.AmendmentDeliveryLocation,
			Reason:                   m.AmendmentReason,
			Origin:                   m.AmendmentOrigin,
			Count:                    m.AmendmentCount,
			LastAmendedAt:            m.LastAmendedAt,
			BuyerNotes:               m.AmendmentBuyerNotes,
		},
	}
	order.TenantAggregateRoot = m.TenantRow.root()
	if order.Amendment.Status == "" {
		order.Amendment.Status = trade.AmendmentStatusNone
	}
	return order
}

// FromDomain populates the persistence model from a domain PurchaseOrder
func (m *PurchaseOrderModel) FromDomain(o *trade.PurchaseOrder) {
	m.TenantRow = tenantRowOf(o.TenantAggregateRoot)
	m.PONumber = o.PONumber
	m.BuyerCompanyID = o.BuyerCompanyID
	m.SellerCompanyID = o.SellerCompanyID
	m.ProductID = o.ProductID
	m.Quantity = o.Quantity
	m.Unit = o.Unit
	m.UnitPrice = o.UnitPrice
	m.TotalAmount = o.TotalAmount
	m.DeliveryDate = o.DeliveryDate
	m.DeliveryLocation = o.DeliveryLocation
	m.Status = o.Status
	m.Notes = o.Notes
	m.DeclineReason = o.DeclineReason
	m.ConfirmedAt = o.ConfirmedAt
	m.DeclinedAt = o.DeclinedAt

	a := o.Amendment
	m.AmendmentStatus = a.Status
	m.AmendmentType = a.Type
	m.AmendmentQuantity = a.ProposedQuantity
	m.AmendmentQuantityUnit = a.ProposedQuantityUnit
	m.AmendmentDeliveryDate = a.ProposedDeliveryDate
	m.AmendmentDeliveryLocation = a.ProposedDeliveryLocation
	m.AmendmentReason = a.Reason
	m.AmendmentOrigin = a.Origin
	m.AmendmentCount = a.Count
	m.LastAmendedAt = a.LastAmendedAt
	m.AmendmentBuyerNotes = a.BuyerNotes
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain PurchaseOrder
func PurchaseOrderModelFromDomain(o *trade.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}
