package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/domain/trade"
	"github.com/supplychain/procurement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderGateway is a sandbox order service backed by gorm.
// It re-validates every transition against the stored order and saves with an optimistic version check.
type GormOrderGateway struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormOrderGateway creates a new GormOrderGateway
func NewGormOrderGateway(db *gorm.DB) *GormOrderGateway {
	return &GormOrderGateway{db: db, now: time.Now}
}

// SetClock replaces the time source used to stamp transitions
func (g *GormOrderGateway) SetClock(now func() time.Time) {
	g.now = now
}

// CreateOrder stores a newly placed order. PO numbers are unique per tenant.
func (g *GormOrderGateway) CreateOrder(ctx context.Context, order *trade.PurchaseOrder) error {
	var count int64
	if err := g.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}).
		Where("tenant_id = ? AND po_number = ?", order.TenantID, order.PONumber).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: purchase order %s", shared.ErrAlreadyExists, order.PONumber)
	}
	return g.db.WithContext(ctx).Create(models.PurchaseOrderModelFromDomain(order)).Error
}

// FetchOrder reads the current order state
func (g *GormOrderGateway) FetchOrder(ctx context.Context, orderID uuid.UUID) (*trade.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := g.db.WithContext(ctx).First(&model, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: purchase order %s", shared.ErrNotFound, orderID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ProposeAmendment implements trade.OrderGateway
func (g *GormOrderGateway) ProposeAmendment(ctx context.Context, sub trade.Submission, t trade.ProposeAmendment) (*trade.PurchaseOrder, error) {
	return g.apply(ctx, sub, t)
}

// ApproveAmendment implements trade.OrderGateway
func (g *GormOrderGateway) ApproveAmendment(ctx context.Context, sub trade.Submission, t trade.ApproveAmendment) (*trade.PurchaseOrder, error) {
	return g.apply(ctx, sub, t)
}

// AcceptOrder implements trade.OrderGateway
func (g *GormOrderGateway) AcceptOrder(ctx context.Context, sub trade.Submission, t trade.AcceptOrder) (*trade.PurchaseOrder, error) {
	return g.apply(ctx, sub, t)
}

// RejectOrder implements trade.OrderGateway
func (g *GormOrderGateway) RejectOrder(ctx context.Context, sub trade.Submission, t trade.RejectOrder) (*trade.PurchaseOrder, error) {
	return g.apply(ctx, sub, t)
}

// EditOrder implements trade.OrderGateway
func (g *GormOrderGateway) EditOrder(ctx context.Context, sub trade.Submission, t trade.EditOrder) (*trade.PurchaseOrder, error) {
	return g.apply(ctx, sub, t)
}

func (g *GormOrderGateway) apply(ctx context.Context, sub trade.Submission, t trade.Transition) (*trade.PurchaseOrder, error) {
	var updated *trade.PurchaseOrder
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.PurchaseOrderModel
		if err := tx.First(&model, "id = ?", sub.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: purchase order %s", shared.ErrNotFound, sub.OrderID)
			}
			return err
		}
		if sub.TenantID != uuid.Nil && model.TenantID != sub.TenantID {
			return fmt.Errorf("%w: purchase order %s", shared.ErrNotFound, sub.OrderID)
		}
		if model.Version != sub.ExpectedVersion {
			return concurrentModification(model.PONumber)
		}

		next, _, err := trade.ApplyTransition(model.ToDomain(), sub.ViewerCompanyID, t, g.now().UTC())
		if err != nil {
			return rejectionFrom(err)
		}
		next.ClearDomainEvents()

		result := tx.Model(&models.PurchaseOrderModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version).
			Select("*").
			Omit("id", "created_at", "tenant_id").
			Updates(models.PurchaseOrderModelFromDomain(next))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return concurrentModification(model.PONumber)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func concurrentModification(poNumber string) error {
	return shared.NewRemoteRejection(shared.CodeConcurrentMod,
		"Purchase order "+poNumber+" has been modified by another user")
}

// rejectionFrom reports a refused transition the way a remote order service would
func rejectionFrom(err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return shared.NewRemoteRejection(domainErr.Code, domainErr.Message)
	}
	return shared.NewRemoteRejection(shared.CodeRemoteRejected, err.Error())
}

var _ trade.OrderGateway = (*GormOrderGateway)(nil)
