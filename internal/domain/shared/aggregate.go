package shared

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and audit stamps every stored record carries.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntityAt assigns a fresh id created and updated at now.
func NewBaseEntityAt(now time.Time) BaseEntity {
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// BaseAggregateRoot adds the optimistic-lock version and the events raised
// since the aggregate was last loaded. New roots start at version 1.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	raised  []DomainEvent
}

func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

func (a *BaseAggregateRoot) AddDomainEvent(events ...DomainEvent) {
	a.raised = append(a.raised, events...)
}

// GetDomainEvents returns a copy of the raised events in the order they were added.
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return slices.Clone(a.raised)
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.raised = nil
}

// CloneRoot copies the root; the copy's event list is independent of the receiver's.
func (a BaseAggregateRoot) CloneRoot() BaseAggregateRoot {
	a.raised = slices.Clone(a.raised)
	return a
}

// TenantAggregateRoot scopes an aggregate to the tenant that owns it.
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID uuid.UUID
}

func NewTenantAggregateRoot(tenantID uuid.UUID, now time.Time) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseAggregateRoot: BaseAggregateRoot{BaseEntity: NewBaseEntityAt(now), Version: 1},
		TenantID:          tenantID,
	}
}
