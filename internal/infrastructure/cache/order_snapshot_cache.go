package cache

import (
	"sync"

	"github.com/google/uuid"
	"github.com/supplychain/procurement/internal/domain/trade"
)

// OrderSnapshotCache keeps the latest known state of each order.
// A snapshot is only replaced by one with an equal or higher version, so a
// late gateway response can never roll an order back.
type OrderSnapshotCache struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*trade.PurchaseOrder
	stale  map[uuid.UUID]struct{}
}

// NewOrderSnapshotCache creates an empty cache
func NewOrderSnapshotCache() *OrderSnapshotCache {
	return &OrderSnapshotCache{
		orders: make(map[uuid.UUID]*trade.PurchaseOrder),
		stale:  make(map[uuid.UUID]struct{}),
	}
}

// Get returns a copy of the cached order
func (c *OrderSnapshotCache) Get(orderID uuid.UUID) (*trade.PurchaseOrder, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[orderID]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Put stores a copy of order unless the cached version is newer.
// It reports whether the snapshot was stored.
func (c *OrderSnapshotCache) Put(order *trade.PurchaseOrder) bool {
	if order == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.orders[order.ID]; ok && cur.Version > order.Version {
		return false
	}
	c.orders[order.ID] = order.Clone()
	return true
}

// Invalidate drops the snapshot and the stale mark for an order
func (c *OrderSnapshotCache) Invalidate(orderID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, orderID)
	delete(c.stale, orderID)
}

// MarkStale flags an order whose state could not be confirmed after a rejection
func (c *OrderSnapshotCache) MarkStale(orderID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale[orderID] = struct{}{}
}

// ClearStale removes the stale flag
func (c *OrderSnapshotCache) ClearStale(orderID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stale, orderID)
}

// IsStale reports whether the order is flagged stale
func (c *OrderSnapshotCache) IsStale(orderID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.stale[orderID]
	return ok
}

// Len returns the number of cached orders
func (c *OrderSnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders)
}
