package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplychain/procurement/internal/domain/trade"
)

func newCachedOrder(t *testing.T) *trade.PurchaseOrder {
	t.Helper()
	o, err := trade.NewPurchaseOrder(uuid.New(), trade.NewOrderParams{
		PONumber:         "PO-1001",
		BuyerCompanyID:   uuid.New(),
		SellerCompanyID:  uuid.New(),
		ProductID:        uuid.New(),
		Quantity:         decimal.NewFromInt(500),
		Unit:             "kg",
		UnitPrice:        decimal.NewFromFloat(2.5),
		DeliveryDate:     time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		DeliveryLocation: "Port of Santos",
	})
	require.NoError(t, err)
	return o
}

func TestOrderSnapshotCache_PutKeepsNewestVersion(t *testing.T) {
	c := NewOrderSnapshotCache()
	order := newCachedOrder(t)
	order.Version = 3
	require.True(t, c.Put(order))

	late := order.Clone()
	late.Version = 2
	late.Quantity = decimal.NewFromInt(1)
	assert.False(t, c.Put(late))

	got, ok := c.Get(order.ID)
	require.True(t, ok)
	assert.Equal(t, 3, got.Version)
	assert.True(t, got.Quantity.Equal(decimal.NewFromInt(500)))

	same := order.Clone()
	same.Notes = "refetched"
	assert.True(t, c.Put(same))
	got, _ = c.Get(order.ID)
	assert.Equal(t, "refetched", got.Notes)
}

func TestOrderSnapshotCache_ReturnsCopies(t *testing.T) {
	c := NewOrderSnapshotCache()
	order := newCachedOrder(t)
	c.Put(order)

	order.Notes = "mutated after put"
	got, _ := c.Get(order.ID)
	assert.Empty(t, got.Notes)

	got.Notes = "mutated after get"
	again, _ := c.Get(order.ID)
	assert.Empty(t, again.Notes)

	assert.False(t, c.Put(nil))
	_, ok := c.Get(uuid.New())
	assert.False(t, ok)
}

func TestOrderSnapshotCache_Stale(t *testing.T) {
	c := NewOrderSnapshotCache()
	order := newCachedOrder(t)
	c.Put(order)

	assert.False(t, c.IsStale(order.ID))
	c.MarkStale(order.ID)
	assert.True(t, c.IsStale(order.ID))
	c.ClearStale(order.ID)
	assert.False(t, c.IsStale(order.ID))

	c.MarkStale(order.ID)
	c.Invalidate(order.ID)
	assert.False(t, c.IsStale(order.ID))
	assert.Zero(t, c.Len())
}
