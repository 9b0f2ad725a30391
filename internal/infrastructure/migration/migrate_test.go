package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations_ArePaired(t *testing.T) {
	names, err := ListMigrations(Files())
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		_, err := fs.Stat(Files(), name+".down.sql")
		assert.NoError(t, err, "missing rollback for %s", name)
	}
}

func TestEmbeddedMigrations_CreateGatewayTables(t *testing.T) {
	var all strings.Builder
	names, err := ListMigrations(Files())
	require.NoError(t, err)
	for _, name := range names {
		body, err := fs.ReadFile(Files(), name+".up.sql")
		require.NoError(t, err)
		all.Write(body)
	}

	for _, table := range []string{"purchase_orders", "harvest_batches"} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, all.String(), "idx_purchase_orders_tenant_po_number ON purchase_orders (tenant_id, po_number)")
	assert.Contains(t, all.String(), "idx_harvest_batches_batch_code")
}

func TestEmbeddedMigrations_ParseAsSource(t *testing.T) {
	src, err := iofs.New(embedded, scriptDir)
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(20260301000000), first)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(20260301000100), next)
}
