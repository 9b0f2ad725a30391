package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add amendment index", "add_amendment_index"},
		{"Add-Batch-Origin", "add_batch_origin"},
		{"ADD_BATCH_ORIGIN", "add_batch_origin"},
		{"add__batch__origin", "add_batch_origin"},
		{"Add Lots 123", "add_lots_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sql")
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

	mf, err := CreateMigration(dir, "Add amendment index", now)
	require.NoError(t, err)

	assert.Equal(t, "20261015093000", mf.Version)
	assert.Equal(t, "add_amendment_index", mf.Name)
	assert.Equal(t, filepath.Join(dir, "20261015093000_add_amendment_index.up.sql"), mf.UpPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: add_amendment_index\n")
	assert.Contains(t, string(up), "2026-10-15T09:30:00Z")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	_, err = CreateMigration(dir, "add amendment index", now)
	assert.Error(t, err, "existing files are never overwritten")
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", time.Now())
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"20260301000100_b.up.sql":   {},
		"20260301000100_b.down.sql": {},
		"20260301000000_a.up.sql":   {},
		"20260301000000_a.down.sql": {},
		"README.md":                 {},
		"nested/x.up.sql":           {},
	}

	names, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260301000000_a", "20260301000100_b"}, names)
}
