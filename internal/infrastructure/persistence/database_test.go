package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplychain/procurement/internal/domain/shared"
	"github.com/supplychain/procurement/internal/infrastructure/config"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDatabase opens a migrated in-memory sqlite database
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := Open(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newMockDatabase creates a Database backed by sqlmock through the postgres dialector
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestOpen(t *testing.T) {
	t.Run("sqlite in memory", func(t *testing.T) {
		db := newTestDatabase(t)
		assert.NoError(t, db.Ping())

		stats, err := db.Stats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.MaxOpenConnections)
	})

	t.Run("empty driver defaults to sqlite", func(t *testing.T) {
		db, err := Open(&config.DatabaseConfig{}, WithLogLevel(gormlogger.Silent), WithSlowQuery(time.Second))
		require.NoError(t, err)
		defer db.Close()
		assert.Equal(t, "sqlite", db.DB.Dialector.Name())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, WithLogger(zaptest.NewLogger(t)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}

func TestGormOrderGateway_FetchOrderSQL(t *testing.T) {
	t.Run("missing row maps to not found", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "purchase_orders" WHERE id = \$1`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewGormOrderGateway(db.DB).FetchOrder(context.Background(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure passes through", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "purchase_orders"`).
			WillReturnError(errors.New("connection reset"))

		_, err := NewGormOrderGateway(db.DB).FetchOrder(context.Background(), uuid.New())
		require.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrNotFound)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectPing()

	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_SchemaStatus(t *testing.T) {
	db, err := Open(&config.DatabaseConfig{Driver: DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	status, err := db.SchemaStatus()
	require.NoError(t, err)
	assert.Equal(t, []TableStatus{
		{Table: "purchase_orders", Exists: false},
		{Table: "harvest_batches", Exists: false},
	}, status)

	require.NoError(t, db.AutoMigrate())
	status, err = db.SchemaStatus()
	require.NoError(t, err)
	for _, s := range status {
		assert.True(t, s.Exists, s.Table)
	}

	require.NoError(t, db.DropSchema())
	status, err = db.SchemaStatus()
	require.NoError(t, err)
	for _, s := range status {
		assert.False(t, s.Exists, s.Table)
	}
}
