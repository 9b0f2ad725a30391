package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/supplychain/procurement/internal/infrastructure/config"
	"github.com/supplychain/procurement/internal/infrastructure/logger"
	"github.com/supplychain/procurement/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Database is the gorm handle behind the order and batch gateways.
type Database struct {
	DB *gorm.DB
}

type openOptions struct {
	log      *zap.Logger
	level    gormlogger.LogLevel
	slowness []logger.GormOption
}

// Option adjusts how Open wires gorm.
type Option func(*openOptions)

// WithLogger routes gorm logs to l. Without it gorm logs are discarded.
func WithLogger(l *zap.Logger) Option {
	return func(o *openOptions) { o.log = l }
}

// WithLogLevel sets the gorm log level; the default is warn.
func WithLogLevel(level gormlogger.LogLevel) Option {
	return func(o *openOptions) { o.level = level }
}

// WithSlowQuery logs statements slower than d at warn.
func WithSlowQuery(d time.Duration) Option {
	return func(o *openOptions) { o.slowness = append(o.slowness, logger.SlowAfter(d)) }
}

// Open connects to the configured driver and checks the connection. An empty
// driver means sqlite, and an in-memory sqlite database is held on a single
// connection because each connection to ":memory:" is its own database.
func Open(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := openOptions{log: zap.NewNop(), level: gormlogger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(o.log, o.level, o.slowness...),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", cfg.Driver, err)
	}

	d := &Database{DB: db}
	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	if inMemory(cfg) {
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("persistence: ping %s: %w", cfg.Driver, err)
	}
	return d, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return sqlite.Open(cfg.Path), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("persistence: unsupported database driver %q", cfg.Driver)
	}
}

func inMemory(cfg *config.DatabaseConfig) bool {
	return cfg.Driver != DriverPostgres && (cfg.Path == "" || cfg.Path == ":memory:")
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("persistence: connection pool: %w", err)
	}
	return pool, nil
}

func gatewayModels() []any {
	return []any{&models.PurchaseOrderModel{}, &models.HarvestBatchModel{}}
}

// AutoMigrate creates or updates the gateway tables from the models. Postgres
// deployments use the versioned migrations instead.
func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(gatewayModels()...); err != nil {
		return fmt.Errorf("persistence: auto-migrate: %w", err)
	}
	for _, idx := range models.TenantUniqueIndexes {
		stmt := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (tenant_id, %s)", idx.Name, idx.Table, idx.Column)
		if err := d.DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("persistence: create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

// TableStatus reports whether a gateway table exists
type TableStatus struct {
	Table  string
	Exists bool
}

func (d *Database) SchemaStatus() ([]TableStatus, error) {
	migrator := d.DB.Migrator()
	var status []TableStatus
	for _, model := range gatewayModels() {
		stmt := &gorm.Statement{DB: d.DB}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("persistence: parse %T: %w", model, err)
		}
		status = append(status, TableStatus{Table: stmt.Schema.Table, Exists: migrator.HasTable(model)})
	}
	return status, nil
}

func (d *Database) DropSchema() error {
	if err := d.DB.Migrator().DropTable(gatewayModels()...); err != nil {
		return fmt.Errorf("persistence: drop schema: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

// Ping backs the health endpoint.
func (d *Database) Ping() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Ping()
}

func (d *Database) Stats() (sql.DBStats, error) {
	pool, err := d.pool()
	if err != nil {
		return sql.DBStats{}, err
	}
	return pool.Stats(), nil
}
