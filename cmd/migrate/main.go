package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/supplychain/procurement/internal/infrastructure/config"
	"github.com/supplychain/procurement/internal/infrastructure/logger"
	"github.com/supplychain/procurement/internal/infrastructure/migration"
	"github.com/supplychain/procurement/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath    string
		logLevel      string
		migrationsDir string
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: ./config.toml)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&migrationsDir, "dir", "internal/infrastructure/migration/sql", "Directory for new migration files")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if command == "create" {
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name>")
		}
		mf, err := migration.CreateMigration(migrationsDir, args[1], time.Now())
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Created migration",
			zap.String("version", mf.Version),
			zap.String("up", mf.UpPath),
			zap.String("down", mf.DownPath),
		)
		return
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	log.Info("Schema tool started",
		zap.String("command", command),
		zap.String("driver", cfg.Database.Driver),
	)

	versioned := cfg.Database.Driver == persistence.DriverPostgres

	switch command {
	case "up":
		if versioned {
			withMigrator(cfg, log, func(m *migration.Migrator) error { return m.Up() })
			return
		}
		withDatabase(cfg, log, logLevel, func(db *persistence.Database) error { return db.AutoMigrate() })
		log.Info("Gateway schema is up to date")

	case "down":
		requireVersioned(versioned, command, log)
		requireConfirm(args, "down", log)
		withMigrator(cfg, log, func(m *migration.Migrator) error { return m.Down() })

	case "steps":
		requireVersioned(versioned, command, log)
		n := intArg(args, "steps", log)
		withMigrator(cfg, log, func(m *migration.Migrator) error { return m.Steps(n) })

	case "force":
		requireVersioned(versioned, command, log)
		v := intArg(args, "force", log)
		withMigrator(cfg, log, func(m *migration.Migrator) error { return m.Force(v) })

	case "version":
		requireVersioned(versioned, command, log)
		withMigrator(cfg, log, func(m *migration.Migrator) error {
			version, dirty, err := m.Version()
			if err != nil {
				return err
			}
			log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
			return nil
		})

	case "status":
		withDatabase(cfg, log, logLevel, func(db *persistence.Database) error {
			status, err := db.SchemaStatus()
			if err != nil {
				return err
			}
			for _, s := range status {
				log.Info("Table", zap.String("name", s.Table), zap.Bool("exists", s.Exists))
			}
			return nil
		})

	case "drop":
		requireConfirm(args, "drop", log)
		log.Warn("Dropping gateway tables")
		withDatabase(cfg, log, logLevel, func(db *persistence.Database) error { return db.DropSchema() })

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func withMigrator(cfg *config.Config, log *zap.Logger, fn func(*migration.Migrator) error) {
	m, err := migration.Open(cfg.Database.DSN(), log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	runErr := fn(m)
	if err := m.Close(); err != nil {
		log.Warn("Failed to close migrator", zap.Error(err))
	}
	if runErr != nil {
		log.Fatal("Migration failed", zap.Error(runErr))
	}
}

func withDatabase(cfg *config.Config, log *zap.Logger, logLevel string, fn func(*persistence.Database) error) {
	db, err := persistence.Open(&cfg.Database, persistence.WithLogger(log), persistence.WithLogLevel(logger.MapGormLogLevel(logLevel)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	runErr := fn(db)
	_ = db.Close()
	if runErr != nil {
		log.Fatal("Schema command failed", zap.Error(runErr))
	}
}

func requireVersioned(versioned bool, command string, log *zap.Logger) {
	if !versioned {
		log.Fatal("Command needs the postgres driver; sqlite schemas are managed with 'up' and 'drop'",
			zap.String("command", command))
	}
}

func requireConfirm(args []string, command string, log *zap.Logger) {
	for _, arg := range args[1:] {
		if arg == "-confirm" || arg == "--confirm" {
			return
		}
	}
	log.Fatal(fmt.Sprintf("%s cancelled. Use 'migrate %s -confirm' to confirm.", command, command))
}

func intArg(args []string, command string, log *zap.Logger) int {
	if len(args) < 2 {
		log.Fatal(fmt.Sprintf("Argument required. Usage: migrate %s <n>", command))
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatal("Invalid number", zap.String("value", args[1]), zap.Error(err))
	}
	return n
}

func printUsage() {
	fmt.Println(`Procurement gateway schema tool

Usage:
  migrate [flags] <command> [args]

Commands:
  up              Apply pending migrations (postgres) or auto-migrate (sqlite)
  down -confirm   Roll back every migration (postgres, DANGEROUS)
  steps N         Apply N migrations, negative N rolls back (postgres)
  force V         Set the migration version without running it (postgres)
  version         Show the applied migration version (postgres)
  status          Show which gateway tables exist
  drop -confirm   Drop the gateway tables (DANGEROUS)
  create NAME     Create a new up/down migration pair in -dir

Flags:
  -config string      Path to config file (default: ./config.toml)
  -log-level string   Log level: debug, info, warn, error (default: info)
  -dir string         Directory for new migrations (default: internal/infrastructure/migration/sql)

Environment Variables:
  PROCUREMENT_DATABASE_DRIVER, PROCUREMENT_DATABASE_PATH, PROCUREMENT_DATABASE_HOST, ...`)
}
