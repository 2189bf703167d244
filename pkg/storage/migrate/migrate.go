// Package migrate brings a datastore schema to a given version.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/ontologymarket/catalog/assets"
	"github.com/ontologymarket/catalog/pkg/logger"
	"github.com/ontologymarket/catalog/pkg/storage/neo4j"
	"github.com/ontologymarket/catalog/pkg/storage/sqlite"
)

// MigrationConfig contains the configuration needed for running migrations.
type MigrationConfig struct {
	Engine   string
	URI      string
	Username string
	Password string

	// TargetVersion is the schema version to migrate up or down to. Zero applies every
	// migration.
	TargetVersion uint
	Timeout       time.Duration
	Verbose       bool
	Logger        logger.Logger
}

type sqlEngine struct {
	driver     string
	dialect    string
	dir        string
	prepareURI func(cfg MigrationConfig) (string, error)
}

var sqlEngines = map[string]sqlEngine{
	"sqlite": {
		driver:  "sqlite",
		dialect: "sqlite3",
		dir:     assets.SqliteMigrationDir,
		prepareURI: func(cfg MigrationConfig) (string, error) {
			return sqlite.PrepareDSN(cfg.URI)
		},
	},
	"postgres": {
		driver:     "pgx",
		dialect:    "postgres",
		dir:        assets.PostgresMigrationDir,
		prepareURI: func(cfg MigrationConfig) (string, error) { return cfg.URI, nil },
	},
	"mysql": {
		driver:  "mysql",
		dialect: "mysql",
		dir:     assets.MySQLMigrationDir,
		prepareURI: func(cfg MigrationConfig) (string, error) {
			if cfg.Username == "" && cfg.Password == "" {
				return cfg.URI, nil
			}
			dsnCfg, err := mysql.ParseDSN(cfg.URI)
			if err != nil {
				return "", fmt.Errorf("parse mysql connection dsn: %w", err)
			}
			if cfg.Username != "" {
				dsnCfg.User = cfg.Username
			}
			if cfg.Password != "" {
				dsnCfg.Passwd = cfg.Password
			}
			return dsnCfg.FormatDSN(), nil
		},
	},
}

// RunMigrations applies the schema of cfg.Engine. The memory engine has no schema, and
// the neo4j engine has constraints and indexes instead of versions.
func RunMigrations(cfg MigrationConfig) error {
	ctx := context.Background()

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoopLogger()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Minute
	}

	switch cfg.Engine {
	case "memory":
		cfg.Logger.Info("no migrations to run for `memory` datastore")
		return nil
	case "neo4j":
		return neo4j.Migrate(ctx, cfg.URI, cfg.Username, cfg.Password, cfg.Timeout)
	}

	engine, ok := sqlEngines[cfg.Engine]
	if !ok {
		return fmt.Errorf("unknown datastore engine type: %s", cfg.Engine)
	}

	goose.SetLogger(goose.NopLogger())
	goose.SetVerbose(cfg.Verbose)
	goose.SetBaseFS(assets.EmbedMigrations)

	if err := goose.SetDialect(engine.dialect); err != nil {
		return fmt.Errorf("failed to set %s dialect: %w", cfg.Engine, err)
	}

	uri, err := engine.prepareURI(cfg)
	if err != nil {
		return err
	}

	db, err := sql.Open(engine.driver, uri)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", cfg.Engine, err)
	}
	defer db.Close()

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.Timeout
	attempt := 1
	err = backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err != nil {
			cfg.Logger.Info("waiting for database", zap.String("engine", cfg.Engine), zap.Int("attempt", attempt))
			attempt++
		}
		return err
	}, policy)
	if err != nil {
		return fmt.Errorf("failed to initialize %s connection: %w", cfg.Engine, err)
	}

	return execute(ctx, db, engine.dir, cfg)
}

func execute(ctx context.Context, db *sql.DB, dir string, cfg MigrationConfig) error {
	currentVersion, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get %s db version: %w", cfg.Engine, err)
	}

	cfg.Logger.Info("current schema version", zap.String("engine", cfg.Engine), zap.Int64("version", currentVersion))

	if cfg.TargetVersion == 0 {
		if err := goose.UpContext(ctx, db, dir); err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", cfg.Engine, err)
		}
		cfg.Logger.Info("migration done", zap.String("engine", cfg.Engine))
		return nil
	}

	target := int64(cfg.TargetVersion)

	switch {
	case target < currentVersion:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("failed to run %s migrations down to %v: %w", cfg.Engine, target, err)
		}
	case target > currentVersion:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("failed to run %s migrations up to %v: %w", cfg.Engine, target, err)
		}
	default:
		cfg.Logger.Info("nothing to do", zap.String("engine", cfg.Engine))
		return nil
	}

	cfg.Logger.Info("migration done", zap.String("engine", cfg.Engine), zap.Int64("version", target))
	return nil
}
