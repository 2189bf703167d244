package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	catalogerrors "github.com/ontologymarket/catalog/internal/errors"
	"github.com/ontologymarket/catalog/pkg/storage"
	"github.com/ontologymarket/catalog/pkg/storage/sqlcommon"
)

var Dialect = sqlcommon.Dialect{
	Name:        "mysql",
	Placeholder: sq.Question,
	Contains: func(column string) string {
		return "INSTR(BINARY " + column + ", ?) > 0"
	},
	InsertIgnore: func(ib sq.InsertBuilder) sq.InsertBuilder {
		return ib.Options("IGNORE")
	},
	LockSuffix: "FOR UPDATE",
}

// MySQL provides a MySQL based implementation of [storage.CatalogDatastore].
type MySQL struct {
	*sqlcommon.Datastore
	dbStatsCollector prometheus.Collector
}

var _ storage.CatalogDatastore = (*MySQL)(nil)

const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// New creates a new [MySQL] storage. It waits up to a minute for the server to accept
// connections.
func New(uri string, cfg *sqlcommon.Config) (*MySQL, error) {
	if cfg.Username != "" || cfg.Password != "" {
		dsnCfg, err := mysql.ParseDSN(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mysql connection dsn: %w", err)
		}

		if cfg.Username != "" {
			dsnCfg.User = cfg.Username
		}
		if cfg.Password != "" {
			dsnCfg.Passwd = cfg.Password
		}

		uri = dsnCfg.FormatDSN()
	}

	db, err := sql.Open("mysql", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}
	sqlcommon.ConfigurePool(db, cfg)

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 1 * time.Minute
	attempt := 1
	err = backoff.Retry(func() error {
		err = db.PingContext(context.Background())
		if err != nil {
			cfg.Logger.Info("waiting for mysql", zap.Int("attempt", attempt))
			attempt++
			return err
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mysql connection: %w", err)
	}

	var collector prometheus.Collector
	if cfg.ExportMetrics {
		collector = collectors.NewDBStatsCollector(db, "catalog")
		if err := prometheus.Register(collector); err != nil {
			return nil, fmt.Errorf("initialize metrics: %w", err)
		}
	}

	return &MySQL{
		Datastore:        sqlcommon.NewDatastore(db, Dialect, HandleSQLError, cfg),
		dbStatsCollector: collector,
	}, nil
}

// Close closes the datastore and cleans up any residual resources.
func (m *MySQL) Close() {
	if m.dbStatsCollector != nil {
		prometheus.Unregister(m.dbStatsCollector)
	}
	m.Datastore.Close()
}

// HandleSQLError processes an SQL error and converts it into a more
// specific error type based on the nature of the SQL error.
func HandleSQLError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == errDeadlock || me.Number == errLockWaitTimeout) {
		return catalogerrors.With(fmt.Errorf("sql error: %w", err), storage.ErrTransient)
	}

	return fmt.Errorf("sql error: %w", err)
}
