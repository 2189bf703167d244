package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ontologymarket/catalog/pkg/storage"
	"github.com/ontologymarket/catalog/pkg/storage/migrate"
	"github.com/ontologymarket/catalog/pkg/storage/sqlcommon"
	"github.com/ontologymarket/catalog/pkg/storage/sqlite"
	"github.com/ontologymarket/catalog/pkg/storage/test"
)

func newDatastore(t *testing.T) *sqlite.Datastore {
	t.Helper()

	uri := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, migrate.RunMigrations(migrate.MigrationConfig{
		Engine:  "sqlite",
		URI:     uri,
		Timeout: 5 * time.Second,
	}))

	ds, err := sqlite.New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)
	return ds
}

func TestSQLiteDatastore(t *testing.T) {
	ds := newDatastore(t)
	test.RunAllTests(t, ds)
}

func TestSQLiteDatastoreWithMetrics(t *testing.T) {
	uri := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, migrate.RunMigrations(migrate.MigrationConfig{Engine: "sqlite", URI: uri}))

	ds, err := sqlite.New(uri, sqlcommon.NewConfig(sqlcommon.WithMetrics(), sqlcommon.WithMaxOpenConns(4)))
	require.NoError(t, err)
	ds.Close()

	// the collector was unregistered, so a second store can register it again
	ds, err = sqlite.New(uri, sqlcommon.NewConfig(sqlcommon.WithMetrics()))
	require.NoError(t, err)
	ds.Close()
}

func TestSQLiteNotReadyWithoutMigrations(t *testing.T) {
	ds, err := sqlite.New(filepath.Join(t.TempDir(), "empty.db"), sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	status, err := ds.IsReady(context.Background())
	require.NoError(t, err)
	require.False(t, status.IsReady)
	require.Contains(t, status.Message, "requires migrations")
}

func TestPrepareDSN(t *testing.T) {
	dsn, err := sqlite.PrepareDSN("file:catalog.db")
	require.NoError(t, err)
	require.Contains(t, dsn, "journal_mode%28WAL%29")
	require.Contains(t, dsn, "busy_timeout%285000%29")
	require.Contains(t, dsn, "_txlock=immediate")

	dsn, err = sqlite.PrepareDSN("file:catalog.db?_pragma=busy_timeout(10)&_txlock=deferred")
	require.NoError(t, err)
	require.Contains(t, dsn, "busy_timeout%2810%29")
	require.NotContains(t, dsn, "busy_timeout%285000%29")
	require.Contains(t, dsn, "_txlock=deferred")
}

func TestHandleSQLError(t *testing.T) {
	err := sqlite.HandleSQLError(errors.New("boom"))
	require.ErrorContains(t, err, "sql error: boom")
	require.NotErrorIs(t, err, storage.ErrTransient)
}

func TestCancelledContextIsReturned(t *testing.T) {
	ds := newDatastore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ds.SearchRecords(ctx, storage.SearchFilter{Limit: 10})
	require.ErrorIs(t, err, context.Canceled)
}
