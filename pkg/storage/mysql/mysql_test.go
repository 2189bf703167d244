package mysql_test

import (
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/ontologymarket/catalog/pkg/storage"
	"github.com/ontologymarket/catalog/pkg/storage/migrate"
	catalogmysql "github.com/ontologymarket/catalog/pkg/storage/mysql"
	"github.com/ontologymarket/catalog/pkg/storage/sqlcommon"
	"github.com/ontologymarket/catalog/pkg/storage/test"
)

// CATALOG_TEST_MYSQL_URI points the suite at a disposable database, e.g.
// root:secret@tcp(localhost:3306)/catalog.
func TestMySQLDatastore(t *testing.T) {
	uri := os.Getenv("CATALOG_TEST_MYSQL_URI")
	if uri == "" {
		t.Skip("CATALOG_TEST_MYSQL_URI is not set")
	}

	require.NoError(t, migrate.RunMigrations(migrate.MigrationConfig{
		Engine:  "mysql",
		URI:     uri,
		Timeout: 30 * time.Second,
	}))

	ds, err := catalogmysql.New(uri, sqlcommon.NewConfig())
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	test.RunAllTests(t, ds)
}

func TestHandleSQLErrorMarksDeadlocks(t *testing.T) {
	err := catalogmysql.HandleSQLError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	require.ErrorIs(t, err, storage.ErrTransient)

	err = catalogmysql.HandleSQLError(&mysql.MySQLError{Number: 1062})
	require.NotErrorIs(t, err, storage.ErrTransient)
}
