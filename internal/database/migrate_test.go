package database

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file %s", name)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestInitialSchemaEnforcesLedgerConstraints(t *testing.T) {
	b, err := migrationsFS.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)
	sql := string(b)
	assert.Contains(t, sql, "UNIQUE KEY uq_orders_user_day (user_id, delivery_date)")
	assert.Contains(t, sql, "UNIQUE KEY uq_teams_leader (leader_id)")
	assert.Contains(t, sql, "UNIQUE KEY uq_accounts_phone (phone)")
}

func TestMigrateReturnsConnectionToPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	version := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"version", "dirty"}).AddRow(1, false)
	}
	locked := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"ok"}).AddRow(true) }

	mock.ExpectQuery("SELECT DATABASE\\(\\)").WillReturnRows(sqlmock.NewRows([]string{"db"}).AddRow("tiffin"))
	mock.ExpectQuery("GET_LOCK").WillReturnRows(locked())
	mock.ExpectQuery("SHOW TABLES LIKE 'schema_migrations'").
		WillReturnRows(sqlmock.NewRows([]string{"t"}).AddRow("schema_migrations"))
	mock.ExpectExec("RELEASE_LOCK").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("GET_LOCK").WillReturnRows(locked())
	mock.ExpectQuery("SELECT version, dirty FROM").WillReturnRows(version())
	mock.ExpectExec("RELEASE_LOCK").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, dirty FROM").WillReturnRows(version())

	v, err := Migrate(context.Background(), db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Zero(t, db.Stats().InUse)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestMigrateDriverFailureKeepsPoolOpen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DATABASE\\(\\)").WillReturnError(errors.New("access denied"))

	_, err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Zero(t, db.Stats().InUse)
	assert.NoError(t, db.PingContext(context.Background()))
}
