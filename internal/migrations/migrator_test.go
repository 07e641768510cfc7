package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Logf("Warning: failed to close test database: %v", closeErr)
		}
	})
	return db
}

func TestMigrator_RunMigrations(t *testing.T) {
	db := openTestDB(t, "TestMigrator_RunMigrations")

	migrator := NewMigrator(db, DialectSQLite, zerolog.Nop())
	for _, migration := range All() {
		migrator.AddMigration(migration)
	}

	err := migrator.RunMigrations()
	require.NoError(t, err)

	// Verify current version
	version, err := migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='animes'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_animes_name'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = 1 AND name = 'create_animes_table'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMigrator_RunMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t, "TestMigrator_RunMigrations_Idempotent")

	for i := 0; i < 2; i++ {
		migrator := NewMigrator(db, DialectSQLite, zerolog.Nop())
		for _, migration := range All() {
			migrator.AddMigration(migration)
		}
		require.NoError(t, migrator.RunMigrations())
	}

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMigrator_AddMigration(t *testing.T) {
	db := openTestDB(t, "TestMigrator_AddMigration")

	migrator := NewMigrator(db, DialectSQLite, zerolog.Nop())

	// Add migrations out of order
	migrator.AddMigration(Migration{Version: 3, Name: "third"})
	migrator.AddMigration(Migration{Version: 1, Name: "first"})
	migrator.AddMigration(Migration{Version: 2, Name: "second"})

	migrations := migrator.GetMigrations()
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, int64(2), migrations[1].Version)
	assert.Equal(t, int64(3), migrations[2].Version)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t, "TestMigrator_FailedMigrationRollsBack")

	migrator := NewMigrator(db, DialectSQLite, zerolog.Nop())
	migrator.AddMigration(Migration{
		Version: 1,
		Name:    "half_applied",
		Up: func(tx *sql.Tx, _ Dialect) error {
			if _, err := tx.Exec("CREATE TABLE scratch (id INTEGER)"); err != nil {
				return err
			}
			return errors.New("boom")
		},
	})

	err := migrator.RunMigrations()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "half_applied")

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='scratch'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	version, err := migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestMigrator_BuilderPlaceholders(t *testing.T) {
	sqlite := NewMigrator(nil, DialectSQLite, zerolog.Nop())
	postgres := NewMigrator(nil, DialectPostgres, zerolog.Nop())

	insert := func(m *Migrator) string {
		query, _, err := m.builder().Insert("schema_migrations").Columns("version", "name").Values(1, "x").ToSql()
		require.NoError(t, err)
		return query
	}
	assert.Equal(t, "INSERT INTO schema_migrations (version,name) VALUES (?,?)", insert(sqlite))
	assert.Equal(t, "INSERT INTO schema_migrations (version,name) VALUES ($1,$2)", insert(postgres))
}

func TestMigrator_NilUpRecordsVersion(t *testing.T) {
	db := openTestDB(t, "TestMigrator_NilUpRecordsVersion")

	migrator := NewMigrator(db, DialectSQLite, zerolog.Nop())
	migrator.AddMigration(Migration{Version: 7, Name: "marker"})
	require.NoError(t, migrator.RunMigrations())

	version, err := migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(7), version)
}

func TestCreateAnimesTable_Dialects(t *testing.T) {
	assert.Contains(t, createAnimesTable(DialectSQLite), "AUTOINCREMENT")
	assert.Contains(t, createAnimesTable(DialectPostgres), "GENERATED BY DEFAULT AS IDENTITY")
}

func TestAll_Ordered(t *testing.T) {
	all := All()
	require.Len(t, all, 2)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Version, all[i].Version)
	}
}

func TestMigrator_Rollback(t *testing.T) {
	db := openTestDB(t, "TestMigrator_Rollback")

	migrator := NewDefault(db, DialectSQLite, zerolog.Nop())
	require.NoError(t, migrator.RunMigrations())

	require.NoError(t, migrator.Rollback(1))

	version, err := migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_animes_name'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, migrator.Rollback(0))

	version, err = migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='animes'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// migrating up again restores the full schema
	require.NoError(t, migrator.RunMigrations())
	version, err = migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestMigrator_Rollback_SkipsUnapplied(t *testing.T) {
	db := openTestDB(t, "TestMigrator_Rollback_SkipsUnapplied")

	var reverted []int64
	migrator := NewMigrator(db, DialectSQLite, zerolog.Nop())
	for _, v := range []int64{1, 2} {
		version := v
		migrator.AddMigration(Migration{
			Version: version,
			Name:    fmt.Sprintf("m%d", version),
			Down: func(*sql.Tx, Dialect) error {
				reverted = append(reverted, version)
				return nil
			},
		})
	}
	require.NoError(t, migrator.RunMigrations())

	// registered after the run, so never applied
	migrator.AddMigration(Migration{
		Version: 3,
		Name:    "m3",
		Down: func(*sql.Tx, Dialect) error {
			reverted = append(reverted, 3)
			return nil
		},
	})

	require.NoError(t, migrator.Rollback(0))
	assert.Equal(t, []int64{2, 1}, reverted)
}

func TestMigrator_Rollback_FailureKeepsRecord(t *testing.T) {
	db := openTestDB(t, "TestMigrator_Rollback_FailureKeepsRecord")

	migrator := NewMigrator(db, DialectSQLite, zerolog.Nop())
	migrator.AddMigration(Migration{
		Version: 1,
		Name:    "sticky",
		Down:    func(*sql.Tx, Dialect) error { return errors.New("boom") },
	})
	require.NoError(t, migrator.RunMigrations())

	err := migrator.Rollback(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sticky")

	version, err := migrator.GetCurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestMigrator_Rollback_NegativeTarget(t *testing.T) {
	migrator := NewMigrator(nil, DialectSQLite, zerolog.Nop())
	assert.Error(t, migrator.Rollback(-1))
}
