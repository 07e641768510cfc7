package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB(t *testing.T) {
	db, cleanup := SetupTestDB(t, "TestSetupTestDB")
	defer cleanup()

	require.NotNil(t, db)
	require.NoError(t, db.Ping())

	var result string
	require.NoError(t, db.QueryRow("SELECT 'test'").Scan(&result))
	assert.Equal(t, "test", result)
}

func TestSetupTestDBWithMigrations(t *testing.T) {
	db, cleanup := SetupTestDBWithMigrations(t, "TestSetupTestDBWithMigrations")
	defer cleanup()

	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='schema_migrations'").Scan(&tableName)
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='animes'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = db.Exec("INSERT INTO animes (name) VALUES (?)", "Mushishi")
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM animes WHERE name = ?", "Mushishi").Scan(&name))
	assert.Equal(t, "Mushishi", name)
}

func TestSetupTestDB_SameNameIsolated(t *testing.T) {
	db1, cleanup1 := SetupTestDBWithMigrations(t, "TestSetupTestDB_SameNameIsolated")
	defer cleanup1()
	db2, cleanup2 := SetupTestDBWithMigrations(t, "TestSetupTestDB_SameNameIsolated")
	defer cleanup2()

	_, err := db1.Exec("INSERT INTO animes (name) VALUES (?)", "Only in one")
	require.NoError(t, err)

	var count int
	require.NoError(t, db2.QueryRow("SELECT COUNT(*) FROM animes").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestCleanupTestDB(t *testing.T) {
	assert.NoError(t, CleanupTestDB(NewTestDSN("test-cleanup")))
	assert.Error(t, CleanupTestDB("invalid-dsn"))
}

func TestCleanupTestDB_IdempotentCalls(t *testing.T) {
	dsn := NewTestDSN("test-idempotent")

	assert.NoError(t, CleanupTestDB(dsn))
	assert.NoError(t, CleanupTestDB(dsn))
}

func TestNewTestDSN_Unique(t *testing.T) {
	a := NewTestDSN("TestName")
	b := NewTestDSN("TestName")

	assert.Contains(t, a, "file:TestName-")
	assert.Contains(t, a, "mode=memory&cache=shared")
	assert.NotEqual(t, a, b)
}

func TestNewTestDatastore(t *testing.T) {
	ds := NewTestDatastore(t, "TestNewTestDatastore")

	require.NotNil(t, ds.DB)
	assert.NoError(t, ds.DB.Ping())
}
