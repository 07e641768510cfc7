package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/jbweber/homelab/animes/internal/datastore"
	"github.com/jbweber/homelab/animes/internal/migrations"
)

// CleanupTestDB removes the test database file
func CleanupTestDB(dsn string) error {
	if len(dsn) < 5 || dsn[:5] != "file:" {
		return fmt.Errorf("invalid DSN format")
	}

	// In-memory databases disappear with their last connection
	if strings.Contains(dsn, "mode=memory") {
		return nil
	}

	path := dsn[5:]
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SetupTestDB creates and returns a test database connection
func SetupTestDB(t *testing.T, testName string) (*sql.DB, func()) {
	t.Helper()
	dsn := NewTestDSN(testName)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		CleanupTestDB(dsn)
	}

	return db, cleanup
}

// SetupTestDBWithMigrations creates a test database with the full schema applied
func SetupTestDBWithMigrations(t *testing.T, testName string) (*sql.DB, func()) {
	t.Helper()
	db, cleanup := SetupTestDB(t, testName)

	if err := migrations.NewDefault(db, migrations.DialectSQLite, zerolog.Nop()).RunMigrations(); err != nil {
		cleanup()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db, cleanup
}

// NewTestDatastore returns a migrated in-memory datastore that is closed when the test ends
func NewTestDatastore(t *testing.T, testName string) *datastore.Datastore {
	t.Helper()
	db, cleanup := SetupTestDBWithMigrations(t, testName)
	t.Cleanup(cleanup)
	return datastore.New(db, migrations.DialectSQLite, zerolog.Nop())
}
