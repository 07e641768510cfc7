package config

import (
	"database/sql"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied by the driver to every pooled connection
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"synchronous(NORMAL)",
	"cache_size(-10000)",
	"temp_store(MEMORY)",
}

// OptimizeDatabaseConnection sizes the connection pool
func OptimizeDatabaseConnection(db *sql.DB, cfg DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// ApplyPragmaOptimizations applies database-wide SQLite pragmas
func ApplyPragmaOptimizations(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL", // persists in the database file
		"PRAGMA optimize",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return err
		}
	}

	return nil
}

// SQLiteDSN appends the per-connection pragmas to dsn, leaving any the caller
// already set untouched.
func SQLiteDSN(dsn string) string {
	var params []string
	for _, pragma := range sqlitePragmas {
		name, _, _ := strings.Cut(pragma, "(")
		if strings.Contains(dsn, "_pragma="+name) {
			continue
		}
		params = append(params, "_pragma="+pragma)
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// sqliteDir returns the directory holding the database file, or "" for
// in-memory databases.
func sqliteDir(dsn string) string {
	if strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, ":memory:") {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}
