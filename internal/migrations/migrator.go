package migrations

import (
	"database/sql"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Dialect names the SQL flavor a migration is written against
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Migration represents a database migration with up and down functions
type Migration struct {
	Version int64
	Name    string
	Up      func(*sql.Tx, Dialect) error
	Down    func(*sql.Tx, Dialect) error
}

// Migrator handles database migrations
type Migrator struct {
	db         *sql.DB
	dialect    Dialect
	log        zerolog.Logger
	migrations []Migration
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *sql.DB, dialect Dialect, log zerolog.Logger) *Migrator {
	return &Migrator{
		db:         db,
		dialect:    dialect,
		log:        log.With().Str("module", "migrations").Logger(),
		migrations: []Migration{},
	}
}

// NewDefault returns a migrator with every known migration registered
func NewDefault(db *sql.DB, dialect Dialect, log zerolog.Logger) *Migrator {
	m := NewMigrator(db, dialect, log)
	for _, migration := range All() {
		m.AddMigration(migration)
	}
	return m
}

// AddMigration adds a migration to the migrator
func (m *Migrator) AddMigration(migration Migration) {
	m.migrations = append(m.migrations, migration)
	// Sort migrations by version
	sort.Slice(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

// RunMigrations runs all pending migrations
func (m *Migrator) RunMigrations() error {
	if err := m.createMigrationsTable(); err != nil {
		return errors.Wrap(err, "failed to create migrations table")
	}

	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current version")
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}
		m.log.Info().Int64("version", migration.Version).Str("name", migration.Name).Msg("applying migration")
		if err := m.runMigration(migration); err != nil {
			return errors.Wrapf(err, "failed to run migration %d (%s)", migration.Version, migration.Name)
		}
	}

	return nil
}

// createMigrationsTable creates the migrations tracking table
func (m *Migrator) createMigrationsTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// getCurrentVersion returns the highest applied version, 0 on a fresh database
func (m *Migrator) getCurrentVersion() (int64, error) {
	var version int64
	err := m.builder().
		Select("COALESCE(MAX(version), 0)").
		From("schema_migrations").
		RunWith(m.db).
		QueryRow().
		Scan(&version)
	return version, err
}

// runMigration applies a migration and records it in the same transaction
func (m *Migrator) runMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			m.log.Warn().Err(rollbackErr).Int64("version", migration.Version).Msg("rollback failed")
		}
	}()

	if migration.Up != nil {
		if err := migration.Up(tx, m.dialect); err != nil {
			return err
		}
	}

	_, err = m.builder().
		Insert("schema_migrations").
		Columns("version", "name").
		Values(migration.Version, migration.Name).
		RunWith(tx).
		Exec()
	if err != nil {
		return errors.Wrap(err, "failed to record migration")
	}

	return tx.Commit()
}

// builder returns a statement builder using the dialect's placeholders
func (m *Migrator) builder() sq.StatementBuilderType {
	if m.dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// Rollback reverts every applied migration above target, newest first. Each
// migration's Down and the removal of its record share one transaction.
func (m *Migrator) Rollback(target int64) error {
	if target < 0 {
		return errors.Errorf("rollback target %d must not be negative", target)
	}
	if err := m.createMigrationsTable(); err != nil {
		return errors.Wrap(err, "failed to create migrations table")
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return errors.Wrap(err, "failed to read applied versions")
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version <= target || !applied[migration.Version] {
			continue
		}
		m.log.Info().Int64("version", migration.Version).Str("name", migration.Name).Msg("reverting migration")
		if err := m.revertMigration(migration); err != nil {
			return errors.Wrapf(err, "failed to revert migration %d (%s)", migration.Version, migration.Name)
		}
	}

	return nil
}

func (m *Migrator) appliedVersions() (map[int64]bool, error) {
	rows, err := m.builder().
		Select("version").
		From("schema_migrations").
		RunWith(m.db).
		Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := map[int64]bool{}
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) revertMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			m.log.Warn().Err(rollbackErr).Int64("version", migration.Version).Msg("rollback failed")
		}
	}()

	if migration.Down != nil {
		if err := migration.Down(tx, m.dialect); err != nil {
			return err
		}
	}

	_, err = m.builder().
		Delete("schema_migrations").
		Where(sq.Eq{"version": migration.Version}).
		RunWith(tx).
		Exec()
	if err != nil {
		return errors.Wrap(err, "failed to remove migration record")
	}

	return tx.Commit()
}

// GetCurrentVersion returns the highest applied version
func (m *Migrator) GetCurrentVersion() (int64, error) {
	return m.getCurrentVersion()
}

// GetMigrations returns all registered migrations
func (m *Migrator) GetMigrations() []Migration {
	return m.migrations
}
