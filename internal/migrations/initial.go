package migrations

import (
	"database/sql"
)

// GetInitialMigrations returns the migrations that create the base schema
func GetInitialMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_animes_table",
			Up: func(tx *sql.Tx, dialect Dialect) error {
				_, err := tx.Exec(createAnimesTable(dialect))
				return err
			},
			Down: func(tx *sql.Tx, _ Dialect) error {
				_, err := tx.Exec(`DROP TABLE IF EXISTS animes`)
				return err
			},
		},
	}
}

// createAnimesTable returns the animes DDL with an identity primary key
func createAnimesTable(dialect Dialect) string {
	if dialect == DialectPostgres {
		return `
			CREATE TABLE IF NOT EXISTS animes (
				id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				name TEXT NOT NULL CHECK (name <> '')
			)
		`
	}
	return `
		CREATE TABLE IF NOT EXISTS animes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL CHECK (name <> '')
		)
	`
}

// All returns every known migration in version order
func All() []Migration {
	var all []Migration
	all = append(all, GetInitialMigrations()...)
	all = append(all, GetPerformanceMigrations()...)
	return all
}
