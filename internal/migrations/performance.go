package migrations

import (
	"database/sql"
)

// GetPerformanceMigrations returns index migrations backing the lookup queries
func GetPerformanceMigrations() []Migration {
	return []Migration{
		{
			Version: 2,
			Name:    "add_animes_name_index",
			Up: func(tx *sql.Tx, _ Dialect) error {
				_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_animes_name ON animes(name)")
				return err
			},
			Down: func(tx *sql.Tx, _ Dialect) error {
				_, err := tx.Exec("DROP INDEX IF EXISTS idx_animes_name")
				return err
			},
		},
	}
}
