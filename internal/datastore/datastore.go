package datastore

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jbweber/homelab/animes/internal/migrations"
)

// Datastore owns the database handle and the SQL dialect spoken over it
type Datastore struct {
	DB      *sql.DB
	dialect migrations.Dialect
	log     zerolog.Logger
}

// New wraps an already opened and migrated database.
func New(db *sql.DB, dialect migrations.Dialect, log zerolog.Logger) *Datastore {
	return &Datastore{
		DB:      db,
		dialect: dialect,
		log:     log.With().Str("module", "datastore").Logger(),
	}
}

// Dialect returns the SQL flavor of the underlying driver.
func (ds *Datastore) Dialect() migrations.Dialect {
	return ds.dialect
}

// Builder returns a squirrel statement builder using the dialect's placeholders.
func (ds *Datastore) Builder() sq.StatementBuilderType {
	if ds.dialect == migrations.DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// WithinTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise, so no partial writes become visible.
func (ds *Datastore) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := ds.DB.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			ds.log.Warn().Err(rollbackErr).Msg("rollback failed")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// Ping checks if the database connection is alive.
func (ds *Datastore) Ping(ctx context.Context) error {
	return ds.DB.PingContext(ctx)
}

// Close runs the SQLite query planner once more and closes the pool.
func (ds *Datastore) Close() error {
	if ds.dialect == migrations.DialectSQLite {
		if _, err := ds.DB.Exec(`PRAGMA optimize;`); err != nil {
			ds.log.Debug().Err(err).Msg("query planner optimization failed")
		}
	}
	return ds.DB.Close()
}
