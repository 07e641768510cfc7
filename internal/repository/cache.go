package repository

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// PreparedStatementCache holds one pool-prepared statement per distinct query
// text. Squirrel emits placeholders for every value, so the number of entries
// is bounded by the number of query shapes, not by the data.
type PreparedStatementCache struct {
	db *sql.DB

	mu    sync.RWMutex
	stmts map[string]*sql.Stmt

	hits   atomic.Int64
	misses atomic.Int64
}

// NewPreparedStatementCache creates an empty cache preparing against db
func NewPreparedStatementCache(db *sql.DB) *PreparedStatementCache {
	return &PreparedStatementCache{db: db, stmts: map[string]*sql.Stmt{}}
}

// Get returns the cached statement for query, preparing it on first use
func (c *PreparedStatementCache) Get(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := c.Lookup(query); ok {
		return stmt, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have prepared it while we waited
	if stmt, ok := c.stmts[query]; ok {
		c.hits.Add(1)
		return stmt, nil
	}

	c.misses.Add(1)
	stmt, err := c.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare statement")
	}
	c.stmts[query] = stmt
	return stmt, nil
}

// Lookup returns the cached statement without preparing a missing one.
// Transactions use it to rebind a statement instead of reaching into the pool.
func (c *PreparedStatementCache) Lookup(query string) (*sql.Stmt, bool) {
	c.mu.RLock()
	stmt, ok := c.stmts[query]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	}
	return stmt, ok
}

// Close closes every cached statement and empties the cache. The first close
// error is returned after all statements have been attempted.
func (c *PreparedStatementCache) Close() error {
	c.mu.Lock()
	stmts := c.stmts
	c.stmts = map[string]*sql.Stmt{}
	c.mu.Unlock()

	var first error
	for _, stmt := range stmts {
		if err := stmt.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Size is the number of cached statements
func (c *PreparedStatementCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stmts)
}

// Stats reports lookups served from the cache and statements prepared
func (c *PreparedStatementCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
