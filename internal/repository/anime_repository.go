package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jbweber/homelab/animes/internal/datastore"
	"github.com/jbweber/homelab/animes/internal/domain"
)

const animesTable = "animes"

// AnimeRepository extends the generic Repository with anime-specific operations
type AnimeRepository interface {
	Repository[domain.Anime, int64]
	Pager[domain.Anime]

	// FindByName returns every anime whose name matches exactly
	FindByName(ctx context.Context, name string) ([]domain.Anime, error)

	// WithTx returns a repository whose statements run inside tx
	WithTx(tx *sql.Tx) AnimeRepository

	// Close releases the prepared statements
	Close() error
}

// animeRepositoryImpl implements AnimeRepository
type animeRepositoryImpl struct {
	builder sq.StatementBuilderType
	stmts   *PreparedStatementCache
	tx      *sql.Tx
	log     zerolog.Logger
}

// NewAnimeRepository creates a new anime repository backed by ds
func NewAnimeRepository(ds *datastore.Datastore, log zerolog.Logger) AnimeRepository {
	return &animeRepositoryImpl{
		builder: ds.Builder(),
		stmts:   NewPreparedStatementCache(ds.DB),
		log:     log.With().Str("repo", "anime").Logger(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *animeRepositoryImpl) WithTx(tx *sql.Tx) AnimeRepository {
	bound := *r
	bound.tx = tx
	return &bound
}

// Close releases the prepared statements shared by every copy of the repository
func (r *animeRepositoryImpl) Close() error {
	hits, misses := r.stmts.Stats()
	r.log.Debug().Int64("hits", hits).Int64("misses", misses).Msg("closing statement cache")
	return r.stmts.Close()
}

// Save inserts the anime when it has no ID yet and updates it otherwise
func (r *animeRepositoryImpl) Save(ctx context.Context, anime domain.Anime) (domain.Anime, error) {
	if anime.Name == "" {
		return domain.Anime{}, errors.Wrap(ErrInvalidEntity, "anime name is required")
	}
	if anime.ID == 0 {
		return r.insert(ctx, anime)
	}
	return r.update(ctx, anime)
}

// insert creates a new row and returns the anime with its assigned ID
func (r *animeRepositoryImpl) insert(ctx context.Context, anime domain.Anime) (domain.Anime, error) {
	stmt, args, cleanup, err := r.prepare(ctx, "Insert", r.builder.
		Insert(animesTable).
		Columns("name").
		Values(anime.Name).
		Suffix("RETURNING id"))
	if err != nil {
		return domain.Anime{}, err
	}
	defer cleanup()

	if err := stmt.QueryRowContext(ctx, args...).Scan(&anime.ID); err != nil {
		return domain.Anime{}, errors.Wrap(err, "failed to create anime")
	}
	return anime, nil
}

// update replaces the name of an existing row
func (r *animeRepositoryImpl) update(ctx context.Context, anime domain.Anime) (domain.Anime, error) {
	stmt, args, cleanup, err := r.prepare(ctx, "Update", r.builder.
		Update(animesTable).
		Set("name", anime.Name).
		Where(sq.Eq{"id": anime.ID}))
	if err != nil {
		return domain.Anime{}, err
	}
	defer cleanup()

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return domain.Anime{}, errors.Wrap(err, "failed to update anime")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Anime{}, errors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return domain.Anime{}, notFound("anime", anime.ID)
	}
	return anime, nil
}

// FindByID retrieves an anime by its ID
func (r *animeRepositoryImpl) FindByID(ctx context.Context, id int64) (domain.Anime, error) {
	stmt, args, cleanup, err := r.prepare(ctx, "FindByID", r.builder.
		Select("id", "name").
		From(animesTable).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Anime{}, err
	}
	defer cleanup()

	var a domain.Anime
	if err := stmt.QueryRowContext(ctx, args...).Scan(&a.ID, &a.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Anime{}, notFound("anime", id)
		}
		return domain.Anime{}, errors.Wrap(err, "failed to find anime")
	}
	return a, nil
}

// FindAll retrieves all animes ordered by ID
func (r *animeRepositoryImpl) FindAll(ctx context.Context) ([]domain.Anime, error) {
	return r.list(ctx, "FindAll", r.builder.
		Select("id", "name").
		From(animesTable).
		OrderBy("id ASC"))
}

// FindByName retrieves all animes with exactly the given name
func (r *animeRepositoryImpl) FindByName(ctx context.Context, name string) ([]domain.Anime, error) {
	return r.list(ctx, "FindByName", r.builder.
		Select("id", "name").
		From(animesTable).
		Where(sq.Eq{"name": name}).
		OrderBy("id ASC"))
}

// FindPage retrieves one page of animes in the requested order
func (r *animeRepositoryImpl) FindPage(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Anime], error) {
	if req.Sort.Field == "" {
		req.Sort = domain.DefaultSort
	}
	if err := req.Sort.Validate(); err != nil {
		return domain.Page[domain.Anime]{}, errors.Wrap(ErrInvalidEntity, err.Error())
	}

	total, err := r.count(ctx)
	if err != nil {
		return domain.Page[domain.Anime]{}, err
	}

	direction := "ASC"
	if req.Sort.Desc {
		direction = "DESC"
	}
	orderBy := []string{req.Sort.Field + " " + direction}
	if req.Sort.Field != domain.SortByID {
		orderBy = append(orderBy, "id ASC")
	}

	// LIMIT/OFFSET stay placeholders so every page shares one cached statement
	content, err := r.list(ctx, "FindPage", r.builder.
		Select("id", "name").
		From(animesTable).
		OrderBy(orderBy...).
		Suffix("LIMIT ? OFFSET ?", req.Size, req.Offset()))
	if err != nil {
		return domain.Page[domain.Anime]{}, err
	}

	return domain.NewPage(content, req, total), nil
}

// DeleteByID deletes an anime by its ID
func (r *animeRepositoryImpl) DeleteByID(ctx context.Context, id int64) error {
	stmt, args, cleanup, err := r.prepare(ctx, "DeleteByID", r.builder.
		Delete(animesTable).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return errors.Wrap(err, "failed to delete anime")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return notFound("anime", id)
	}
	return nil
}

// ExistsByID checks if an anime exists by its ID
func (r *animeRepositoryImpl) ExistsByID(ctx context.Context, id int64) (bool, error) {
	stmt, args, cleanup, err := r.prepare(ctx, "ExistsByID", r.builder.
		Select("COUNT(*)").
		From(animesTable).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return false, err
	}
	defer cleanup()

	var count int
	if err := stmt.QueryRowContext(ctx, args...).Scan(&count); err != nil {
		return false, errors.Wrap(err, "failed to check anime existence")
	}
	return count > 0, nil
}

func (r *animeRepositoryImpl) count(ctx context.Context) (int64, error) {
	stmt, args, cleanup, err := r.prepare(ctx, "Count", r.builder.
		Select("COUNT(*)").
		From(animesTable))
	if err != nil {
		return 0, err
	}
	defer cleanup()

	var total int64
	if err := stmt.QueryRowContext(ctx, args...).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "failed to count animes")
	}
	return total, nil
}

// list runs a select of (id, name) and collects every row
func (r *animeRepositoryImpl) list(ctx context.Context, op string, query sq.Sqlizer) ([]domain.Anime, error) {
	stmt, args, cleanup, err := r.prepare(ctx, op, query)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, errors.Wrap(err, "error executing query")
	}
	defer rows.Close()

	animes := []domain.Anime{}
	for rows.Next() {
		var a domain.Anime
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		animes = append(animes, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating rows")
	}

	return animes, nil
}

// prepare builds the query and returns its cached statement, rebound to the
// repository's transaction when there is one. cleanup must always be called.
func (r *animeRepositoryImpl) prepare(ctx context.Context, op string, query sq.Sqlizer) (*sql.Stmt, []interface{}, func(), error) {
	text, args, err := query.ToSql()
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "error building query")
	}

	r.log.Trace().Str("query", text).Interface("args", args).Bool("tx", r.tx != nil).Msg(op)

	if r.tx == nil {
		stmt, err := r.stmts.Get(ctx, text)
		if err != nil {
			return nil, nil, nil, err
		}
		return stmt, args, func() {}, nil
	}

	// Inside a transaction never reach back into the pool: a cached statement
	// is rebound to the transaction's connection, anything else is prepared on it.
	var txStmt *sql.Stmt
	if cached, ok := r.stmts.Lookup(text); ok {
		txStmt = r.tx.StmtContext(ctx, cached)
	} else {
		txStmt, err = r.tx.PrepareContext(ctx, text)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "failed to prepare statement")
		}
	}
	return txStmt, args, func() {
		if err := txStmt.Close(); err != nil {
			r.log.Debug().Err(err).Msg("failed to close transaction statement")
		}
	}, nil
}
