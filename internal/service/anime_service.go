// Package service holds the business rules for animes: the not-found policy,
// ID preservation on replace and the transaction boundary of every write.
package service

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jbweber/homelab/animes/internal/domain"
	"github.com/jbweber/homelab/animes/internal/mapper"
	"github.com/jbweber/homelab/animes/internal/repository"
)

var (
	// ErrAnimeNotFound is returned when a requested anime does not exist
	ErrAnimeNotFound = errors.New("anime not found")
	// ErrInvalidAnime is returned when the store rejects an anime or a listing request
	ErrInvalidAnime = errors.New("invalid anime")
)

// Transactor runs a function inside a single database transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// AnimeService orchestrates the repository and mapper for the HTTP layer
type AnimeService struct {
	repo repository.AnimeRepository
	tx   Transactor
	log  zerolog.Logger
}

// NewAnimeService wires a service over an explicitly owned repository
func NewAnimeService(repo repository.AnimeRepository, tx Transactor, log zerolog.Logger) *AnimeService {
	return &AnimeService{
		repo: repo,
		tx:   tx,
		log:  log.With().Str("module", "service").Logger(),
	}
}

// ListAll returns one page of animes
func (s *AnimeService) ListAll(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Anime], error) {
	page, err := s.repo.FindPage(ctx, req)
	if err != nil {
		return domain.Page[domain.Anime]{}, translate(err, 0)
	}
	return page, nil
}

// ListAllNonPaged returns every anime ordered by ID
func (s *AnimeService) ListAllNonPaged(ctx context.Context) ([]domain.Anime, error) {
	return s.repo.FindAll(ctx)
}

// FindByName returns the animes named exactly name. No match is an empty slice, never an error.
func (s *AnimeService) FindByName(ctx context.Context, name string) ([]domain.Anime, error) {
	return s.repo.FindByName(ctx, name)
}

// FindByIDOrFail returns the anime or ErrAnimeNotFound
func (s *AnimeService) FindByIDOrFail(ctx context.Context, id int64) (domain.Anime, error) {
	anime, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Anime{}, translate(err, id)
	}
	return anime, nil
}

// Create persists a new anime and returns it with its assigned ID
func (s *AnimeService) Create(ctx context.Context, req domain.CreateAnimeRequest) (domain.Anime, error) {
	var created domain.Anime
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = s.repo.WithTx(tx).Save(ctx, mapper.FromCreateRequest(req))
		return err
	})
	if err != nil {
		return domain.Anime{}, translate(err, 0)
	}

	s.log.Debug().Int64("id", created.ID).Msg("anime created")
	return created, nil
}

// Delete removes an existing anime or returns ErrAnimeNotFound
func (s *AnimeService) Delete(ctx context.Context, id int64) error {
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return err
		}
		return repo.DeleteByID(ctx, id)
	})
	if err != nil {
		return translate(err, id)
	}

	s.log.Debug().Int64("id", id).Msg("anime deleted")
	return nil
}

// Replace overwrites the name of an existing anime, keeping its ID
func (s *AnimeService) Replace(ctx context.Context, req domain.UpdateAnimeRequest) error {
	err := s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		saved, err := repo.FindByID(ctx, req.ID)
		if err != nil {
			return err
		}
		anime := mapper.FromUpdateRequest(req)
		anime.ID = saved.ID
		_, err = repo.Save(ctx, anime)
		return err
	})
	if err != nil {
		return translate(err, req.ID)
	}

	s.log.Debug().Int64("id", req.ID).Msg("anime replaced")
	return nil
}

// translate maps repository sentinels onto service errors
func translate(err error, id int64) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errors.Wrapf(ErrAnimeNotFound, "anime with ID %d", id)
	case errors.Is(err, repository.ErrInvalidEntity):
		return errors.Wrap(ErrInvalidAnime, err.Error())
	default:
		return err
	}
}
