package api

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/jbweber/homelab/animes/internal/domain"
)

// AnimeService is the business layer the handlers delegate to
type AnimeService interface {
	ListAll(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Anime], error)
	ListAllNonPaged(ctx context.Context) ([]domain.Anime, error)
	FindByName(ctx context.Context, name string) ([]domain.Anime, error)
	FindByIDOrFail(ctx context.Context, id int64) (domain.Anime, error)
	Create(ctx context.Context, req domain.CreateAnimeRequest) (domain.Anime, error)
	Delete(ctx context.Context, id int64) error
	Replace(ctx context.Context, req domain.UpdateAnimeRequest) error
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the router built by Routes
type Options struct {
	Paging         PagingOptions
	RequestTimeout time.Duration
}

// DefaultOptions returns the stock router settings
func DefaultOptions() Options {
	return Options{Paging: DefaultPagingOptions(), RequestTimeout: 30 * time.Second}
}

// API holds the handler dependencies
type API struct {
	animes *Animes
	store  Pinger
	opts   Options
	log    zerolog.Logger
}

// NewAPI creates a new API over svc. store backs the health check.
func NewAPI(svc AnimeService, store Pinger, opts Options, log zerolog.Logger) *API {
	log = log.With().Str("module", "api").Logger()
	return &API{
		animes: NewAnimes(svc, opts.Paging, newValidator()),
		store:  store,
		opts:   opts,
		log:    log,
	}
}

// Routes returns the complete HTTP handler including middleware
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(a.log)...)
	r.Use(recoverer)
	if a.opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(a.opts.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errMethodNotAllowed)
	})

	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all API endpoints to the given chi router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", a.healthHandler)
	RegisterAnimesRoutes(r, a.animes)
}

func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	if a.store != nil {
		if err := a.store.Ping(r.Context()); err != nil {
			a.log.Error().Err(err).Msg("health check failed")
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
