package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/jbweber/homelab/animes/internal/domain"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Animes groups the /animes handlers
type Animes struct {
	svc      AnimeService
	paging   PagingOptions
	validate *validator.Validate
}

// NewAnimes creates the /animes handlers
func NewAnimes(svc AnimeService, paging PagingOptions, validate *validator.Validate) *Animes {
	return &Animes{svc: svc, paging: paging, validate: validate}
}

// RegisterAnimesRoutes mounts the /animes endpoints on r
func RegisterAnimesRoutes(r chi.Router, a *Animes) {
	r.Route("/animes", func(r chi.Router) {
		r.Get("/", a.ListHandler)
		r.Get("/all", a.ListAllHandler)
		r.Get("/find", a.FindByNameHandler)
		r.Get("/{id}", a.GetHandler)
		r.Post("/", a.CreateHandler)
		r.Put("/", a.ReplaceHandler)
		r.Delete("/{id}", a.DeleteHandler)
	})
}

// ListHandler handles GET /animes?page=&size=&sort=
func (a *Animes) ListHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageRequest(r.URL.Query(), a.paging)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := a.svc.ListAll(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// ListAllHandler handles GET /animes/all
func (a *Animes) ListAllHandler(w http.ResponseWriter, r *http.Request) {
	animes, err := a.svc.ListAllNonPaged(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(animes))
}

// GetHandler handles GET /animes/{id}
func (a *Animes) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	anime, err := a.svc.FindByIDOrFail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, anime)
}

// FindByNameHandler handles GET /animes/find?name=
func (a *Animes) FindByNameHandler(w http.ResponseWriter, r *http.Request) {
	animes, err := a.svc.FindByName(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nonNil(animes))
}

// CreateHandler handles POST /animes
func (a *Animes) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAnimeRequest
	if err := a.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := a.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/animes/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, r, http.StatusCreated, created)
}

// ReplaceHandler handles PUT /animes
func (a *Animes) ReplaceHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateAnimeRequest
	if err := a.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.svc.Replace(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteHandler handles DELETE /animes/{id}
func (a *Animes) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := a.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into dst and runs its validation rules
func (a *Animes) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest(nil, "request body is required")
		}
		return badRequest(err, "invalid JSON")
	}
	return a.validate.Struct(dst)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest(err, "invalid anime ID %q", raw)
	}
	return id, nil
}

func nonNil(animes []domain.Anime) []domain.Anime {
	if animes == nil {
		return []domain.Anime{}
	}
	return animes
}
