package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"

	"github.com/jbweber/homelab/animes/internal/domain"
	"github.com/jbweber/homelab/animes/internal/service"
)

const (
	titleNotFound   = "Object Not Found Exception"
	titleBadRequest = "Bad Request Exception, Check the Documentation"
	titleValidation = "Bad Request Exception, Invalid Fields"
	titleInternal   = "Internal Server Error"
)

// Router-level failures for requests no handler claims
var (
	errRouteNotFound    = errors.New("no route matches the request path")
	errMethodNotAllowed = errors.New("method not allowed on the request path")
)

// now is replaced in tests
var now = time.Now

// badRequestError marks failures caused by the shape of the request itself
type badRequestError struct {
	msg   string
	cause error
}

func (e *badRequestError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *badRequestError) Unwrap() error { return e.cause }

func badRequest(cause error, format string, args ...interface{}) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...), cause: cause}
}

// exceptionFor classifies err into the response body sent to the client.
// Internal failures never expose err itself.
func exceptionFor(r *http.Request, err error) domain.ExceptionDetails {
	var (
		validationErrs validator.ValidationErrors
		badReq         *badRequestError
	)

	switch {
	case errors.Is(err, errRouteNotFound):
		return domain.ExceptionDetails{
			Kind:             domain.KindNotFound,
			Title:            titleNotFound,
			Status:           http.StatusNotFound,
			Details:          fmt.Sprintf("no resource at %s", r.URL.Path),
			DeveloperMessage: err.Error(),
			Timestamp:        now(),
		}
	case errors.Is(err, errMethodNotAllowed):
		return domain.ExceptionDetails{
			Kind:             domain.KindBadRequest,
			Title:            titleBadRequest,
			Status:           http.StatusMethodNotAllowed,
			Details:          fmt.Sprintf("method %s is not supported on %s", r.Method, r.URL.Path),
			DeveloperMessage: err.Error(),
			Timestamp:        now(),
		}
	case errors.Is(err, service.ErrAnimeNotFound):
		return domain.ExceptionDetails{
			Kind:             domain.KindNotFound,
			Title:            titleNotFound,
			Status:           http.StatusNotFound,
			Details:          err.Error(),
			DeveloperMessage: "service.ErrAnimeNotFound",
			Timestamp:        now(),
		}
	case errors.As(err, &validationErrs):
		return domain.ExceptionDetails{
			Kind:             domain.KindValidation,
			Title:            titleValidation,
			Status:           http.StatusBadRequest,
			Details:          "Check the field(s) error",
			DeveloperMessage: "validator.ValidationErrors",
			Timestamp:        now(),
			Fields:           fieldErrors(validationErrs),
		}
	case errors.As(err, &badReq):
		developer := badReq.msg
		if badReq.cause != nil {
			developer = badReq.cause.Error()
		}
		return domain.ExceptionDetails{
			Kind:             domain.KindBadRequest,
			Title:            titleBadRequest,
			Status:           http.StatusBadRequest,
			Details:          badReq.msg,
			DeveloperMessage: developer,
			Timestamp:        now(),
		}
	case errors.Is(err, service.ErrInvalidAnime):
		return domain.ExceptionDetails{
			Kind:             domain.KindBadRequest,
			Title:            titleBadRequest,
			Status:           http.StatusBadRequest,
			Details:          err.Error(),
			DeveloperMessage: "service.ErrInvalidAnime",
			Timestamp:        now(),
		}
	default:
		return internalException(r)
	}
}

func internalException(r *http.Request) domain.ExceptionDetails {
	return domain.ExceptionDetails{
		Kind:             domain.KindInternal,
		Title:            titleInternal,
		Status:           http.StatusInternalServerError,
		Details:          "An unexpected error occurred",
		DeveloperMessage: "request id " + middleware.GetReqID(r.Context()),
		Timestamp:        now(),
	}
}

func fieldErrors(errs validator.ValidationErrors) []domain.FieldError {
	fields := make([]domain.FieldError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, domain.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), strings.ToLower(fe.Tag()))
	}
}

// writeError logs err and writes its ExceptionDetails body
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	details := exceptionFor(r, err)

	event := hlog.FromRequest(r).Warn()
	if details.Kind == domain.KindInternal {
		event = hlog.FromRequest(r).Error()
	}
	event.Err(err).Str("kind", string(details.Kind)).Int("status", details.Status).Msg("request failed")

	writeJSON(w, r, details.Status, details)
}

// writeJSON encodes body with the given status
func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to encode response")
	}
}
