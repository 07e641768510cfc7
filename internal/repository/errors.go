package repository

import (
	"github.com/pkg/errors"
)

// Sentinels checked with errors.Is by the service layer
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidEntity = errors.New("invalid entity")
)

// notFound wraps ErrNotFound with the kind and ID that were missing
func notFound(kind string, id int64) error {
	return errors.Wrapf(ErrNotFound, "%s with ID %d", kind, id)
}
