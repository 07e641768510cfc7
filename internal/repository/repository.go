package repository

import (
	"context"

	"github.com/jbweber/homelab/animes/internal/domain"
)

// Repository is the CRUD surface shared by every entity store. Save inserts
// when the entity has no ID yet and updates otherwise.
type Repository[T any, ID comparable] interface {
	Save(ctx context.Context, entity T) (T, error)

	// FindByID returns ErrNotFound when no row has the ID
	FindByID(ctx context.Context, id ID) (T, error)

	// FindAll returns every row ordered by ID, never nil
	FindAll(ctx context.Context) ([]T, error)

	// DeleteByID returns ErrNotFound when no row has the ID
	DeleteByID(ctx context.Context, id ID) error

	ExistsByID(ctx context.Context, id ID) (bool, error)
}

// Pager returns bounded, ordered slices of a table
type Pager[T any] interface {
	// FindPage rejects sort fields outside the entity's sortable set with ErrInvalidEntity
	FindPage(ctx context.Context, req domain.PageRequest) (domain.Page[T], error)
}
