package domain

import "fmt"

// Sortable fields for paged listings.
const (
	SortByID   = "id"
	SortByName = "name"
)

// Sort orders a paged listing by a single column.
type Sort struct {
	Field string
	Desc  bool
}

// DefaultSort orders by id, oldest first.
var DefaultSort = Sort{Field: SortByID}

// Validate rejects fields outside the sortable set.
func (s Sort) Validate() error {
	switch s.Field {
	case SortByID, SortByName:
		return nil
	default:
		return fmt.Errorf("unsupported sort field %q", s.Field)
	}
}

// String renders the sort the way it is accepted on the query string.
func (s Sort) String() string {
	if s.Desc {
		return s.Field + ",desc"
	}
	return s.Field + ",asc"
}

// PageRequest selects a zero-based page of a listing.
type PageRequest struct {
	Page int
	Size int
	Sort Sort
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is a bounded slice of a result set plus the metadata needed to walk it.
type Page[T any] struct {
	Content          []T   `json:"content"`
	Number           int   `json:"number"`
	Size             int   `json:"size"`
	NumberOfElements int   `json:"numberOfElements"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int   `json:"totalPages"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	Empty            bool  `json:"empty"`
}

// NewPage assembles a Page from one slice of rows and the total row count.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}

	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}

	return Page[T]{
		Content:          content,
		Number:           req.Page,
		Size:             req.Size,
		NumberOfElements: len(content),
		TotalElements:    total,
		TotalPages:       totalPages,
		First:            req.Page == 0,
		Last:             req.Page+1 >= totalPages,
		Empty:            len(content) == 0,
	}
}
