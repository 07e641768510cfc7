package api

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/jbweber/homelab/animes/internal/domain"
)

// PagingOptions bounds the page sizes a client may request
type PagingOptions struct {
	DefaultSize int
	MaxSize     int
}

// DefaultPagingOptions returns the stock page sizes
func DefaultPagingOptions() PagingOptions {
	return PagingOptions{DefaultSize: 5, MaxSize: 2000}
}

// parsePageRequest reads page, size and sort from the query string.
// A size above the maximum is clamped rather than rejected.
func parsePageRequest(q url.Values, opts PagingOptions) (domain.PageRequest, error) {
	req := domain.PageRequest{Page: 0, Size: opts.DefaultSize, Sort: domain.DefaultSort}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return domain.PageRequest{}, badRequest(err, "page must be an integer")
		}
		if page < 0 {
			return domain.PageRequest{}, badRequest(nil, "page must not be negative")
		}
		req.Page = page
	}

	if raw := q.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return domain.PageRequest{}, badRequest(err, "size must be an integer")
		}
		if size < 1 {
			return domain.PageRequest{}, badRequest(nil, "size must be at least 1")
		}
		req.Size = size
	}
	if req.Size > opts.MaxSize {
		req.Size = opts.MaxSize
	}
	if req.Page > math.MaxInt/req.Size {
		return domain.PageRequest{}, badRequest(nil, "page %d is out of range for size %d", req.Page, req.Size)
	}

	if raw := q.Get("sort"); raw != "" {
		sort, err := parseSort(raw)
		if err != nil {
			return domain.PageRequest{}, err
		}
		req.Sort = sort
	}

	return req, nil
}

// parseSort accepts "field", "field,asc" or "field,desc"
func parseSort(raw string) (domain.Sort, error) {
	field, dir, _ := strings.Cut(raw, ",")
	sort := domain.Sort{Field: strings.TrimSpace(field)}

	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		sort.Desc = true
	default:
		return domain.Sort{}, badRequest(nil, "sort direction %q must be asc or desc", dir)
	}

	if err := sort.Validate(); err != nil {
		return domain.Sort{}, badRequest(err, "sort field must be one of id, name")
	}
	return sort, nil
}
