package api

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/animes/internal/domain"
)

func TestParsePageRequest(t *testing.T) {
	opts := PagingOptions{DefaultSize: 5, MaxSize: 50}

	tests := []struct {
		name  string
		query string
		want  domain.PageRequest
	}{
		{"defaults", "", domain.PageRequest{Page: 0, Size: 5, Sort: domain.DefaultSort}},
		{"explicit", "page=3&size=7", domain.PageRequest{Page: 3, Size: 7, Sort: domain.DefaultSort}},
		{"clamped", "size=51", domain.PageRequest{Size: 50, Sort: domain.DefaultSort}},
		{"sort field only", "sort=name", domain.PageRequest{Size: 5, Sort: domain.Sort{Field: "name"}}},
		{"sort desc", "sort=id,DESC", domain.PageRequest{Size: 5, Sort: domain.Sort{Field: "id", Desc: true}}},
		{"sort asc", "sort=name,asc", domain.PageRequest{Size: 5, Sort: domain.Sort{Field: "name"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := parsePageRequest(q, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePageRequest_Invalid(t *testing.T) {
	for _, query := range []string{"page=-1", "page=1.5", "size=-3", "size=0", "sort=rating", "sort=name,up", "sort=,asc", "page=4611686018427387904&size=2", "page=9223372036854775807"} {
		t.Run(query, func(t *testing.T) {
			q, err := url.ParseQuery(query)
			require.NoError(t, err)

			_, err = parsePageRequest(q, DefaultPagingOptions())
			var badReq *badRequestError
			assert.ErrorAs(t, err, &badReq)
		})
	}
}
