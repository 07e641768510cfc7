// Package client talks to a running animes server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jbweber/homelab/animes/internal/domain"
)

// APIError is returned for every non-2xx response
type APIError struct {
	StatusCode int
	Details    domain.ExceptionDetails
}

func (e *APIError) Error() string {
	if e.Details.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Details.Title, e.Details.Details)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client is a typed wrapper around the /animes endpoints
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid server url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("server url %q must include scheme and host", baseURL)
	}

	c := &Client{baseURL: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// List fetches one page of animes
func (c *Client) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Anime], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	if req.Size > 0 {
		q.Set("size", strconv.Itoa(req.Size))
	}
	if req.Sort.Field != "" {
		q.Set("sort", req.Sort.String())
	}

	var page domain.Page[domain.Anime]
	err := c.do(ctx, http.MethodGet, "/animes", q, nil, &page)
	return page, err
}

// ListAll fetches every anime
func (c *Client) ListAll(ctx context.Context) ([]domain.Anime, error) {
	var animes []domain.Anime
	err := c.do(ctx, http.MethodGet, "/animes/all", nil, nil, &animes)
	return animes, err
}

// Get fetches one anime by ID
func (c *Client) Get(ctx context.Context, id int64) (domain.Anime, error) {
	var anime domain.Anime
	err := c.do(ctx, http.MethodGet, "/animes/"+strconv.FormatInt(id, 10), nil, nil, &anime)
	return anime, err
}

// FindByName fetches every anime named exactly name
func (c *Client) FindByName(ctx context.Context, name string) ([]domain.Anime, error) {
	var animes []domain.Anime
	err := c.do(ctx, http.MethodGet, "/animes/find", url.Values{"name": {name}}, nil, &animes)
	return animes, err
}

// Create adds a new anime and returns it with its ID
func (c *Client) Create(ctx context.Context, name string) (domain.Anime, error) {
	var anime domain.Anime
	err := c.do(ctx, http.MethodPost, "/animes", nil, domain.CreateAnimeRequest{Name: name}, &anime)
	return anime, err
}

// Replace renames an existing anime
func (c *Client) Replace(ctx context.Context, id int64, name string) error {
	return c.do(ctx, http.MethodPut, "/animes", nil, domain.UpdateAnimeRequest{ID: id, Name: name}, nil)
}

// Delete removes an anime
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/animes/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// a body that is not ExceptionDetails still yields the status
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Details)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}
