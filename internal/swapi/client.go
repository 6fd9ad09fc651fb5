// Package swapi is the read-only remote record source backed by the public
// Star Wars API.
package swapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/metrics"
	"github.com/starford/holocron/internal/models"
)

const (
	DefaultBaseURL = "https://swapi.py4e.com/api"
	DefaultTimeout = 10 * time.Second
)

// Source is the capability the rest of the application needs from the
// remote. Implementations must be safe for concurrent use.
type Source interface {
	GetByID(ctx context.Context, id string) (models.Character, error)
	GetPage(ctx context.Context, page int) (models.Page, error)
	Search(ctx context.Context, query string) (models.Page, error)
}

// Client talks to a SWAPI compatible server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ Source = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a Client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetByID fetches one character. A 404 yields *apperr.NotFoundError.
func (c *Client) GetByID(ctx context.Context, id string) (models.Character, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Character{}, &apperr.NotFoundError{ID: id}
	}

	var ch models.Character
	err := c.get(ctx, "get character", "/people/"+url.PathEscape(id)+"/", nil, &ch)
	if errors.Is(err, errNotFound) {
		return models.Character{}, &apperr.NotFoundError{ID: id}
	}
	if err != nil {
		return models.Character{}, err
	}
	return ch, nil
}

// GetPage fetches a 1-based page of characters.
func (c *Client) GetPage(ctx context.Context, page int) (models.Page, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{"page": {strconv.Itoa(page)}}

	var p models.Page
	err := c.get(ctx, "get page", "/people/", q, &p)
	if errors.Is(err, errNotFound) {
		// Past the last page upstream answers 404.
		return models.Page{Results: []models.Character{}}, nil
	}
	if err != nil {
		return models.Page{}, err
	}
	return p, nil
}

// Search fetches the characters whose name matches query.
func (c *Client) Search(ctx context.Context, query string) (models.Page, error) {
	q := url.Values{"search": {query}}

	var p models.Page
	if err := c.get(ctx, "search", "/people/", q, &p); err != nil {
		if errors.Is(err, errNotFound) {
			return models.Page{Results: []models.Character{}}, nil
		}
		return models.Page{}, err
	}
	return p, nil
}

var errNotFound = errors.New("remote 404")

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) (err error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	start := time.Now()
	defer func() {
		metricErr := err
		if errors.Is(err, errNotFound) {
			metricErr = nil
		}
		c.metrics.ObserveRemote(op, metricErr, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &apperr.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("remote request failed",
			slog.String("op", op),
			slog.String("url", u),
			slog.String("error", err.Error()))
		return &apperr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("remote request",
		slog.String("op", op),
		slog.String("url", u),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return errNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &apperr.NetworkError{Op: op, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
