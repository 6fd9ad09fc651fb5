// Package patchstore persists sparse local patches keyed by record
// identifier. The persistence engine is an injected Backend so tests and
// deployments can choose between SQLite, plain files, Redis and memory.
package patchstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/metrics"
	"github.com/starford/holocron/internal/models"
)

// Backend is the persistence capability behind a Store.
//
// Get returns apperr.ErrNotFound when id has no entry. Delete of an absent id
// must succeed. Put overwrites any existing entry for p.ID.
type Backend interface {
	Get(ctx context.Context, id string) (*models.LocalPatch, error)
	Put(ctx context.Context, p *models.LocalPatch) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.LocalPatch, error)
	Close() error
}

// Store is the local patch store used by sessions and the catalog.
type Store struct {
	backend Backend
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New wraps backend in a Store.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes patch for id with a fresh timestamp, replacing any previous
// entry. Empty patches are rejected: an empty diff means nothing to persist.
func (s *Store) Save(ctx context.Context, id string, patch models.Patch) (models.LocalPatch, error) {
	if id == "" {
		return models.LocalPatch{}, fmt.Errorf("patchstore: save: empty id")
	}
	if patch.Empty() {
		return models.LocalPatch{}, fmt.Errorf("patchstore: save %q: %w", id, apperr.ErrEmptyPatch)
	}

	lp := models.LocalPatch{
		ID:           id,
		Data:         patch.Clone(),
		LastModified: s.now().UTC().Truncate(time.Millisecond),
	}
	err := s.backend.Put(ctx, &lp)
	s.metrics.PatchOp("save", err)
	if err != nil {
		return models.LocalPatch{}, &apperr.StorageError{Op: "save", ID: id, Err: err}
	}

	s.logger.Debug("patch saved", slog.String("id", id), slog.Int("fields", len(patch)))
	return lp, nil
}

// Get returns the patch for id. ok is false when no patch exists; err is
// only set for backend faults.
func (s *Store) Get(ctx context.Context, id string) (lp models.LocalPatch, ok bool, err error) {
	p, err := s.backend.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		s.metrics.PatchOp("get", nil)
		return models.LocalPatch{}, false, nil
	}
	s.metrics.PatchOp("get", err)
	if err != nil {
		return models.LocalPatch{}, false, &apperr.StorageError{Op: "get", ID: id, Err: err}
	}
	return *p, true, nil
}

// Delete removes the patch for id. Deleting an absent patch is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.backend.Delete(ctx, id)
	s.metrics.PatchOp("delete", err)
	if err != nil {
		return &apperr.StorageError{Op: "delete", ID: id, Err: err}
	}
	s.logger.Debug("patch deleted", slog.String("id", id))
	return nil
}

// List returns every stored patch ordered by id.
func (s *Store) List(ctx context.Context) ([]models.LocalPatch, error) {
	out, err := s.backend.List(ctx)
	s.metrics.PatchOp("list", err)
	if err != nil {
		return nil, &apperr.StorageError{Op: "list", Err: err}
	}
	return out, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
