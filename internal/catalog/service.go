// Package catalog serves read-only effective views: canonical records from
// the remote source with their local patches applied.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/merge"
	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/patchstore"
)

// DefaultPageSize is the upstream page size used for total_pages.
const DefaultPageSize = 10

const maxParallelFetches = 4

// Source is the remote record source.
type Source interface {
	GetByID(ctx context.Context, id string) (models.Character, error)
	GetPage(ctx context.Context, page int) (models.Page, error)
	Search(ctx context.Context, query string) (models.Page, error)
}

// ReadLocker hands out per-id read locks. Reads of an id wait while a save or
// reset of that id is in flight.
type ReadLocker interface {
	Read(id string) (release func())
}

type noLocks struct{}

func (noLocks) Read(string) func() { return func() {} }

// Service builds effective pages and records.
type Service struct {
	source   Source
	store    *patchstore.Store
	locks    ReadLocker
	pageSize int
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLocks makes every per-id read take a read lock from l. It must be the
// lock set shared with the edit session controllers.
func WithLocks(l ReadLocker) Option {
	return func(s *Service) {
		if l != nil {
			s.locks = l
		}
	}
}

// NewService returns a Service. A non-positive pageSize selects
// DefaultPageSize.
func NewService(source Source, store *patchstore.Store, pageSize int, logger *slog.Logger, opts ...Option) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{source: source, store: store, locks: noLocks{}, pageSize: pageSize, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns upstream page n with patches applied. Pages below 1 are
// treated as 1.
func (s *Service) List(ctx context.Context, n int) (models.EffectivePage, error) {
	if n < 1 {
		n = 1
	}
	page, err := s.source.GetPage(ctx, n)
	if err != nil {
		return models.EffectivePage{}, err
	}
	return s.overlay(ctx, page, n)
}

// Search returns the records matching query with patches applied. A blank
// query yields an empty page without contacting the remote.
func (s *Service) Search(ctx context.Context, query string) (models.EffectivePage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.EffectivePage{Page: 1, Results: []models.EffectiveRecord{}}, nil
	}
	page, err := s.source.Search(ctx, query)
	if err != nil {
		return models.EffectivePage{}, err
	}
	return s.overlay(ctx, page, 1)
}

// Get returns the effective record for id.
func (s *Service) Get(ctx context.Context, id string) (models.EffectiveRecord, error) {
	release := s.locks.Read(id)
	defer release()

	canonical, err := s.source.GetByID(ctx, id)
	if err != nil {
		return models.EffectiveRecord{}, err
	}
	lp, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return models.EffectiveRecord{}, err
	}
	if !ok {
		return merge.Effective(canonical, nil), nil
	}
	return merge.Effective(canonical, &lp), nil
}

// Modified returns the effective record of every locally modified id,
// ordered by id. Records the remote no longer serves are skipped.
func (s *Service) Modified(ctx context.Context) ([]models.EffectiveRecord, error) {
	patches, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.EffectiveRecord, len(patches))
	found := make([]bool, len(patches))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i := range patches {
		g.Go(func() error {
			id := patches[i].ID
			release := s.locks.Read(id)
			defer release()

			canonical, err := s.source.GetByID(gCtx, id)
			if errors.Is(err, apperr.ErrNotFound) {
				s.logger.Warn("patched record missing upstream", slog.String("id", id))
				return nil
			}
			if err != nil {
				return err
			}
			// Re-read under the lock; the listing may predate a save or reset.
			lp, ok, err := s.store.Get(gCtx, id)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			out[i] = merge.Effective(canonical, &lp)
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := make([]models.EffectiveRecord, 0, len(out))
	for i, rec := range out {
		if found[i] {
			res = append(res, rec)
		}
	}
	return res, nil
}

func (s *Service) overlay(ctx context.Context, page models.Page, n int) (models.EffectivePage, error) {
	out := models.EffectivePage{
		Count:      page.Count,
		Page:       n,
		TotalPages: (page.Count + s.pageSize - 1) / s.pageSize,
		Results:    make([]models.EffectiveRecord, len(page.Results)),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, canonical := range page.Results {
		g.Go(func() error {
			release := s.locks.Read(canonical.ID())
			defer release()

			lp, ok, err := s.store.Get(gCtx, canonical.ID())
			if err != nil {
				return err
			}
			if ok {
				out.Results[i] = merge.Effective(canonical, &lp)
			} else {
				out.Results[i] = merge.Effective(canonical, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.EffectivePage{}, err
	}
	return out, nil
}
