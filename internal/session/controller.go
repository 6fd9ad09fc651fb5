// Package session implements the edit lifecycle for one record at a time:
// load, edit a draft, save the minimal patch, or reset to the canonical
// record.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/merge"
	"github.com/starford/holocron/internal/metrics"
	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/patchstore"
	"github.com/starford/holocron/internal/validate"
)

// Mode is the controller state.
type Mode string

const (
	ModeViewing Mode = "viewing"
	ModeEditing Mode = "editing"
)

// Change kinds passed to a Notifier.
const (
	ChangeSaved   = "saved"
	ChangeDeleted = "deleted"
)

// Source fetches canonical records.
type Source interface {
	GetByID(ctx context.Context, id string) (models.Character, error)
}

// Notifier is told about every patch write a controller performs.
type Notifier func(kind, id string)

// Snapshot is a point-in-time copy of a controller's state.
type Snapshot struct {
	ID              string                  `json:"id"`
	Mode            Mode                    `json:"mode"`
	Effective       *models.EffectiveRecord `json:"effective,omitempty"`
	Draft           models.Fields           `json:"draft,omitempty"`
	Dirty           bool                    `json:"dirty"`
	LocallyModified bool                    `json:"locally_modified"`
	LastModified    *time.Time              `json:"last_modified,omitempty"`
}

// Controller holds the edit session for the record currently in view.
// It is safe for concurrent use. Network and storage calls are made without
// holding the state mutex.
type Controller struct {
	source  Source
	store   *patchstore.Store
	locks   *Locks
	logger  *slog.Logger
	metrics *metrics.Metrics
	notify  Notifier

	mu        sync.Mutex
	gen       uint64
	id        string
	canonical models.Character
	patch     *models.LocalPatch
	effective *models.EffectiveRecord
	mode      Mode
	draft     models.Fields
	dirty     bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLocks shares a lock registry between controllers. Controllers that
// edit the same records must share one.
func WithLocks(l *Locks) Option {
	return func(c *Controller) { c.locks = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithNotifier registers a callback for saved and deleted patches.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// NewController returns a controller in viewing mode with nothing loaded.
func NewController(source Source, store *patchstore.Store, opts ...Option) *Controller {
	c := &Controller{
		source: source,
		store:  store,
		logger: slog.Default(),
		mode:   ModeViewing,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.locks == nil {
		c.locks = NewLocks()
	}
	return c
}

// Load fetches the canonical record and local patch for id and replaces the
// current session with the merged view. Any draft is discarded. A load that
// is overtaken by a later Load returns apperr.ErrStale and changes nothing.
// On failure the previous session is left as it was.
func (c *Controller) Load(ctx context.Context, id string) (snap Snapshot, err error) {
	defer func() { c.metrics.SessionOp("load", err) }()

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	release := c.locks.Read(id)
	canonical, err := c.source.GetByID(ctx, id)
	var (
		lp models.LocalPatch
		ok bool
	)
	if err == nil {
		lp, ok, err = c.store.Get(ctx, id)
	}
	release()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding superseded load", slog.String("id", id))
		return Snapshot{}, fmt.Errorf("load %q: %w", id, apperr.ErrStale)
	}
	if err != nil {
		return Snapshot{}, err
	}

	var patch *models.LocalPatch
	if ok {
		patch = &lp
	}
	eff := merge.Effective(canonical, patch)

	c.id = id
	c.canonical = canonical
	c.patch = patch
	c.effective = &eff
	c.mode = ModeViewing
	c.draft = nil
	c.dirty = false
	return c.snapshot(), nil
}

// BeginEdit seeds a draft from the effective record and enters editing mode.
// It is a no-op while already editing.
func (c *Controller) BeginEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.effective == nil {
		return apperr.ErrNoRecord
	}
	if c.mode == ModeEditing {
		return nil
	}
	c.mode = ModeEditing
	c.draft = c.effective.Character.Fields()
	c.dirty = false
	return nil
}

// UpdateField sets one draft value and recomputes the dirty flag against
// the committed effective record.
func (c *Controller) UpdateField(f models.Field, value string) error {
	if !f.Editable() {
		return fmt.Errorf("%w: %q", apperr.ErrUnknownField, f)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeEditing {
		return fmt.Errorf("update field: %w", apperr.ErrInvalidState)
	}
	c.draft[f] = value
	c.dirty = !merge.Equal(c.draft, c.effective.Character.Fields())
	return nil
}

// CancelEdit discards the draft and returns to viewing mode. It is a no-op
// while viewing. Callers wanting confirmation should check Dirty first.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeEditing {
		return
	}
	c.mode = ModeViewing
	c.draft = nil
	c.dirty = false
}

// Dirty reports whether the draft differs from the committed record.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Save validates the draft, persists the minimal patch against the canonical
// record and returns to viewing mode.
//
// Every editable field of the draft is validated, including values taken
// unchanged from the canonical record, and all failures are reported
// together. An empty diff normally writes nothing. The one exception to that
// no-write rule is a record that already has a patch: the draft now matches
// canonical again, so the stale patch is deleted. On any failure the session
// stays in editing mode with its draft intact.
func (c *Controller) Save(ctx context.Context) (snap Snapshot, err error) {
	defer func() { c.metrics.SessionOp("save", err) }()

	c.mu.Lock()
	if c.effective == nil {
		c.mu.Unlock()
		return Snapshot{}, apperr.ErrNoRecord
	}
	if c.mode != ModeEditing {
		c.mu.Unlock()
		return Snapshot{}, fmt.Errorf("save: %w", apperr.ErrInvalidState)
	}
	id, gen := c.id, c.gen
	canonical := c.canonical.Clone()
	draft := c.draft.Clone()
	diff := merge.Diff(canonical, draft)
	hadPatch := c.patch != nil
	c.mu.Unlock()

	if err := validate.Validate(draft).Err(); err != nil {
		return Snapshot{}, err
	}

	release, err := c.locks.Mutate(id)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save %q: %w", id, err)
	}
	defer release()

	var saved *models.LocalPatch
	switch {
	case !diff.Empty():
		lp, err := c.store.Save(ctx, id, diff)
		if err != nil {
			return Snapshot{}, err
		}
		saved = &lp
		c.emit(ChangeSaved, id)
	case hadPatch:
		if err := c.store.Delete(ctx, id); err != nil {
			return Snapshot{}, err
		}
		c.emit(ChangeDeleted, id)
	default:
		c.logger.Debug("save with empty diff, nothing to persist", slog.String("id", id))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("save completed after navigation, not applied", slog.String("id", id))
		return c.snapshot(), nil
	}
	eff := merge.Effective(canonical, saved)
	c.patch = saved
	c.effective = &eff
	c.mode = ModeViewing
	c.draft = nil
	c.dirty = false
	return c.snapshot(), nil
}

// ResetToCanonical drops the local patch and shows the canonical record. It
// works from either mode and is idempotent. The canonical record is fetched
// before the patch is deleted, so a failure leaves both the session and the
// store untouched and is reported as *apperr.ResetError.
func (c *Controller) ResetToCanonical(ctx context.Context) (snap Snapshot, err error) {
	defer func() { c.metrics.SessionOp("reset", err) }()

	c.mu.Lock()
	if c.id == "" {
		c.mu.Unlock()
		return Snapshot{}, apperr.ErrNoRecord
	}
	id, gen := c.id, c.gen
	c.mu.Unlock()

	release, err := c.locks.Mutate(id)
	if err != nil {
		return Snapshot{}, &apperr.ResetError{ID: id, Err: err}
	}
	defer release()

	canonical, err := c.source.GetByID(ctx, id)
	if err != nil {
		return Snapshot{}, &apperr.ResetError{ID: id, Err: err}
	}
	if err := c.store.Delete(ctx, id); err != nil {
		return Snapshot{}, &apperr.ResetError{ID: id, Err: err}
	}
	c.emit(ChangeDeleted, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("reset completed after navigation, not applied", slog.String("id", id))
		return c.snapshot(), nil
	}
	eff := merge.Effective(canonical, nil)
	c.canonical = canonical
	c.patch = nil
	c.effective = &eff
	c.mode = ModeViewing
	c.draft = nil
	c.dirty = false
	return c.snapshot(), nil
}

func (c *Controller) emit(kind, id string) {
	if c.notify != nil {
		c.notify(kind, id)
	}
}

// snapshot must be called with c.mu held.
func (c *Controller) snapshot() Snapshot {
	s := Snapshot{ID: c.id, Mode: c.mode, Dirty: c.dirty}
	if c.effective != nil {
		eff := *c.effective
		eff.Character = eff.Character.Clone()
		eff.ModifiedFields = append([]models.Field{}, eff.ModifiedFields...)
		s.Effective = &eff
		s.LocallyModified = eff.LocallyModified
		s.LastModified = eff.LastModified
	}
	if c.draft != nil {
		s.Draft = c.draft.Clone()
	}
	return s
}

