package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/holocron/internal/metrics"
)

// DefaultIdleTimeout is how long an untouched session survives.
const DefaultIdleTimeout = 30 * time.Minute

// Registry hands out controllers to remote clients under opaque session ids
// and evicts the ones left idle.
type Registry struct {
	factory func() *Controller
	idle    time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	ctrl     *Controller
	lastUsed time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryClock overrides the time source used for idle tracking.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithRegistryMetrics reports the live session count.
func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry returns a registry creating controllers with factory. A
// non-positive idle duration selects DefaultIdleTimeout.
func NewRegistry(factory func() *Controller, idle time.Duration, opts ...RegistryOption) *Registry {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	r := &Registry{
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		logger:   slog.Default(),
		sessions: make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *Controller) {
	id := uuid.NewString()
	ctrl := r.factory()

	r.mu.Lock()
	r.sessions[id] = &registryEntry{ctrl: ctrl, lastUsed: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetLiveSessions(n)
	r.logger.Debug("session created", slog.String("session_id", id))
	return id, ctrl
}

// Get returns the controller for id and marks it used.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.ctrl, true
}

// Delete ends the session id. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetLiveSessions(n)
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the idle timeout and returns
// how many were removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	removed := 0
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetLiveSessions(n)
	if removed > 0 {
		r.logger.Info("evicted idle sessions", slog.Int("count", removed), slog.Int("live", n))
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}
