package session

import (
	"sync"

	"github.com/starford/holocron/internal/apperr"
)

// Locks serializes work per record identifier across every controller that
// shares it. Reads wait for an in-flight mutation; a second mutation on the
// same identifier fails fast with apperr.ErrBusy.
type Locks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	rw   sync.RWMutex
	busy bool
	refs int
}

// NewLocks returns an empty lock registry.
func NewLocks() *Locks {
	return &Locks{entries: make(map[string]*lockEntry)}
}

// Read blocks until no mutation holds id and returns the release func.
func (l *Locks) Read(id string) (release func()) {
	e := l.acquire(id, false)
	e.rw.RLock()
	return func() {
		e.rw.RUnlock()
		l.release(id, false)
	}
}

// Mutate claims id for a mutation. It returns apperr.ErrBusy when another
// mutation already holds id; otherwise it waits for in-flight reads and
// returns the release func.
func (l *Locks) Mutate(id string) (release func(), err error) {
	e := l.acquire(id, true)
	if e == nil {
		return nil, apperr.ErrBusy
	}
	e.rw.Lock()
	return func() {
		e.rw.Unlock()
		l.release(id, true)
	}, nil
}

// Busy reports whether a mutation currently holds id.
func (l *Locks) Busy(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	return ok && e.busy
}

// Len returns the number of identifiers with a live lock entry.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Locks) acquire(id string, mutate bool) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{}
		l.entries[id] = e
	}
	if mutate {
		if e.busy {
			return nil
		}
		e.busy = true
	}
	e.refs++
	return e
}

func (l *Locks) release(id string, mutate bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[id]
	if mutate {
		e.busy = false
	}
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}
