package patchstore

import (
	"context"
	"sort"
	"sync"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

// Memory is an in-process Backend. Nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	patches map[string]models.LocalPatch
}

var _ Backend = (*Memory)(nil)

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{patches: make(map[string]models.LocalPatch)}
}

func (m *Memory) Get(_ context.Context, id string) (*models.LocalPatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patches[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	p.Data = p.Data.Clone()
	return &p, nil
}

func (m *Memory) Put(_ context.Context, p *models.LocalPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.Data = p.Data.Clone()
	m.patches[p.ID] = cp
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.patches, id)
	return nil
}

func (m *Memory) List(_ context.Context) ([]models.LocalPatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.LocalPatch, 0, len(m.patches))
	for _, p := range m.patches {
		p.Data = p.Data.Clone()
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of stored patches.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.patches)
}

func (m *Memory) Close() error { return nil }
