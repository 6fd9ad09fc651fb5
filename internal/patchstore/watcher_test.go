package patchstore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/holocron/internal/models"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(kind, id string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+id)
	r.mu.Unlock()
}

func (r *recorder) has(e string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.events {
		if got == e {
			return true
		}
	}
	return false
}

func TestWatch_ReportsSaveAndDelete(t *testing.T) {
	fs := tempFS(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go Watch(ctx, fs.Root(), logger, rec.add)

	time.Sleep(100 * time.Millisecond)

	if err := fs.Put(ctx, &models.LocalPatch{ID: "5", Data: models.Patch{models.FieldName: "Owen"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("saved:5")
	}, "expected saved:5 callback")

	if err := fs.Delete(ctx, "5"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.has("deleted:5")
	}, "expected deleted:5 callback")
}

func TestWatch_IgnoresForeignFiles(t *testing.T) {
	fs := tempFS(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go Watch(ctx, fs.Root(), logger, rec.add)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(fs.Root(), "notes.txt"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != 0 {
		t.Errorf("unexpected events: %v", rec.events)
	}
}
