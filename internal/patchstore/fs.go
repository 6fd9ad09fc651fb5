package patchstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

const patchExt = ".json"

var safeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FS is a Backend storing each patch as <root>/<id>.json.
type FS struct {
	root string // absolute path to the patch directory
}

var _ Backend = (*FS)(nil)

// NewFS creates an FS backend rooted at dir, creating it if needed.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("patchstore: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("patchstore: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("patchstore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("patchstore: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute patch directory.
func (f *FS) Root() string {
	return f.root
}

// pathFor maps an id to its file. Ids are restricted to a safe alphabet so
// the result can never leave the root.
func (f *FS) pathFor(id string) (string, error) {
	if !safeIDRe.MatchString(id) {
		return "", fmt.Errorf("invalid patch id %q", id)
	}
	return filepath.Join(f.root, id+patchExt), nil
}

// idFromPath is the inverse of pathFor. ok is false for foreign files.
func idFromPath(p string) (string, bool) {
	base := filepath.Base(p)
	if !strings.HasSuffix(base, patchExt) {
		return "", false
	}
	id := strings.TrimSuffix(base, patchExt)
	return id, safeIDRe.MatchString(id)
}

func (f *FS) Get(_ context.Context, id string) (*models.LocalPatch, error) {
	p, err := f.pathFor(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	var lp models.LocalPatch
	if err := json.Unmarshal(data, &lp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	lp.ID = id
	return &lp, nil
}

// Put atomically writes the patch: tmp file → fsync → rename.
func (f *FS) Put(_ context.Context, lp *models.LocalPatch) error {
	dst, err := f.pathFor(lp.ID)
	if err != nil {
		return err
	}
	content, err := json.MarshalIndent(lp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", lp.ID, err)
	}

	tmp, err := os.CreateTemp(f.root, ".holocron-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	success = true
	return nil
}

func (f *FS) Delete(_ context.Context, id string) error {
	p, err := f.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

func (f *FS) List(ctx context.Context) ([]models.LocalPatch, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	var out []models.LocalPatch
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := idFromPath(e.Name())
		if !ok {
			continue
		}
		lp, err := f.Get(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue // removed between ReadDir and Get
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *lp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FS) Close() error { return nil }
