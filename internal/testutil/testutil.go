// Package testutil provides shared test helpers: patch stores backed by temp
// files, an in-memory remote source and a fake SWAPI server.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/patchstore"
)

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestStore creates a patch store over a temporary SQLite database that is
// automatically cleaned up.
func TestStore(t *testing.T) *patchstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "holocron-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := patchstore.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	store := patchstore.New(db, patchstore.WithLogger(Logger()))
	t.Cleanup(func() { store.Close() })
	return store
}

// Character builds a canonical record for id with the given editable values.
func Character(id string, fields models.Fields) models.Character {
	c := models.Character{URL: "https://swapi.py4e.com/api/people/" + id + "/"}
	for f, v := range fields {
		c.Set(f, v)
	}
	return c
}

// Luke is the canonical record for id "1".
func Luke() models.Character {
	return Character("1", models.Fields{
		models.FieldName:      "Luke Skywalker",
		models.FieldHeight:    "172",
		models.FieldMass:      "77",
		models.FieldHairColor: "blond",
		models.FieldSkinColor: "fair",
		models.FieldEyeColor:  "blue",
		models.FieldBirthYear: "19BBY",
		models.FieldGender:    "male",
	})
}

// R2D2 is the canonical record for id "3".
func R2D2() models.Character {
	return Character("3", models.Fields{
		models.FieldName:      "R2-D2",
		models.FieldHeight:    "96",
		models.FieldMass:      "32",
		models.FieldHairColor: "n/a",
		models.FieldSkinColor: "white, blue",
		models.FieldEyeColor:  "red",
		models.FieldBirthYear: "33BBY",
		models.FieldGender:    "n/a",
	})
}

// Source is an in-memory remote record source. Failures and blocking can be
// injected per call to exercise error paths and races.
type Source struct {
	mu       sync.Mutex
	records  map[string]models.Character
	pageSize int
	err      error
	calls    int
	gates    map[string]chan struct{}
}

// NewSource returns a Source serving records.
func NewSource(records ...models.Character) *Source {
	s := &Source{
		records:  make(map[string]models.Character),
		pageSize: 10,
		gates:    make(map[string]chan struct{}),
	}
	for _, r := range records {
		s.records[r.ID()] = r
	}
	return s
}

// Fail makes every subsequent call return err. A nil err restores normal
// behaviour.
func (s *Source) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Calls returns how many requests were made.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Put replaces the canonical record for r.ID().
func (s *Source) Put(r models.Character) {
	s.mu.Lock()
	s.records[r.ID()] = r
	s.mu.Unlock()
}

// Block makes GetByID for id wait until the returned release func is called.
func (s *Source) Block(id string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[id] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Source) GetByID(ctx context.Context, id string) (models.Character, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gates[id]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Character{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Character{}, s.err
	}
	r, ok := s.records[id]
	if !ok {
		return models.Character{}, &apperr.NotFoundError{ID: id}
	}
	return r.Clone(), nil
}

func (s *Source) GetPage(_ context.Context, page int) (models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return models.Page{}, s.err
	}
	all := s.sorted("")
	start := (page - 1) * s.pageSize
	if start < 0 || start >= len(all) {
		return models.Page{Count: len(all), Results: []models.Character{}}, nil
	}
	end := min(start+s.pageSize, len(all))
	return models.Page{Count: len(all), Results: all[start:end]}, nil
}

func (s *Source) Search(_ context.Context, query string) (models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return models.Page{}, s.err
	}
	res := s.sorted(query)
	return models.Page{Count: len(res), Results: res}, nil
}

func (s *Source) sorted(query string) []models.Character {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})

	out := []models.Character{}
	q := strings.ToLower(query)
	for _, id := range ids {
		r := s.records[id]
		if q != "" && !strings.Contains(strings.ToLower(r.Name), q) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

// SWAPIServer starts an httptest server speaking the SWAPI people endpoints
// on top of src. Base URL is server.URL + "/api".
func SWAPIServer(t *testing.T, src *Source) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/people/{id}/{$}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := src.GetByID(r.Context(), r.PathValue("id"))
		writeResult(w, rec, err)
	})
	mux.HandleFunc("/api/people/{$}", func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("search"); r.URL.Query().Has("search") {
			page, err := src.Search(r.Context(), q)
			writeResult(w, page, err)
			return
		}
		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if n < 1 {
			n = 1
		}
		page, err := src.GetPage(r.Context(), n)
		if err == nil && len(page.Results) == 0 && n > 1 {
			http.Error(w, `{"detail":"Not found"}`, http.StatusNotFound)
			return
		}
		if err == nil && n*src.pageSize < page.Count {
			next := fmt.Sprintf("http://%s/api/people/?page=%d", r.Host, n+1)
			page.Next = &next
		}
		writeResult(w, page, err)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeResult(w http.ResponseWriter, v any, err error) {
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.Error(w, `{"detail":"Not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
