package internal

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/patchstore"
	"github.com/starford/holocron/internal/testutil"
)

func openTestServices(t *testing.T) (*Services, *httptest.Server) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Store.Driver = StoreDriverMemory

	s, err := Open(
		WithConfig(cfg),
		WithLogger(testutil.Logger()),
		WithSource(testutil.NewSource(testutil.Luke(), testutil.R2D2())),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func TestOpenRequiresConfig(t *testing.T) {
	_, err := Open()
	require.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Driver = StoreDriverFS
	cfg.Store.FS.Path = t.TempDir()

	s, err := Open(WithConfig(cfg), WithLogger(testutil.Logger()))
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &patchstore.FS{}, s.backend)

	mem := patchstore.NewMemory()
	s2, err := Open(WithConfig(cfg), WithLogger(testutil.Logger()), WithBackend(mem))
	require.NoError(t, err)
	defer s2.Close()
	assert.Same(t, mem, s2.backend)
}

func TestHealthEndpoints(t *testing.T) {
	_, srv := openTestServices(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestEditThroughServerIsVisibleAndMetered(t *testing.T) {
	s, srv := openTestServices(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/characters/1",
		strings.NewReader(`{"fields":{"height":"175"}}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/characters/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rec models.EffectiveRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.True(t, rec.LocallyModified)
	assert.Equal(t, "175", rec.Character.Height)

	lp, ok, err := s.Store.Get(t.Context(), "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.Patch{models.FieldHeight: "175"}, lp.Data)

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "holocron_patch_operations_total")
	assert.Contains(t, string(body), "holocron_http_requests_total")
}

func TestTokenAuthGuardsAPI(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Store.Driver = StoreDriverMemory
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "secret"}

	s, err := Open(WithConfig(cfg), WithLogger(testutil.Logger()),
		WithSource(testutil.NewSource(testutil.Luke())))
	require.NoError(t, err)
	defer s.Close()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/characters/1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
