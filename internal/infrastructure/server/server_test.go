package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anon-safe/safe-launcher/internal/infrastructure/config"
	"github.com/anon-safe/safe-launcher/internal/shared/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	cfg := config.Default()
	cfg.Crypto.KeyFile = filepath.Join(dir, "launcher.key")
	cfg.RateLimit.Enabled = false
	return cfg
}

func request(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServerLifecycle(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServer(cfg)
	require.NoError(t, err)

	w := request(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(s, http.MethodPost, "/apps", `{"absolute_path":"/apps/editor"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var added types.AddResult
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &added))

	w = request(s, http.MethodDelete, "/apps/"+added.AppID.String(), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var removed types.RemoveResult
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &removed))
	assert.True(t, removed.Reclaimed)

	w = request(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "launcher_lifecycle_requests_total")

	require.NoError(t, s.Close())

	info, err := os.Stat(cfg.Crypto.KeyFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(filepath.Join(os.TempDir(), cfg.Launcher.LocalConfigFile))
	assert.NoError(t, err, "local cache persisted on close")

	w = request(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServerRestartOverEmptyStore(t *testing.T) {
	cfg := testConfig(t)

	s, err := NewServer(cfg)
	require.NoError(t, err)
	w := request(s, http.MethodPost, "/apps", `{"absolute_path":"/apps/editor"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var first types.AddResult
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &first))
	require.NoError(t, s.Close())

	// The shared tree lived in memory, so the restored local entry has no row
	s, err = NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.Equal(t, 0, s.Launcher().Stats().LocalApps)

	w = request(s, http.MethodPost, "/apps", `{"absolute_path":"/apps/editor"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var again types.AddResult
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &again))
	assert.False(t, again.Duplicate)
	assert.NotEqual(t, first.AppID, again.AppID)
}

func TestServerRejectsBadLogLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Level = "loud"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}
