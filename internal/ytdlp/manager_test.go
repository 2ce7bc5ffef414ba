package ytdlp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newReleaseServer serves a fake GitHub release whose single asset matches
// the current platform.
func newReleaseServer(t *testing.T, tag, binary string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		release := map[string]interface{}{
			"tag_name": tag,
			"assets": []map[string]string{
				{
					"name":                 assetName(),
					"browser_download_url": server.URL + "/asset",
				},
			},
		}
		json.NewEncoder(w).Encode(release)
	})
	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, binary)
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestManager(t *testing.T, server *httptest.Server) *Manager {
	t.Helper()

	m := NewManager(t.TempDir(), zerolog.Nop())
	m.releaseURL = server.URL + "/release"
	m.httpClient = server.Client()
	return m
}

func TestManagerDownload(t *testing.T) {
	server := newReleaseServer(t, "2026.01.01", "fake-binary-content")
	m := newTestManager(t, server)

	require.False(t, m.IsInstalled())

	err := m.Download()
	require.NoError(t, err)

	assert.True(t, m.IsInstalled())

	data, err := os.ReadFile(m.BinPath())
	require.NoError(t, err)
	assert.Equal(t, "fake-binary-content", string(data))

	info, err := os.Stat(m.BinPath())
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0100, "binary should be executable")
}

func TestManagerEnsureInstalled(t *testing.T) {
	server := newReleaseServer(t, "2026.01.01", "bin")
	m := newTestManager(t, server)

	require.NoError(t, m.EnsureInstalled())
	assert.True(t, m.IsInstalled())

	// Second call is a no-op.
	require.NoError(t, m.EnsureInstalled())
}

func TestManagerCheckForUpdate(t *testing.T) {
	server := newReleaseServer(t, "2026.02.02", "bin")
	m := newTestManager(t, server)

	tag, hasUpdate, err := m.CheckForUpdate()
	require.NoError(t, err)
	assert.Equal(t, "2026.02.02", tag)
	assert.True(t, hasUpdate, "missing binary always counts as outdated")

	require.NoError(t, m.Download())

	_, hasUpdate, err = m.CheckForUpdate()
	require.NoError(t, err)
	assert.False(t, hasUpdate)
}

func TestManagerDownloadNoAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"tag_name": "2026.01.01",
			"assets":   []map[string]string{},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	m := newTestManager(t, server)
	err := m.Download()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no release asset")
}

func TestManagerReleaseAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	m := newTestManager(t, server)
	m.releaseURL = server.URL

	_, _, err := m.CheckForUpdate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
