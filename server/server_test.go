package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/config"
	"github.com/osmandapp/indexd/internal/httperror"
)

func newTestServer(t *testing.T, root string) (*Server, *bytes.Buffer) {
	t.Helper()
	conf := &config.Config{Indexes: &config.IndexesConfig{Root: root}}
	require.NoError(t, conf.Normalize())
	logs := new(bytes.Buffer)
	logger := zerolog.New(zerolog.SyncWriter(logs))
	ctl := catalog.New(root, catalog.WithLogger(logger))
	s, err := New(conf, ctl)
	require.NoError(t, err)
	s.Logger = logger
	return s, logs
}

func seedRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "indexes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "indexes", "Germany_europe_2.obf"), bytes.Repeat([]byte{1}, 300), 0644))
	return root
}

func get(h http.Handler, target string, header ...string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	blob, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return blob
}

func gunzipBytes(t *testing.T, blob []byte) []byte {
	t.Helper()
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	require.NoError(t, err)
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	return out
}

func TestServeCatalog(t *testing.T) {
	root := seedRoot(t)
	s, logs := newTestServer(t, root)
	h := s.Handler()

	resp := get(h, CatalogRoute)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("Content-Encoding"))
	plain := readBody(t, resp)
	assert.Contains(t, string(plain), "<osmand_regions")
	assert.Contains(t, string(plain), `name="Germany europe 2"`)
	onDisk, err := os.ReadFile(filepath.Join(root, catalog.DefaultIndexFile))
	require.NoError(t, err)
	assert.Equal(t, onDisk, plain)
	assert.Contains(t, logs.String(), `"update":false`)

	t.Run("Explicit", func(t *testing.T) {
		resp := get(h, CatalogRoute+"?gzip=true", "Accept-Encoding", "gzip")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/gzip", resp.Header.Get("Content-Type"))
		assert.Empty(t, resp.Header.Get("Content-Encoding"))
		assert.Equal(t, `attachment; filename="indexes.xml.gz"`, resp.Header.Get("Content-Disposition"))
		assert.Equal(t, plain, gunzipBytes(t, readBody(t, resp)))
	})
	t.Run("Negotiated", func(t *testing.T) {
		resp := get(h, CatalogRoute, "Accept-Encoding", "br, gzip;q=0.8")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
		assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
		assert.Equal(t, "Accept-Encoding", resp.Header.Get("Vary"))
		assert.Equal(t, plain, gunzipBytes(t, readBody(t, resp)))
	})
	t.Run("Refused", func(t *testing.T) {
		resp := get(h, CatalogRoute, "Accept-Encoding", "gzip;q=0")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Content-Encoding"))
		assert.Equal(t, plain, readBody(t, resp))
	})
}

func TestServeCatalogUpdate(t *testing.T) {
	root := seedRoot(t)
	s, _ := newTestServer(t, root)
	h := s.Handler()

	first := readBody(t, get(h, CatalogRoute))
	assert.NotContains(t, string(first), "France_europe_2.obf")
	require.NoError(t, os.WriteFile(filepath.Join(root, "indexes", "France_europe_2.obf"), []byte("x"), 0644))

	cached := readBody(t, get(h, CatalogRoute))
	assert.NotContains(t, string(cached), "France_europe_2.obf")
	updated := readBody(t, get(h, CatalogRoute+"?update=true"))
	assert.Contains(t, string(updated), "France_europe_2.obf")
	assert.Equal(t, 2, s.Controller.Status().Last.Packages)
}

func TestServeCatalogBadParameter(t *testing.T) {
	s, _ := newTestServer(t, seedRoot(t))
	resp := get(s.Handler(), CatalogRoute+"?update=maybe")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var p httperror.Problem
	require.NoError(t, json.Unmarshal(readBody(t, resp), &p))
	assert.Equal(t, "update", p.Param)
}

func TestServeCatalogUnavailable(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	s, logs := newTestServer(t, root)
	resp := get(s.Handler(), CatalogRoute)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	var p httperror.Problem
	require.NoError(t, json.Unmarshal(readBody(t, resp), &p))
	assert.Equal(t, httperror.ErrCatalogUnavailable.Type, p.Type)
	assert.Contains(t, logs.String(), "catalog regeneration failed")
	assert.Contains(t, logs.String(), `"problem":"`+httperror.ErrCatalogUnavailable.Type+`"`)
}

func TestServeHealth(t *testing.T) {
	s, logs := newTestServer(t, seedRoot(t))
	h := s.Handler()

	resp := get(h, HealthRoute)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.False(t, s.Healthy())
	// failing probes are still logged
	assert.Contains(t, logs.String(), `"state":"idle"`)

	readBody(t, get(h, CatalogRoute))
	logs.Reset()
	resp = get(h, HealthRoute)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK\r\n", string(readBody(t, resp)))
	assert.True(t, s.Healthy())
	assert.Empty(t, logs.String())

	s.Config.Server.Disabled = true
	resp = get(h, HealthRoute)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.False(t, s.Healthy())
}

func TestServeMetrics(t *testing.T) {
	s, _ := newTestServer(t, seedRoot(t))
	h := s.Handler()
	readBody(t, get(h, CatalogRoute))
	resp := get(h, MetricsRoute)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := string(readBody(t, resp))
	assert.Contains(t, body, "indexd_scans_total")
	assert.Contains(t, body, `indexd_packages{type="map"}`)
}
