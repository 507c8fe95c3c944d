package httperror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemServeHTTP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/download/indexes.xml", nil)
	w := httptest.NewRecorder()
	ErrCatalogUnavailable.ServeHTTP(w, req)
	resp := w.Result()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	var p Problem
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, *ErrCatalogUnavailable, p)
}

func TestProblemError(t *testing.T) {
	p := BadParameterError("update", errors.New(`invalid syntax`))
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "update", p.Param)
	assert.Equal(t, "HTTP 400 ["+ProblemBase+"bad-parameter]: Parameter update is invalid: invalid syntax", p.Error())
	assert.Equal(t, "HTTP 503 Catalog Unavailable: "+ErrCatalogUnavailable.Detail, ErrCatalogUnavailable.Error())
}
