package zhttp

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
		case "/download/indexes.xml":
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("append1", "always")
			})
			AppendAccessLog(r, func(e *zerolog.Event) {
				e.Bool("update", true)
			})
			hlog.FromRequest(r).Info().Msg("a message")
		case "/panic":
			panic("oops")
		default:
			http.NotFound(w, r)
			return
		}
	})
	var buf bytes.Buffer
	mw := loggingMiddleware(zerolog.New(&buf), fakeTime(), []string{"/health"})
	newReq := func(path string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.RemoteAddr = "192.168.1.1:12345"
		r.Header.Set("X-Request-Id", "00000000")
		r.Header.Set("User-Agent", "unittest")
		return r
	}

	t.Run("Catalog", func(t *testing.T) {
		buf.Reset()
		r, w := newReq("/download/indexes.xml"), httptest.NewRecorder()
		mw(h).ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Equal(t, `{"level":"info","ip":"192.168.1.1","req_id":"00000000","append1":"always","message":"a message"}
{"level":"info","ip":"192.168.1.1","req_id":"00000000","append1":"always","method":"GET","url":"/download/indexes.xml","status":200,"len":0,"dur":1000,"ua":"unittest","update":true}
`, buf.String())
	})
	t.Run("Quiet", func(t *testing.T) {
		buf.Reset()
		r, w := newReq("/health"), httptest.NewRecorder()
		mw(h).ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Result().StatusCode)
		assert.Empty(t, buf.String())
	})
	t.Run("NotFound", func(t *testing.T) {
		buf.Reset()
		r, w := newReq("/nope"), httptest.NewRecorder()
		mw(h).ServeHTTP(w, r)
		require.Equal(t, http.StatusNotFound, w.Result().StatusCode)
		assert.Contains(t, buf.String(), `"status":404`)
		assert.Contains(t, buf.String(), `"len":19`)
	})
	t.Run("Panic", func(t *testing.T) {
		buf.Reset()
		r, w := newReq("/panic"), httptest.NewRecorder()
		mw(RecoveryMiddleware(h)).ServeHTTP(w, r)
		require.Equal(t, http.StatusInternalServerError, w.Result().StatusCode)
		assert.Contains(t, buf.String(), `"error":"oops"`)
		assert.Contains(t, buf.String(), `"stack":`)
	})
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "127.0.0.1", StripPort("127.0.0.1:1234"))
	assert.Equal(t, "fe80::1", StripPort("[fe80::1]:1234"))
	assert.Equal(t, "fe80::1", StripPort("fe80::1"))
	assert.Equal(t, "localhost", StripPort("localhost"))
}

func fakeTime() func() time.Time {
	ts := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}
}
