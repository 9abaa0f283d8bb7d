package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	httpmiddleware "github.com/wolfeidau/sitepack/internal/http"
)

func TestSetup(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, Setup(false).GetLevel())
	require.Equal(t, zerolog.DebugLevel, Setup(true).GetLevel())
}

func TestRequests_Wrap(t *testing.T) {
	var buf bytes.Buffer
	requests := NewRequests(zerolog.New(&buf).Level(zerolog.DebugLevel))

	var ctxLogged bool
	handler := httpmiddleware.ClientIPMiddleware()(requests.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		ctxLogged = true
		http.NotFound(w, r)
	})))

	r := httptest.NewRequest(http.MethodGet, "/missing.js", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.True(t, ctxLogged)
	require.Equal(t, http.StatusNotFound, w.Code)

	out := buf.String()
	require.Contains(t, out, `"path":"/missing.js"`)
	require.Contains(t, out, `"addr":"203.0.113.1"`)
	require.Contains(t, out, `"status":404`)
	require.Contains(t, out, `"message":"http request"`)
	require.Contains(t, out, `"message":"inside handler"`)
}

func TestRequests_Wrap_serverError(t *testing.T) {
	var buf bytes.Buffer
	requests := NewRequests(zerolog.New(&buf).Level(zerolog.InfoLevel))

	handler := requests.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Contains(t, buf.String(), `"level":"error"`)
	require.Contains(t, buf.String(), `"status":500`)
}

func TestRequests_Wrap_withoutClientIP(t *testing.T) {
	var buf bytes.Buffer
	requests := NewRequests(zerolog.New(&buf).Level(zerolog.DebugLevel))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.1")
	requests.Wrap(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), r)

	require.Contains(t, buf.String(), `"addr":""`)
}
