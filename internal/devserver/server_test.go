package devserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/sitepack/internal/assets"
	"github.com/wolfeidau/sitepack/internal/config"
)

type countingBuilder struct {
	calls atomic.Int32
	err   error
}

func (b *countingBuilder) Build(ctx context.Context) (*assets.Result, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return &assets.Result{BuildID: "test"}, nil
}

func newTestServer(t *testing.T, opts config.DevServer) (*Server, string) {
	t.Helper()

	root := t.TempDir()
	out := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("<html><body>home</body></html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(out, "js", "app.js"), []byte(strings.Repeat("console.log('app');\n", 200)), 0o600))

	cfg := config.Default(root)
	opts.Directory = out
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	cfg.DevServer = opts

	s := New(cfg, &countingBuilder{})
	s.open = func(string) error { return nil }
	return s, out
}

func TestServer_Handler(t *testing.T) {
	s, _ := newTestServer(t, config.DevServer{})
	handler := s.Handler(zerolog.Nop())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "home")
	require.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/js/app.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "console.log")
}

func TestServer_Handler_logsClientIP(t *testing.T) {
	s, _ := newTestServer(t, config.DevServer{})

	var buf bytes.Buffer
	handler := s.Handler(zerolog.New(&buf).Level(zerolog.DebugLevel))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Real-IP", "198.51.100.7")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.Contains(t, buf.String(), `"addr":"198.51.100.7"`)
	require.Contains(t, buf.String(), `"message":"http request"`)
}

func TestServer_Handler_notFound(t *testing.T) {
	s, out := newTestServer(t, config.DevServer{})
	handler := s.Handler(zerolog.Nop())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, os.WriteFile(filepath.Join(out, "404.html"), []byte("<p>not found page</p>"), 0o600))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "not found page")
	require.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/../../etc/passwd", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Handler_compress(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		encoding string
	}{
		{name: "compressed", compress: true, encoding: "gzip"},
		{name: "plain", compress: false, encoding: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, config.DevServer{Compress: tt.compress})
			handler := s.Handler(zerolog.Nop())

			r := httptest.NewRequest(http.MethodGet, "/js/app.js", nil)
			r.Header.Set("Accept-Encoding", "gzip")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tt.encoding, w.Header().Get("Content-Encoding"))
		})
	}
}

func TestServer_Addr(t *testing.T) {
	cfg := config.Default(t.TempDir())
	require.Equal(t, "localhost:1001", New(cfg, &countingBuilder{}).Addr())
}

func TestServer_Serve(t *testing.T) {
	s, _ := newTestServer(t, config.DevServer{Open: true})

	var opened atomic.Value
	s.open = func(url string) error {
		opened.Store(url)
		return errors.New("no browser")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(zerolog.Nop().WithContext(context.Background()))
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && strings.Contains(string(body), "home")
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, "http://"+addr+"/", opened.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_Serve_hotRebuild(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	out := filepath.Join(root, "docs")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))

	cfg := config.Default(root)
	cfg.DevServer = config.DevServer{Directory: out, Host: "127.0.0.1", Hot: true}

	builder := &countingBuilder{}
	s := New(cfg, builder)
	s.debounce = 20 * time.Millisecond

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(zerolog.Nop().WithContext(context.Background()))
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(src, "index.js"), []byte("export {}\n"), 0o600)
		return builder.calls.Load() > 0
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_ignored(t *testing.T) {
	w := &watcher{root: "/site", outputDir: "/site/docs"}

	tests := []struct {
		path     string
		expected bool
	}{
		{path: "/site/src/index.js", expected: false},
		{path: "/site/docs", expected: true},
		{path: "/site/docs/js/app.js", expected: true},
		{path: "/site/docs-old/a.js", expected: false},
		{path: "/site/node_modules", expected: true},
		{path: "/site/.git", expected: true},
		{path: "/site/src/.index.js.swp", expected: true},
		{path: "/site/src/index.js~", expected: true},
		{path: "/site/src/#index.js#", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.expected, w.ignored(tt.path))
		})
	}
}

func TestWatcher_debounce(t *testing.T) {
	w := &watcher{debounce: 20 * time.Millisecond, req: make(chan struct{}, 1)}

	for range 10 {
		w.trigger()
	}

	select {
	case <-w.req:
	case <-time.After(time.Second):
		t.Fatal("no rebuild requested")
	}

	select {
	case <-w.req:
		t.Fatal("burst produced more than one rebuild")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_closeWaitsForRebuild(t *testing.T) {
	w, err := newWatcher(t.TempDir(), "", 10*time.Millisecond)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var finished atomic.Bool

	w.start(zerolog.Nop().WithContext(context.Background()), func(context.Context) {
		once.Do(func() { close(started) })
		<-release
		finished.Store(true)
	})
	w.trigger()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("rebuild never started")
	}

	closed := make(chan error, 1)
	go func() { closed <- w.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a rebuild was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-closed)
	require.True(t, finished.Load())
}
