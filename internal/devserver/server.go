package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/sitepack/internal/assets"
	"github.com/wolfeidau/sitepack/internal/config"
	httpmiddleware "github.com/wolfeidau/sitepack/internal/http"
	"github.com/wolfeidau/sitepack/internal/logger"
)

const notFoundPage = "404.html"

// Builder produces the site served by the dev server.
type Builder interface {
	Build(ctx context.Context) (*assets.Result, error)
}

// Server serves the output directory during development and optionally
// rebuilds it when sources change.
type Server struct {
	opts      config.DevServer
	watchRoot string
	outputDir string
	builder   Builder
	debounce  time.Duration
	open      func(url string) error
}

func New(cfg *config.Config, builder Builder) *Server {
	return &Server{
		opts:      cfg.DevServer,
		watchRoot: cfg.Context,
		outputDir: cfg.Output.Path,
		builder:   builder,
		debounce:  300 * time.Millisecond,
		open:      browser.OpenURL,
	}
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Handler serves static files with the not found page as fallback.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	files := http.FileServer(http.Dir(s.opts.Directory))

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.exists(r.URL.Path) {
			files.ServeHTTP(w, r)
			return
		}

		page, err := os.ReadFile(filepath.Join(s.opts.Directory, notFoundPage))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write(page)
	})

	if s.opts.Compress {
		handler = gzhttp.GzipHandler(handler)
	}

	handler = httpmiddleware.NoCacheMiddleware()(handler)
	handler = logger.NewRequests(log).Wrap(handler)
	handler = httpmiddleware.ClientIPMiddleware()(handler)

	return handler
}

func (s *Server) exists(urlPath string) bool {
	clean := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+urlPath)), "/"))
	_, err := os.Stat(filepath.Join(s.opts.Directory, clean))
	return err == nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := zerolog.Ctx(ctx).With().Str("component", "devserver").Logger()

	srv := configureHTTPServer(ln.Addr().String(), s.Handler(log))
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	url := "http://" + ln.Addr().String() + "/"
	log.Info().Str("url", url).Str("dir", s.opts.Directory).Bool("compress", s.opts.Compress).Msg("Dev server listening")

	if s.opts.Open {
		if err := s.open(url); err != nil {
			log.Warn().Err(err).Msg("Failed to open browser")
		}
	}

	if s.opts.Hot {
		w, err := newWatcher(s.watchRoot, s.outputDir, s.debounce)
		if err != nil {
			_ = srv.Close()
			return err
		}
		w.start(log.WithContext(ctx), s.rebuild)
		defer func() {
			if err := w.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close watcher")
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	}

	log.Info().Msg("Shutting down dev server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down dev server: %w", err)
	}
	return nil
}

func (s *Server) rebuild(ctx context.Context) {
	log := zerolog.Ctx(ctx)
	log.Info().Msg("Change detected, rebuilding")

	res, err := s.builder.Build(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Rebuild failed")
		return
	}
	log.Info().Str("build_id", res.BuildID).Int("files", len(res.Files)).Msg("Rebuild complete")
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
