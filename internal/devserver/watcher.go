package devserver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// watcher turns bursts of file system events under root into single
// rebuild requests. Events inside the output directory are ignored.
type watcher struct {
	fs        *fsnotify.Watcher
	root      string
	outputDir string
	debounce  time.Duration

	mu    sync.Mutex
	timer *time.Timer
	req   chan struct{}

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func newWatcher(root, outputDir string, debounce time.Duration) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &watcher{
		fs:        fw,
		root:      root,
		outputDir: outputDir,
		debounce:  debounce,
		req:       make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	if err := w.addDirs(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching and waits for an in-flight rebuild to finish.
func (w *watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.once.Do(func() { close(w.done) })
	err := w.fs.Close()
	w.wg.Wait()
	return err
}

// start processes events until ctx is done or the watcher is closed.
// Rebuilds never overlap, a change arriving during a rebuild queues exactly
// one more.
func (w *watcher) start(ctx context.Context, rebuild func(context.Context)) {
	w.wg.Add(2)

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-w.req:
				rebuild(ctx)
			}
		}
	}()

	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

func (w *watcher) run(ctx context.Context) {
	log := zerolog.Ctx(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(log, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func (w *watcher) handle(log *zerolog.Logger, ev fsnotify.Event) {
	if w.ignored(ev.Name) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addDirs(ev.Name); err != nil {
				log.Warn().Err(err).Str("dir", ev.Name).Msg("Failed to watch directory")
			}
		}
	}

	log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("File change detected")
	w.trigger()
}

func (w *watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.req <- struct{}{}:
		default:
		}
	})
}

func (w *watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// ignored reports paths that never trigger a rebuild: the output directory,
// dependencies, hidden entries and editor temp files.
func (w *watcher) ignored(path string) bool {
	if w.outputDir != "" {
		if rel, err := filepath.Rel(w.outputDir, path); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}

	base := filepath.Base(path)
	switch {
	case base == "node_modules", base == "bower_components":
		return true
	case strings.HasPrefix(base, "."), strings.HasPrefix(base, "#"):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	}
	return false
}
