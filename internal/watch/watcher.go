// Package watch reports debounced changes to region source files.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/mapexporter/internal/logfields"
)

// DefaultDebounce coalesces editor save bursts into one change.
const DefaultDebounce = 300 * time.Millisecond

// Watcher monitors one source directory.
type Watcher struct {
	dir      string
	pattern  string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	changes  chan struct{}
	stop     chan struct{}
	once     sync.Once
}

// New creates a watcher for files in dir matching pattern. Call Start to begin
// watching.
func New(dir, pattern string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to resolve source directory: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if pattern == "" {
		pattern = "*"
	}
	return &Watcher{
		dir:      abs,
		pattern:  pattern,
		debounce: debounce,
		fsw:      fsw,
		changes:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}, nil
}

// Changes delivers one value per debounced burst of changes. At most one
// change is pending at a time.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Start begins monitoring the directory.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch source directory %s: %w", w.dir, err)
	}
	slog.Info("Watching region sources", logfields.Path(w.dir))
	go w.loop(ctx)
	return nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	ok, err := filepath.Match(w.pattern, filepath.Base(ev.Name))
	return err == nil && ok
}

func (w *Watcher) loop(ctx context.Context) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			slog.Debug("Region source changed", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("Source watcher error", logfields.Error(err))
		}
	}
}
