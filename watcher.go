package blog

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 200 * time.Millisecond

// Invalidator is anything holding derived content state that must be dropped
// when files change on disk.
type Invalidator interface {
	Invalidate()
}

// Watcher invalidates the post cache when markdown or category files are
// changed outside the API, e.g. by an editor or git pull. Bursts of events
// are coalesced into one invalidation.
type Watcher struct {
	fsw      *fsnotify.Watcher
	target   Invalidator
	logger   *zap.Logger
	debounce time.Duration

	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	done      chan struct{}
}

// NewWatcher watches dirs (non-recursively).
func NewWatcher(dirs []string, target Invalidator, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return &Watcher{
		fsw:      fsw,
		target:   target,
		logger:   logger,
		debounce: watchDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Start begins processing events until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started = true
		go w.run(ctx)
	})
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
		if w.started {
			<-w.done
		}
	})
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

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
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("content changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.target.Invalidate()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("content watcher error", zap.Error(err))
		}
	}
}

// relevant filters out temp files written by atomic saves and permission
// only changes.
func relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := filepath.Ext(base)
	return ext == ".md" || ext == ".json"
}
