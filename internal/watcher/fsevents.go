package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/Haor/vrc-nexus/internal/logging"
)

// DefaultDebounce is how long the database must be quiet before a run.
// VRCX writes a join/leave row per player, so bursts are common.
const DefaultDebounce = 5 * time.Second

// Handler is called after the database changed. Errors are logged and
// watching continues.
type Handler func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	Debounce   time.Duration
	RunOnStart bool
	Logger     *log.Logger
}

// Watcher runs a Handler whenever the VRCX database is written. Handler
// runs never overlap; writes during a run schedule one more run.
type Watcher struct {
	path     string
	match    *matcher
	handler  Handler
	debounce time.Duration
	runStart bool
	logger   *log.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	runs    int
}

// New creates a Watcher for the database at dbPath.
func New(dbPath string, handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}
	m, err := newMatcher(dbPath)
	if err != nil {
		return nil, err
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     dbPath,
		match:    m,
		handler:  handler,
		debounce: debounce,
		runStart: opts.RunOnStart,
		logger:   logging.WithPrefix(opts.Logger, "watcher"),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching the database directory. With RunOnStart the
// handler runs once immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return errors.New("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(w.match.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.match.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsw = fsw
	w.cancel = cancel
	w.started = true

	w.wg.Add(1)
	go w.loop(ctx, w.fsw, w.stopCh)

	w.logger.Info("watching", "path", w.path, "debounce", w.debounce)
	return nil
}

// loop collects events and fires the handler once they settle.
func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, stop <-chan struct{}) {
	defer w.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	if w.runStart {
		w.run(ctx)
	}

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod || !w.match.Matches(ev.Name) {
				continue
			}
			w.logger.Debug("database event", "op", ev.Op.String(), "file", ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "err", err)

		case <-fire:
			fire = nil
			w.run(ctx)

		case <-ctx.Done():
			return

		case <-stop:
			return
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	w.mu.Lock()
	w.runs++
	n := w.runs
	w.mu.Unlock()

	start := time.Now()
	if err := w.handler(ctx); err != nil {
		w.logger.Error("analysis failed", "run", n, "err", err)
		return
	}
	w.logger.Info("analysis finished", "run", n, "took", time.Since(start).Round(time.Millisecond))
}

// Runs returns how many times the handler has been called.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Stop halts the watcher and waits for a running handler to return.
// Stopping a watcher that was never started is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	close(w.stopCh)
	w.cancel()
	fsw := w.fsw
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	w.stopCh = make(chan struct{})
	w.mu.Unlock()
	return fsw.Close()
}
