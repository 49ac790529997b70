// Package watch analyses crash reports as they appear in a directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mod2fix/internal/driver"
	"mod2fix/internal/trace"
)

// DefaultDebounce lets the game finish writing a report before it is read.
const DefaultDebounce = 500 * time.Millisecond

// Handler receives one result per settled file. Calls are sequential.
type Handler func(driver.Result)

// Watcher watches one directory for new or rewritten log files.
type Watcher struct {
	dir      string
	analyzer *driver.Analyzer
	handle   Handler
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
	stats   Stats
}

// Stats counts watcher activity.
type Stats struct {
	Events   int
	Analyzed int
	Errors   int
}

// New prepares a Watcher. Nothing is watched until Run.
func New(dir string, analyzer *driver.Analyzer, handle Handler) *Watcher {
	if analyzer == nil {
		analyzer = driver.New(driver.Options{})
	}
	return &Watcher{
		dir:      dir,
		analyzer: analyzer,
		handle:   handle,
		debounce: DefaultDebounce,
		pending:  make(map[string]time.Time),
	}
}

// SetDebounce overrides DefaultDebounce; call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run blocks until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("failed to watch %s: not a directory", w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	span, ctx := trace.StartSpan(ctx, trace.ScopeCommand, "watch:"+w.dir)
	defer span.End("")

	tick := w.debounce / 5
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.note(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			trace.Error(ctx, trace.ScopeCommand, "watch", err)
		case now := <-ticker.C:
			for _, path := range w.settled(now) {
				w.analyze(ctx, path)
			}
		}
	}
}

// note records create and write events for log files.
func (w *Watcher) note(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !driver.IsLogFile(ev.Name) {
		return
	}
	w.mu.Lock()
	w.stats.Events++
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
}

// settled removes and returns the paths quiet for the debounce window.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) analyze(ctx context.Context, path string) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return // removed again before it settled
	}
	res := w.analyzer.AnalyzeFile(ctx, path)
	w.mu.Lock()
	if res.Err != nil {
		w.stats.Errors++
	} else {
		w.stats.Analyzed++
	}
	w.mu.Unlock()
	if w.handle != nil {
		w.handle(res)
	}
}
