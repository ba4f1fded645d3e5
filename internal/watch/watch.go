// Package watch shortens sync latency with filesystem notifications.
//
// A Notifier subscribes to raw fsnotify events on the flat export
// directory, filters them down to recognized documents and the patient
// spreadsheet, and collapses each burst into a single wake call after a
// quiet debounce window. Polling remains the source of truth: every wake
// triggers a full fingerprint diff and event payloads are never
// interpreted, so missed, duplicate or spurious events are harmless.
//
// Usage:
//
//	n, err := watch.New(watch.Options{
//	    Dir:         cfg.Watch.Dir,
//	    Extensions:  []string{".pdf", ".docx"},
//	    Spreadsheet: cfg.Watch.Spreadsheet,
//	    Notify:      orch.Wake,
//	})
//	if err != nil {
//	    // keep running on the poll timer alone
//	}
//	go n.Run(ctx)
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dwhsync/dwhsync/internal/errors"
)

// DefaultDebounce is the quiet window a burst of events must survive
// before one wake call is emitted.
const DefaultDebounce = 500 * time.Millisecond

// Options configures a Notifier. Dir and Notify are required.
type Options struct {
	// Dir is the export directory to watch. It is not descended into;
	// the export layout is flat.
	Dir string

	// Extensions are the recognized document extensions, with leading
	// dot. Matched case-insensitively.
	Extensions []string

	// Spreadsheet is the patient spreadsheet file name inside Dir.
	Spreadsheet string

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration

	// Notify is called once per quiet window, from a timer goroutine.
	Notify func()

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Notifier forwards filesystem activity as debounced wake calls.
type Notifier struct {
	fsw    *fsnotify.Watcher
	dir    string
	exts   []string
	sheet  string
	window time.Duration
	notify func()
	log    *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// New subscribes to the export directory. Callers that get an error
// back are expected to log it and continue on the poll timer alone.
func New(opts Options) (*Notifier, error) {
	if opts.Dir == "" {
		return nil, errors.InternalError("watch: Dir is required", nil)
	}
	if opts.Notify == nil {
		return nil, errors.InternalError("watch: Notify is required", nil)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	exts := make([]string, 0, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts = append(exts, strings.ToLower(ext))
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.FilesystemError("create filesystem watcher", err)
	}
	if err := fsw.Add(opts.Dir); err != nil {
		_ = fsw.Close()
		return nil, errors.FilesystemError("watch export directory", err).
			WithDetail("dir", opts.Dir)
	}

	return &Notifier{
		fsw:    fsw,
		dir:    opts.Dir,
		exts:   exts,
		sheet:  opts.Spreadsheet,
		window: opts.Debounce,
		notify: opts.Notify,
		log:    opts.Logger,
	}, nil
}

// Run consumes events until ctx is cancelled or the watcher closes.
func (n *Notifier) Run(ctx context.Context) error {
	defer n.stop()

	n.log.Info("filesystem notifications enabled",
		"dir", n.dir,
		"debounce", n.window)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-n.fsw.Events:
			if !ok {
				return nil
			}
			n.handle(event)
		case err, ok := <-n.fsw.Errors:
			if !ok {
				return nil
			}
			n.log.Warn("filesystem watcher error", "error", err)
		}
	}
}

// handle filters one raw event and arms the debounce timer.
func (n *Notifier) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		// Chmod-only events never change content
		return
	}
	if !n.relevant(event.Name) {
		return
	}
	n.schedule()
}

// relevant reports whether the path names the spreadsheet or a
// recognized document.
func (n *Notifier) relevant(path string) bool {
	base := filepath.Base(path)
	if n.sheet != "" && strings.EqualFold(base, n.sheet) {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range n.exts {
		if ext == want {
			return true
		}
	}
	return false
}

// schedule restarts the debounce timer; the wake fires one quiet window
// after the last relevant event.
func (n *Notifier) schedule() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped {
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.window, n.notify)
}

// stop releases the watcher. Safe to call multiple times.
func (n *Notifier) stop() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopped {
		return
	}
	n.stopped = true
	if n.timer != nil {
		n.timer.Stop()
	}
	_ = n.fsw.Close()
}
