// Package watch extracts transcripts dropped into a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/meetextract/internal/report"
	"github.com/fyrsmithlabs/meetextract/internal/services"
	"github.com/fyrsmithlabs/meetextract/internal/transcript"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// ReportSuffix is appended to a transcript's stem to name its report.
const ReportSuffix = ".report.md"

// Processed describes one handled transcript file.
type Processed struct {
	Path       string
	ReportPath string
	RunID      string
	Err        error
	Timestamp  time.Time
}

// Options tunes a Watcher.
type Options struct {
	// Debounce is how long a file must stay quiet before it is processed.
	// Default: 500ms
	Debounce time.Duration
	// Existing processes transcripts already in the directory on Start.
	Existing bool
	Logger   *zap.Logger
}

// Watcher runs extraction for new or changed .txt, .json and .srt files in
// a directory and writes <name>.report.md next to each.
type Watcher struct {
	dir      string
	service  *services.Service
	watcher  *fsnotify.Watcher
	results  chan Processed
	stop     chan struct{}
	debounce time.Duration
	existing bool
	logger   *zap.Logger

	mu      sync.Mutex
	stopped bool
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, service *services.Service, opts Options) (*Watcher, error) {
	if service == nil {
		return nil, fmt.Errorf("extraction service is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		service:  service,
		watcher:  fw,
		results:  make(chan Processed, 16),
		stop:     make(chan struct{}),
		debounce: opts.Debounce,
		existing: opts.Existing,
		logger:   opts.Logger.With(zap.String("dir", dir)),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. Events are handled in a background goroutine
// until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	if w.existing {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return fmt.Errorf("listing %s: %w", w.dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() && Accepts(e.Name()) {
				w.schedule(ctx, filepath.Join(w.dir, e.Name()))
			}
		}
	}
	w.logger.Info("watching for transcripts")
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and waits for in-flight extractions.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	close(w.stop)
	_ = w.watcher.Close()
	w.wg.Wait()
}

// Results returns the channel of processed files. Results are dropped
// when nobody reads them.
func (w *Watcher) Results() <-chan Processed {
	return w.results
}

// Accepts reports whether name is a transcript the watcher handles.
func Accepts(name string) bool {
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".json", ".srt":
		return true
	}
	return false
}

// ReportPath names the report written for a transcript.
func ReportPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ReportSuffix
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				if Accepts(event.Name) {
					w.schedule(ctx, event.Name)
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// schedule processes path once it has been quiet for the debounce window.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		p := w.process(ctx, path)
		select {
		case w.results <- p:
		default:
		}
	})
}

func (w *Watcher) process(ctx context.Context, path string) Processed {
	p := Processed{Path: path, Timestamp: time.Now()}
	log := w.logger.With(zap.String("file", filepath.Base(path)))

	segments, err := transcript.ParseFile(path, transcript.FormatAuto)
	if err != nil {
		log.Warn("skipping transcript", zap.Error(err))
		p.Err = err
		return p
	}
	out, err := w.service.Extract(ctx, services.Request{Segments: segments})
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		p.Err = err
		return p
	}
	p.RunID = out.RunID

	dest := ReportPath(path)
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		p.Err = fmt.Errorf("create report: %w", err)
		log.Error("writing report failed", zap.Error(err))
		return p
	}
	r := report.New(out.RunID, filepath.Base(path), out.Result, out.Provenance)
	err = r.WriteMarkdown(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		p.Err = fmt.Errorf("write report: %w", err)
		log.Error("writing report failed", zap.Error(err))
		return p
	}
	p.ReportPath = dest
	log.Info("report written",
		zap.String("run.id", out.RunID),
		zap.String("report", filepath.Base(dest)),
		zap.Int("decisions", len(out.Result.Decisions)),
		zap.Int("actions", len(out.Result.Actions)),
		zap.Int("risks", len(out.Result.Risks)))
	return p
}
