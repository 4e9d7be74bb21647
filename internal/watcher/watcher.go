// Package watcher ingests documents dropped into a watched directory.
// New or rewritten text files are picked up, debounced and handed to the
// ingestion pipeline with the file's basename as the logical document
// ID, so overwriting a file supersedes its prior version.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/SerialSamurai/BUTLER-NEW/internal/core/domain"
	"github.com/SerialSamurai/BUTLER-NEW/internal/core/ports/driving"
	"github.com/SerialSamurai/BUTLER-NEW/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before ingestion.
// Editors and network copies produce bursts of write events.
const DefaultDebounce = 500 * time.Millisecond

// supportedExtensions are the extracted-text formats picked up from the
// drop directory. Anything else is ignored.
var supportedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Watcher monitors one drop directory and ingests files on change.
type Watcher struct {
	ingest     driving.IngestService
	dir        string
	department string
	docType    string
	debounce   time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher over dir. Ingested documents are tagged with
// the given department and type.
func New(ingest driving.IngestService, dir, department, docType string) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidConfig, dir)
	}

	return &Watcher{
		ingest:     ingest,
		dir:        dir,
		department: department,
		docType:    docType,
		debounce:   DefaultDebounce,
		pending:    make(map[string]*time.Timer),
	}, nil
}

// SetDebounce overrides the debounce interval. Useful for tests.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run watches the directory until the context is cancelled. Files
// already present at startup are ingested once before watching begins.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	if err := w.ingestExisting(ctx); err != nil {
		return err
	}

	logger.Info("watching %s", w.dir)
	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.supported(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// ingestExisting picks up files already in the directory.
func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !w.supported(path) {
			continue
		}
		w.ingestFile(ctx, path)
	}
	return nil
}

// schedule (re)arms the debounce timer for a path. Each new event on
// the same path resets the timer, so ingestion fires once per burst.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.ingestFile(ctx, path)
	})
}

// cancelPending stops all armed timers.
func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// ingestFile reads one file and runs it through the pipeline. Failures
// are logged, never fatal: one bad file must not stop the watch loop.
func (w *Watcher) ingestFile(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("watch: reading %s: %v", path, err)
		return
	}

	filename := filepath.Base(path)
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	job, err := w.ingest.Ingest(ctx, domain.IngestRequest{
		DocumentID: base,
		Title:      base,
		Filename:   filename,
		Department: w.department,
		DocType:    w.docType,
		Content:    string(content),
	})
	if err != nil {
		logger.Warn("watch: ingesting %s: %v", filename, err)
		return
	}
	logger.Info("watch: ingested %s as %s v%d (%d chunks)", filename, job.DocumentID, job.Version, job.Chunks)
}

// supported reports whether the file extension is ingestible.
func (w *Watcher) supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}
