package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/VPRamon/TSI-sub000/internal/dto"
	"github.com/VPRamon/TSI-sub000/internal/models"
)

type scheduleStorer interface {
	Store(ctx context.Context, req dto.StoreScheduleRequest) (*models.StoreResult, error)
}

// Watcher stores schedule files dropped into a directory.
type Watcher struct {
	dir    string
	store  scheduleStorer
	logger *zap.Logger

	mu      sync.Mutex
	results map[string]int64
}

// NewWatcher constructs a drop-folder watcher for dir.
func NewWatcher(dir string, store scheduleStorer, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{dir: dir, store: store, logger: logger, results: make(map[string]int64)}
}

// Ingested returns the schedule id stored for path, if any.
func (w *Watcher) Ingested(path string) (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.results[filepath.Clean(path)]
	return id, ok
}

// IngestFile decodes and stores one schedule file.
func (w *Watcher) IngestFile(ctx context.Context, path string) (*models.StoreResult, error) {
	req, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	result, err := w.store.Store(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", filepath.Base(path), err)
	}

	w.mu.Lock()
	w.results[filepath.Clean(path)] = result.ScheduleID
	w.mu.Unlock()

	w.logger.Info("schedule file ingested",
		zap.String("path", path),
		zap.Int64("schedule_id", result.ScheduleID),
		zap.Bool("created", result.Created),
		zap.String("job_id", result.JobID),
	)
	return result, nil
}

// Scan ingests every supported file already present in the directory, in
// name order, and returns the number stored.
func (w *Watcher) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read ingest dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	stored := 0
	for _, name := range names {
		if ctx.Err() != nil {
			return stored, ctx.Err()
		}
		if _, err := w.IngestFile(ctx, filepath.Join(w.dir, name)); err != nil {
			w.logger.Warn("schedule file rejected", zap.String("path", name), zap.Error(err))
			continue
		}
		stored++
	}
	return stored, nil
}

// Run scans the directory, then watches it until ctx is cancelled. A file that
// fails to decode is logged and retried on its next write.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for schedule files", zap.String("dir", w.dir))

	if _, err := w.Scan(ctx); err != nil && ctx.Err() == nil {
		w.logger.Warn("initial scan failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !Supported(event.Name) {
				continue
			}
			if _, err := w.IngestFile(ctx, event.Name); err != nil {
				w.logger.Warn("schedule file rejected", zap.String("path", event.Name), zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("ingest watcher error", zap.Error(err))
		}
	}
}
