package synthesis

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/fsx"
)

const watchDebounce = 500 * time.Millisecond

// fileWatcher re-ingests changed files for one collection. The debounced
// fsnotify loop is grounded on pkg/rag/strategy.VectorStore.watchLoop: a
// pending-set accumulates under a mutex, a single AfterFunc timer coalesces
// bursts of events into one re-ingestion pass.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

// StartFileWatcher watches roots (files, directories, or doublestar glob
// patterns per internal/fsx.CollectFiles) for a collection and re-ingests
// whatever changes, stopping when ctx is cancelled or Close is called.
// It watches the directories that hold the files matched at start-up, so
// new files are seen only in those directories.
func (s *Service) StartFileWatcher(ctx context.Context, collectionID string, roots []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	seed, err := fsx.CollectFiles(roots, nil)
	if err != nil {
		_ = w.Close()
		return err
	}
	watchedDirs := make(map[string]bool)
	for _, f := range seed {
		dir := filepath.Dir(f)
		if watchedDirs[dir] {
			continue
		}
		watchedDirs[dir] = true
		if err := w.Add(dir); err != nil {
			slog.Debug("synthesis: could not watch directory", "path", dir, "error", err)
		}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.watcher = &fileWatcher{watcher: w, cancel: cancel}

	go s.watchLoop(watchCtx, collectionID, roots, w)
	return nil
}

func (s *Service) watchLoop(ctx context.Context, collectionID string, roots []string, w *fsnotify.Watcher) {
	var mu sync.Mutex
	pending := make(map[string]bool)
	var timer *time.Timer

	flush := func() {
		mu.Lock()
		files := make([]string, 0, len(pending))
		for f := range pending {
			files = append(files, f)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		for _, f := range files {
			s.reingestChangedFile(ctx, collectionID, f)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			matches, err := fsx.Matches(event.Name, roots)
			if err != nil || !matches {
				continue
			}

			mu.Lock()
			pending[event.Name] = true
			mu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, flush)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			slog.Warn("synthesis: file watcher error", "error", err)
		}
	}
}

func (s *Service) reingestChangedFile(ctx context.Context, collectionID, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("synthesis: reading changed file", "path", path, "error", err)
		return
	}
	doc := domain.Document{CollectionID: collectionID, FilePath: path, Title: path}
	if _, err := s.Ingest(ctx, doc, string(content)); err != nil {
		slog.Warn("synthesis: re-ingesting changed file", "path", path, "error", err)
	}
}

// Close stops the watcher goroutine and releases the fsnotify handle.
func (w *fileWatcher) Close() {
	w.cancel()
	_ = w.watcher.Close()
}
