package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"revoice/internal/config"
	"revoice/internal/ingest"
	"revoice/internal/logging"
)

// inboxWatcher ingests source URLs dropped as .url files into the inbox
// directory. Each file holds a single URL on its first line; the file is
// removed after a successful ingest so reprocessing never repeats it.
type inboxWatcher struct {
	dir    string
	ingest *ingest.Service
	logger *slog.Logger

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func newInboxWatcher(cfg *config.Config, ingestSvc *ingest.Service, logger *slog.Logger) *inboxWatcher {
	return &inboxWatcher{
		dir:    cfg.Inbox.Dir,
		ingest: ingestSvc,
		logger: logging.NewComponentLogger(logger, "inbox"),
	}
}

// Start begins watching the inbox directory and drains any files that were
// dropped while the daemon was not running.
func (w *inboxWatcher) Start(ctx context.Context) error {
	if w.ingest == nil {
		return errors.New("inbox watcher requires ingest service")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create inbox watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch inbox directory: %w", err)
	}
	w.watcher = watcher

	w.drainExisting(ctx)

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("watching inbox", logging.String("dir", w.dir))
	return nil
}

// Stop closes the watcher and waits for the event loop to exit.
func (w *inboxWatcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()
}

func (w *inboxWatcher) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Rename) {
				w.handleDrop(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error", logging.Error(err))
		}
	}
}

func (w *inboxWatcher) drainExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("failed to scan inbox", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.handleDrop(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

func (w *inboxWatcher) handleDrop(ctx context.Context, path string) {
	if !strings.EqualFold(filepath.Ext(path), ".url") {
		return
	}
	sourceURL, err := readDropFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("unreadable inbox file", logging.String("file", path), logging.Error(err))
		}
		return
	}
	if sourceURL == "" {
		w.logger.Warn("empty inbox file, removing", logging.String("file", path))
		_ = os.Remove(path)
		return
	}

	video, err := w.ingest.Add(ctx, sourceURL, true)
	switch {
	case errors.Is(err, ingest.ErrAlreadyExists):
		w.logger.Info("inbox url already ingested",
			logging.String("file", path),
			logging.String(logging.FieldVideoID, video.ID),
		)
	case err != nil:
		// Leave the file in place so the drop is retried on next start.
		w.logger.Error("failed to ingest inbox url",
			logging.String("file", path),
			logging.String("url", sourceURL),
			logging.Error(err),
		)
		return
	default:
		w.logger.Info("ingested inbox url",
			logging.String("file", path),
			logging.String(logging.FieldVideoID, video.ID),
		)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("failed to remove inbox file", logging.String("file", path), logging.Error(err))
	}
}

// readDropFile returns the first non-empty line of the file.
func readDropFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
	}
	return "", nil
}
