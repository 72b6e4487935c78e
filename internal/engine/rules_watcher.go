package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultRulesDebounce coalesces the burst of events an editor save produces.
const DefaultRulesDebounce = 500 * time.Millisecond

// RulesWatcher reloads a category rule file into a live CategoryRules whenever it changes.
// A file that fails to parse, or disappears, leaves the previous rules in place.
type RulesWatcher struct {
	path     string
	rules    *CategoryRules
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewRulesWatcher watches path and reloads into rules. debounce <= 0 uses DefaultRulesDebounce.
func NewRulesWatcher(path string, rules *CategoryRules, debounce time.Duration, logger *slog.Logger) (*RulesWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("rules path cannot be empty")
	}
	if rules == nil {
		return nil, fmt.Errorf("rules cannot be nil")
	}
	if debounce <= 0 {
		debounce = DefaultRulesDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RulesWatcher{path: path, rules: rules, logger: logger, debounce: debounce}, nil
}

// Reload parses the file and swaps it in.
func (w *RulesWatcher) Reload() error {
	next, err := NewCategoryRules(w.path, w.logger)
	if err != nil {
		return err
	}
	if next == nil {
		return fmt.Errorf("rules file %s is missing", w.path)
	}
	w.rules.Replace(next)
	w.logger.Info("category rules reloaded", slog.String("path", w.path), slog.Int("rules", next.Len()))
	return nil
}

// Run blocks until ctx is done. The parent directory is watched so that atomic
// rename-into-place writes are seen.
func (w *RulesWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create rules watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	target := filepath.Clean(w.path)
	w.logger.Debug("watching category rules", slog.String("path", target))

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("rules watcher events closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("rules watcher errors closed")
			}
			w.logger.Warn("rules watcher error", slog.Any("error", err))
		}
	}
}

func (w *RulesWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.Reload(); err != nil {
			w.logger.Warn("category rules reload failed, keeping previous rules", slog.Any("error", err))
		}
	})
}

func (w *RulesWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
