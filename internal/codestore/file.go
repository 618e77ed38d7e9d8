package codestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// watchDebounce coalesces the bursts of events a single write produces.
const watchDebounce = 100 * time.Millisecond

// FileStore keeps the code in a single text file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store over path. The file need not exist.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the code file location.
func (s *FileStore) Path() string { return s.path }

// Load returns the normalized code, or "" when the file is missing or empty.
func (s *FileStore) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read access code: %w", err)
	}
	return core.NormalizeCode(string(data)), nil
}

// Save writes the normalized code, creating parent directories.
func (s *FileStore) Save(_ context.Context, code string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create code directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(core.NormalizeCode(code)+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write access code: %w", err)
	}
	return nil
}

// Clear removes the code file. A missing file is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear access code: %w", err)
	}
	return nil
}

// Watch calls onCode with the code each time the file is written with a
// non-empty value, until ctx is done. The parent directory must exist.
func (s *FileStore) Watch(ctx context.Context, onCode func(code string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				code, err := s.Load(ctx)
				if err != nil {
					s.logger.Error("failed to read dropped code", "error", err)
					return
				}
				if strings.TrimSpace(code) == "" {
					return
				}
				s.logger.Debug("access code dropped", "path", s.path)
				onCode(code)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
