// Package codestore persists an access code between launches until the
// console consumes it.
//
// Two backends are provided: a plain file (the default, shared with
// whatever hands out codes) and the OS keychain. Both satisfy
// console.CodeSource.
package codestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store reads, writes and clears a persisted access code.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, code string) error
	Clear(ctx context.Context) error
}

// Backend names.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// Path is the code file for the file backend.
	Path   string
	Logger *slog.Logger
}

// UnknownBackendError is returned for an unrecognized backend name.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown code store %q (available: %s)", e.Name, strings.Join(Backends(), ", "))
}

// Backends lists the backend names in sorted order.
func Backends() []string {
	names := []string{BackendFile, BackendKeyring}
	sort.Strings(names)
	return names
}

// New opens the configured backend. An empty backend means BackendFile.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendFile:
		path := cfg.Path
		if path == "" {
			var err error
			path, err = DefaultPath()
			if err != nil {
				return nil, err
			}
		}
		return NewFileStore(path, cfg.Logger), nil
	case BackendKeyring:
		return NewKeyringStore(KeyringService, KeyringUser), nil
	default:
		return nil, &UnknownBackendError{Name: cfg.Backend}
	}
}

// DefaultPath is the code file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "leapconsole", "access-code"), nil
}
