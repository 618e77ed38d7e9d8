package codestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// Keychain entry the keyring backend uses.
const (
	KeyringService = "leapconsole"
	KeyringUser    = "access-code"
)

// KeyringStore keeps the code in the OS keychain.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore creates a store over one keychain entry.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

// Load returns the stored code, or "" when there is no entry.
func (s *KeyringStore) Load(_ context.Context) (string, error) {
	code, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read access code from keyring: %w", err)
	}
	return core.NormalizeCode(code), nil
}

// Save stores the normalized code.
func (s *KeyringStore) Save(_ context.Context, code string) error {
	if err := keyring.Set(s.service, s.user, core.NormalizeCode(code)); err != nil {
		return fmt.Errorf("failed to store access code in keyring: %w", err)
	}
	return nil
}

// Clear deletes the entry. A missing entry is not an error.
func (s *KeyringStore) Clear(_ context.Context) error {
	err := keyring.Delete(s.service, s.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to clear access code from keyring: %w", err)
	}
	return nil
}
