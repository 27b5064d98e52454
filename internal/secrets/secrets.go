// Package secrets keeps the values of sensitive settings out of the database.
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"swarmsettings/internal/models"
)

// ErrNotFound is returned when no secret is stored for a key
var ErrNotFound = errors.New("secret not found")

// Store saves and loads setting values by key
type Store interface {
	Get(key string) (any, error)
	Set(key string, value any) error
	Delete(key string) error
}

// KeyringStore stores values JSON-encoded in the OS keyring
type KeyringStore struct {
	Service string
}

// NewKeyringStore returns a store using the default keyring service name
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: models.KeyringServiceName}
}

// Get loads the value stored for key
func (s *KeyringStore) Get(key string) (any, error) {
	raw, err := keyring.Get(s.Service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s from keyring: %w", key, err)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("keyring entry for %s is not valid JSON: %w", key, err)
	}
	return value, nil
}

// Set stores value for key, replacing any previous entry
func (s *KeyringStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := keyring.Set(s.Service, key, string(raw)); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", key, err)
	}
	return nil
}

// Delete removes the entry for key. Missing entries are not an error.
func (s *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(s.Service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}
