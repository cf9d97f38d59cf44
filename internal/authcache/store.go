// Package authcache persists the service authorization header under the
// per-user config directory. At most one credential is cached per local
// user; the store performs no locking and assumes a single local process.
package authcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const authFileName = "auth.json"

// Store reads and writes the cached authorization header.
type Store struct {
	dir string
}

// New creates a store rooted at dir. An empty dir selects
// <user config dir>/luma.
func New(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locating user config dir: %w", err)
		}
		dir = filepath.Join(base, "luma")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) file() string {
	return filepath.Join(s.dir, authFileName)
}

// Load returns the cached authorization header. The returned error wraps
// os.ErrNotExist when no credential is cached.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.file())
	if err != nil {
		return "", fmt.Errorf("reading cached credential: %w", err)
	}
	var cached map[string]string
	if err := json.Unmarshal(data, &cached); err != nil {
		return "", fmt.Errorf("decoding cached credential: %w", err)
	}
	header := cached["Authorization"]
	if header == "" {
		return "", fmt.Errorf("cached credential has no Authorization value")
	}
	return header, nil
}

// Save writes the authorization header, overwriting any cached value.
func (s *Store) Save(header string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating credential dir: %w", err)
	}
	data, err := json.Marshal(map[string]string{"Authorization": header})
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	if err := os.WriteFile(s.file(), data, 0o600); err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}
	return nil
}

// Clear removes the cached credential. Clearing an empty store is not
// an error.
func (s *Store) Clear() error {
	err := os.Remove(s.file())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cached credential: %w", err)
	}
	return nil
}
