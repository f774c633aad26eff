// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package persist provides the key-value persistence boundary used by the
// location store and the recency history. Values are opaque JSON documents.
package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store keys used by the application.
const (
	KeyLocations     = "locations"
	KeyRecentReports = "recentReports"
)

// ErrInvalidKey is returned when a key would escape the storage directory.
var ErrInvalidKey = errors.New("persistence key contains invalid characters")

// Store is the persistence boundary. Load reports absence via the boolean,
// not via an error.
type Store interface {
	Load(key string) (data []byte, found bool, err error)
	Save(key string, data []byte) error
}

// FileStore persists each key as a JSON file in a single directory. Writes
// go through a temp file and rename so that readers never observe a partial
// document.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating the directory if
// necessary.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Load reads the document stored under key. A missing file is reported as
// not found, not as an error.
func (s *FileStore) Load(key string) ([]byte, bool, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return data, true, nil
}

// Save atomically replaces the document stored under key.
func (s *FileStore) Save(key string, data []byte) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %q: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %q: %w", path, err)
	}
	return nil
}

func (s *FileStore) keyPath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key+".json"), nil
}
