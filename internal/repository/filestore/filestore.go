// Package filestore keeps a snapshot in a single JSON or YAML file.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"daf/internal/codec"
	"daf/internal/domain"
)

// Store reads and writes one snapshot file
type Store struct {
	path  string
	codec codec.Codec
}

// New creates a store for path; the codec follows the extension
func New(path string) (*Store, error) {
	c, err := codec.ForPath(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, codec: c}, nil
}

// Path returns the snapshot file path
func (s *Store) Path() string {
	return s.path
}

// Load decodes the snapshot file
func (s *Store) Load(_ context.Context) (domain.Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	snapshot, err := s.codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return snapshot, nil
}

// Save writes the snapshot to a temporary file and renames it into place
func (s *Store) Save(_ context.Context, snapshot domain.Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.codec.Encode(snapshot, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Close is a no-op; files are opened per call
func (s *Store) Close() error {
	return nil
}
