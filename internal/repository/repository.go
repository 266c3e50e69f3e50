package repository

import (
	"context"
	"path/filepath"
	"strings"

	"daf/internal/domain"
	"daf/internal/repository/filestore"
	"daf/internal/repository/sqlite"
)

// SnapshotStore persists annotation snapshots
type SnapshotStore interface {
	// Load returns the stored snapshot. A store that holds no snapshot
	// returns an error wrapping fs.ErrNotExist.
	Load(ctx context.Context) (domain.Snapshot, error)

	// Save stores s as the current snapshot
	Save(ctx context.Context, s domain.Snapshot) error

	// Close releases resources
	Close() error
}

// Open selects a store from the path extension: .db, .sqlite and .sqlite3
// use SQLite; anything else is a JSON or YAML file.
func Open(path string) (SnapshotStore, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return sqlite.New(path)
	}
	return filestore.New(path)
}
