// Package sqlite stores annotation snapshots in SQLite. Every Save creates
// a run; Load returns the entries of the most recent run.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"daf/internal/domain"
)

// Repository implements repository.SnapshotStore using SQLite
type Repository struct {
	db *sql.DB
}

// Run describes one saved snapshot
type Run struct {
	ID        string
	CreatedAt time.Time
	Entries   int
}

// New opens (or creates) the database at dbPath; ":memory:" is supported
func New(dbPath string) (*Repository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	PRAGMA foreign_keys = ON;

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		entries INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		run_id TEXT NOT NULL,
		address TEXT NOT NULL,
		final JSON NOT NULL,
		flags JSON,
		one_miss JSON,
		hand_miss JSON,
		multi_device JSON,
		annotations JSON,
		PRIMARY KEY (run_id, address),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Save stores the snapshot as a new run in one transaction
func (r *Repository) Save(ctx context.Context, s domain.Snapshot) error {
	_, err := r.SaveRun(ctx, s)
	return err
}

// SaveRun stores the snapshot as a new run and returns it
func (r *Repository) SaveRun(ctx context.Context, s domain.Snapshot) (*Run, error) {
	run := &Run{ID: uuid.NewString(), CreatedAt: time.Now().UTC(), Entries: len(s)}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, entries) VALUES (?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Entries,
	); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for _, addr := range s.Addresses() {
		args, err := entryInsertArgs(run.ID, addr, s[addr])
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", addr, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return nil, fmt.Errorf("failed to insert entry %s: %w", addr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recently saved run
func (r *Repository) LatestRun(ctx context.Context) (*Run, error) {
	var (
		run       Run
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, entries FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&run.ID, &createdAt, &run.Entries)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no saved snapshot: %w", fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return &run, nil
}

// Runs lists saved runs, newest first
func (r *Repository) Runs(ctx context.Context) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, created_at, entries FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			createdAt int64
		)
		if err := rows.Scan(&run.ID, &createdAt, &run.Entries); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt = time.Unix(0, createdAt).UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Load returns the snapshot of the latest run
func (r *Repository) Load(ctx context.Context) (domain.Snapshot, error) {
	run, err := r.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	return r.LoadRun(ctx, run.ID)
}

// LoadRun returns the snapshot saved by one run
func (r *Repository) LoadRun(ctx context.Context, runID string) (domain.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	snapshot := make(domain.Snapshot)
	for rows.Next() {
		var row entryRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entry, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", row.Address, err)
		}
		snapshot[row.Address] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return snapshot, nil
}

// Prune deletes all but the newest keep runs and their entries
func (r *Repository) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be >= 1, got %d", keep)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE run_id NOT IN (SELECT id FROM runs)`); err != nil {
		return 0, fmt.Errorf("failed to prune entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
