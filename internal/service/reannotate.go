package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"daf/internal/domain"
)

// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded
// or holds invalid addresses, flags or fields
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// SnapshotLoader reads a stored snapshot
type SnapshotLoader interface {
	Load(ctx context.Context) (domain.Snapshot, error)
}

// LoadSnapshot reads and validates a snapshot. A missing snapshot is
// reported as is; anything unreadable or invalid is ErrCorruptSnapshot.
func LoadSnapshot(ctx context.Context, store SnapshotLoader) (domain.Snapshot, error) {
	snapshot, err := store.Load(ctx)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if snapshot == nil {
		snapshot = domain.Snapshot{}
	}
	return snapshot, nil
}

// canonicalKeys maps the canonical form of every snapshot key to the key
func canonicalKeys(s domain.Snapshot) map[string]string {
	keys := make(map[string]string, len(s))
	for key := range s {
		canonical, err := domain.CanonicalAddress(key)
		if err != nil {
			canonical = key
		}
		keys[canonical] = key
	}
	return keys
}

// Partition splits the current addresses into those with a snapshot entry
// and those that still need annotation. Duplicates are collapsed and the
// order of first appearance is kept. A nil snapshot makes every address unknown.
func Partition(current []string, snapshot domain.Snapshot) (known, unknown []string) {
	keys := canonicalKeys(snapshot)
	seen := make(map[string]bool, len(current))

	for _, addr := range current {
		canonical, err := domain.CanonicalAddress(addr)
		if err != nil {
			canonical = addr
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true

		if _, ok := keys[canonical]; ok {
			known = append(known, canonical)
		} else {
			unknown = append(unknown, canonical)
		}
	}
	return known, unknown
}

// Merge builds the output snapshot of a run: the loaded entries of the
// known addresses, unchanged and under their loaded keys, plus the freshly
// finalized records. It also returns every record of the run tagged with
// its source, known first. Record addresses are canonical.
func Merge(loaded domain.Snapshot, known []string, fresh []*domain.Record) (domain.Snapshot, []*domain.Record) {
	keys := canonicalKeys(loaded)
	out := make(domain.Snapshot, len(known)+len(fresh))
	records := make([]*domain.Record, 0, len(known)+len(fresh))
	seen := make(map[string]bool, len(known)+len(fresh))

	for _, addr := range known {
		key, ok := keys[addr]
		if !ok || seen[addr] {
			continue
		}
		seen[addr] = true
		entry := loaded[key]
		out[key] = entry
		records = append(records, &domain.Record{Address: addr, Entry: entry, Source: domain.SourceReused})
	}

	for _, r := range fresh {
		if seen[r.Address] {
			continue
		}
		seen[r.Address] = true
		r.Source = domain.SourceFresh
		out[r.Address] = r.Entry
		records = append(records, r)
	}
	return out, records
}
