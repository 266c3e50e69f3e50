package domain

import (
	"fmt"
	"net/netip"
	"sort"
)

// Snapshot maps IP address to its finalized entry.
// It is the unit of persistence and reuse across runs.
type Snapshot map[string]Entry

// CanonicalAddress parses an IP address and returns its canonical text form
func CanonicalAddress(s string) (string, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", fmt.Errorf("invalid IP address %q: %w", s, err)
	}
	return addr.String(), nil
}

// Addresses returns the snapshot keys in sorted order
func (s Snapshot) Addresses() []string {
	addrs := make([]string, 0, len(s))
	for addr := range s {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// Validate checks that every key is a valid, unique IP address
// and that entries only carry known fields and flags
func (s Snapshot) Validate() error {
	seen := make(map[string]string, len(s))
	for key, entry := range s {
		canonical, err := CanonicalAddress(key)
		if err != nil {
			return err
		}
		if other, dup := seen[canonical]; dup {
			return fmt.Errorf("duplicate address %q and %q", other, key)
		}
		seen[canonical] = key

		for _, f := range entry.Flags {
			if !f.Valid() {
				return fmt.Errorf("address %s: unknown flag %q", key, f)
			}
		}
		for _, m := range entry.OneMiss {
			if !m.Field.Valid() {
				return fmt.Errorf("address %s: unknown field %q in one_miss", key, m.Field)
			}
		}
		for _, m := range entry.HandMiss {
			if !m.Field.Valid() {
				return fmt.Errorf("address %s: unknown field %q in hand_miss", key, m.Field)
			}
		}
	}
	return nil
}

// Clone returns a shallow copy of the map; entries are values
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
