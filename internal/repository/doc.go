// Package repository defines snapshot persistence for DAF.
//
// A snapshot maps IP address to its finalized entry and is reused by later
// runs. SnapshotStore is implemented by two backends:
//
//   - filestore keeps one snapshot in a JSON or YAML file, written atomically.
//   - sqlite keeps every saved snapshot as a run (identified by a UUID) and
//     loads the most recent one.
//
// Open picks the backend from the file extension. Stores do not validate
// addresses; callers validate what they load.
package repository
