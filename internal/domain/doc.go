// Package domain defines the core types of the device annotation framework.
//
// # Core Types
//
// Field is one of the five taxonomy dimensions (group, class, os-family,
// os-type, os-version). Annotation carries at most one value per field.
//
// Proposal is a single annotator's suggested value for one field of one IP.
// Record collects the proposals and detector signals gathered for an address
// during a run, together with the finalized Entry and its Source.
//
// # Flags
//
// Entries carry condition flags derived while voting: multi_device (several
// devices suspected behind the address), hand_miss (the hand-curated value
// replaced a different voted value) and one_miss (the accepted value had a
// single discarded outlier). The details behind each flag are kept alongside.
//
// # Snapshots
//
// Snapshot maps address to Entry and is the unit of persistence and reuse
// between runs. Keys must be valid, unique IP addresses.
//
// The package has no infrastructure dependencies.
package domain
