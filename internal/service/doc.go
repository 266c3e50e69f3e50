// Package service implements the annotation workflow on top of the
// annotator registry and the snapshot repository.
//
// # Voting
//
// Engine turns the proposals collected for one address into a final
// annotation. Every taxonomy field is voted on its own: a value is eligible
// when it reaches both the minimum proposal count and the minimum number of
// distinct annotators. A single eligible value wins. Two values where the
// more frequent one is eligible and proposed more than once while the other
// was proposed once resolve to the frequent value and record a one miss.
// Anything else leaves the field empty. Values from
// the hand annotator replace the vote and differences are kept as hand misses.
//
// # Reannotation
//
// Partition splits the addresses of a run into those already present in a
// loaded snapshot and those that need annotators. Merge joins the reused
// entries with the freshly voted ones. Annotators never see known addresses
// and are not started at all when nothing is unknown.
//
// # Pipeline
//
// Pipeline ties the pieces together for one run and publishes its progress
// on an EventBus.
package service
