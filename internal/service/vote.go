package service

import (
	"log"
	"strings"

	"daf/internal/annotator"
	"daf/internal/config"
	"daf/internal/domain"
	"daf/internal/taxonomy"
)

// VotingConflictSource names the multi-device evidence recorded for an
// unresolved conflict on a device-identifying field
const VotingConflictSource = "voting"

// conflictFields are the fields whose disagreement hints at several devices
var conflictFields = map[domain.Field]bool{
	domain.FieldGroup:    true,
	domain.FieldOSFamily: true,
	domain.FieldOSType:   true,
}

// Input holds everything known about one address after orchestration
type Input struct {
	Address   string
	Proposals []domain.Proposal
	Signals   []domain.MultiDevice
}

// Engine turns the proposals of one address into a final annotation.
// It keeps no state between addresses and is safe for concurrent use.
type Engine struct {
	minAnnotationCount       int
	minAnnotatorsCount       int
	handAnnotator            string
	checker                  *taxonomy.Checker
	conflictMarksMultiDevice bool
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithTaxonomy validates voted values against the OS and device taxonomies
func WithTaxonomy(c *taxonomy.Checker) EngineOption {
	return func(e *Engine) {
		e.checker = c
	}
}

// WithConflictMultiDevice records a multi-device signal for unresolved
// conflicts on group, os-family and os-type
func WithConflictMultiDevice(on bool) EngineOption {
	return func(e *Engine) {
		e.conflictMarksMultiDevice = on
	}
}

// WithHandAnnotator changes the annotator whose values override voting
func WithHandAnnotator(name string) EngineOption {
	return func(e *Engine) {
		e.handAnnotator = name
	}
}

// NewEngine creates a voting engine. Thresholds below one are rejected
// with config.ErrInvalidThreshold.
func NewEngine(minAnnotationCount, minAnnotatorsCount int, opts ...EngineOption) (*Engine, error) {
	if err := config.ValidateThresholds(minAnnotationCount, minAnnotatorsCount); err != nil {
		return nil, err
	}
	e := &Engine{
		minAnnotationCount: minAnnotationCount,
		minAnnotatorsCount: minAnnotatorsCount,
		handAnnotator:      annotator.HandAnnotatorName,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewEngineFromConfig creates the engine described by the daf section
func NewEngineFromConfig(cfg config.DAFConfig, checker *taxonomy.Checker) (*Engine, error) {
	opts := []EngineOption{WithConflictMultiDevice(cfg.ConflictMarksMultiDevice)}
	if checker != nil {
		opts = append(opts, WithTaxonomy(checker))
	}
	return NewEngine(cfg.MinAnnotationCount, cfg.MinAnnotatorsCount, opts...)
}

// tally counts one distinct value of a field
type tally struct {
	value      string
	count      int
	annotators map[string]bool
}

// tallyField counts the non-empty values proposed for f in order of first appearance
func tallyField(proposals []domain.Proposal, f domain.Field) []*tally {
	var out []*tally
	byValue := make(map[string]*tally)
	for _, p := range proposals {
		if p.Field != f || p.Value == "" {
			continue
		}
		t, ok := byValue[p.Value]
		if !ok {
			t = &tally{value: p.Value, annotators: make(map[string]bool)}
			byValue[p.Value] = t
			out = append(out, t)
		}
		t.count++
		t.annotators[p.Annotator] = true
	}
	return out
}

func (e *Engine) eligible(t *tally) bool {
	return t.count >= e.minAnnotationCount && len(t.annotators) >= e.minAnnotatorsCount
}

// vote picks the accepted value of one field. conflict reports several
// values without a winner.
func (e *Engine) vote(tallies []*tally) (value string, miss *domain.OneMiss, conflict bool) {
	switch len(tallies) {
	case 0:
		return "", nil, false
	case 1:
		if e.eligible(tallies[0]) {
			return tallies[0].value, nil, false
		}
		return "", nil, false
	case 2:
		// a single dissenting proposal does not block a repeated, eligible
		// value, even when the dissent alone would also be eligible
		a, b := tallies[0], tallies[1]
		if b.count > a.count {
			a, b = b, a
		}
		if e.eligible(a) && a.count > 1 && b.count == 1 {
			return a.value, &domain.OneMiss{Accepted: a.value, AcceptedCount: a.count, Outlier: b.value}, false
		}
	}
	return "", nil, true
}

// Finalize votes every field of one address. Hand-curated values replace
// the voted ones and every difference is recorded as a hand miss.
// The proposals are only read.
func (e *Engine) Finalize(in Input) domain.Entry {
	entry := domain.Entry{Annotations: domain.SummarizeProposals(in.Proposals)}

	var voted domain.Annotation
	var conflicts []string
	for _, f := range domain.Fields {
		tallies := tallyField(in.Proposals, f)
		value, miss, conflict := e.vote(tallies)
		voted.Set(f, value)

		if miss != nil {
			miss.Field = f
			entry.OneMiss = append(entry.OneMiss, *miss)
		}
		if conflict && conflictFields[f] {
			values := make([]string, 0, len(tallies))
			for _, t := range tallies {
				values = append(values, t.value)
			}
			conflicts = append(conflicts, string(f)+"="+strings.Join(values, "|"))
		}
	}

	if e.checker != nil {
		var rejected []string
		voted, rejected = e.checker.Validate(voted)
		for _, r := range rejected {
			log.Printf("Voting: %s: rejected %s", in.Address, r)
		}
	}

	entry.Final = voted
	if hand, ok := entry.Annotations[e.handAnnotator]; ok {
		for _, f := range domain.Fields {
			hv, fv := hand.Get(f), voted.Get(f)
			if hv == "" || hv == fv {
				continue
			}
			entry.HandMiss = append(entry.HandMiss, domain.HandMiss{Field: f, Hand: hv, Voted: fv})
			entry.Final.Set(f, hv)
		}
	}

	for _, s := range in.Signals {
		entry.MultiDevice = append(entry.MultiDevice, domain.MultiDevice{
			Source:   s.Source,
			Evidence: append([]string(nil), s.Evidence...),
		})
	}
	if e.conflictMarksMultiDevice && len(conflicts) > 0 {
		entry.MultiDevice = append(entry.MultiDevice, domain.MultiDevice{Source: VotingConflictSource, Evidence: conflicts})
	}

	if len(entry.MultiDevice) > 0 {
		entry.Flags = entry.Flags.With(domain.FlagMultiDevice)
	}
	if len(entry.HandMiss) > 0 {
		entry.Flags = entry.Flags.With(domain.FlagHandMiss)
	}
	if len(entry.OneMiss) > 0 {
		entry.Flags = entry.Flags.With(domain.FlagOneMiss)
	}
	return entry
}
