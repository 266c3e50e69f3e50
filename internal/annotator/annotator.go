package annotator

import (
	"context"

	"daf/internal/config"
	"daf/internal/domain"
	"daf/internal/flow"
)

// Annotator proposes annotations for a batch of IP addresses
type Annotator interface {
	// Name returns the unique identifier used in proposals and outputs
	Name() string

	// Annotate examines the batch and emits proposals through b.Proposer.
	// A returned error marks the whole run of this annotator as failed.
	Annotate(ctx context.Context, b *Batch) error
}

// Proposer receives the output of one annotator
type Proposer interface {
	// Propose records every non-empty field of a as a proposal for addr
	Propose(addr string, a domain.Annotation)

	// Signal records multi-device evidence for addr
	Signal(addr string, s domain.MultiDevice)
}

// Batch is the input handed to an annotator
type Batch struct {
	Addresses []string
	Flows     *flow.Index
	Proposer  Proposer
}

// Factory builds the annotators for one configuration entry. Most entries
// produce a single annotator; sni_annotator produces one per flow field.
type Factory func(cfg config.AnnotatorConfig, daf config.DAFConfig) ([]Annotator, error)

// Failure describes an annotator that did not complete
type Failure struct {
	Annotator string
	Err       error
}

func (f Failure) Error() string {
	return f.Annotator + ": " + f.Err.Error()
}
