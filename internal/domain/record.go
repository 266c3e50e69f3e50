package domain

// Source tells whether a record was voted in this run or reused from a snapshot
type Source string

const (
	SourceFresh  Source = "freshly_annotated"
	SourceReused Source = "reused_from_snapshot"
)

// Entry is the finalized, persistable state of one IP
type Entry struct {
	Final       Annotation            `json:"final_annotation" yaml:"final_annotation"`
	Flags       Flags                 `json:"flags,omitempty" yaml:"flags,omitempty"`
	OneMiss     []OneMiss             `json:"one_miss,omitempty" yaml:"one_miss,omitempty"`
	HandMiss    []HandMiss            `json:"hand_miss,omitempty" yaml:"hand_miss,omitempty"`
	MultiDevice []MultiDevice         `json:"multi_device,omitempty" yaml:"multi_device,omitempty"`
	Annotations map[string]Annotation `json:"annotations,omitempty" yaml:"annotations,omitempty"`
}

// Record is one IP under consideration in the current run
type Record struct {
	Address string
	// Proposals are the raw tags contributed by annotators in this run
	Proposals []Proposal
	// Signals are multi-device detections contributed in this run
	Signals []MultiDevice
	Entry   Entry
	Source  Source
}

// HasAnnotations returns true if any annotator contributed to this IP
func (e Entry) HasAnnotations() bool {
	return len(e.Annotations) > 0
}
