package domain

import "sort"

// Flag marks a condition derived while finalizing an IP
type Flag string

const (
	// FlagMultiDevice - several physical devices suspected behind the address (e.g. NAT)
	FlagMultiDevice Flag = "multi_device"
	// FlagHandMiss - hand-curated value overrode a different voted value
	FlagHandMiss Flag = "hand_miss"
	// FlagOneMiss - accepted value had exactly one single-occurrence outlier
	FlagOneMiss Flag = "one_miss"
)

// Valid returns true for known flags
func (f Flag) Valid() bool {
	switch f {
	case FlagMultiDevice, FlagHandMiss, FlagOneMiss:
		return true
	}
	return false
}

// Flags is a set of flags kept sorted and free of duplicates
type Flags []Flag

// Has checks set membership
func (fs Flags) Has(f Flag) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

// With returns the set with f added
func (fs Flags) With(f Flag) Flags {
	if fs.Has(f) {
		return fs
	}
	out := append(append(Flags(nil), fs...), f)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HandMiss records a field where the hand-curated value replaced a different voted value
type HandMiss struct {
	Field Field  `json:"field" yaml:"field"`
	Hand  string `json:"hand" yaml:"hand"`
	Voted string `json:"voted,omitempty" yaml:"voted,omitempty"`
}

// OneMiss records an accepted value and the single outlier that was discarded
type OneMiss struct {
	Field         Field  `json:"field" yaml:"field"`
	Accepted      string `json:"accepted" yaml:"accepted"`
	AcceptedCount int    `json:"accepted_count" yaml:"accepted_count"`
	Outlier       string `json:"outlier" yaml:"outlier"`
}

// MultiDevice is evidence that several devices share one address
type MultiDevice struct {
	Source   string   `json:"source" yaml:"source"`
	Evidence []string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}
