package config

// ExecutionMode defines how annotators are scheduled
type ExecutionMode string

const (
	// ModeParallel - annotators run concurrently, order unspecified
	ModeParallel ExecutionMode = "parallel"
	// ModeSequential - annotators run one after another in declared order
	ModeSequential ExecutionMode = "sequential"
)

// ParseExecutionMode converts a string to ExecutionMode, defaulting to parallel
func ParseExecutionMode(s string) ExecutionMode {
	switch s {
	case "sequential", "false":
		return ModeSequential
	default:
		return ModeParallel
	}
}

// ExecutionMode derives the scheduling mode from the threads switch
func (d DAFConfig) ExecutionMode() ExecutionMode {
	if d.Threads {
		return ModeParallel
	}
	return ModeSequential
}
