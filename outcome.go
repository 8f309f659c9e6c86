package harness

// Limit identifies which resource budget a run exceeded.
type Limit string

const (
	LimitLinearMemory Limit = "linear_memory"
	LimitStack        Limit = "stack"
	LimitRuntime      Limit = "runtime"
)

// OutcomeKind discriminates the Outcome variant.
type OutcomeKind uint8

const (
	// OutcomeCompleted means the entry point returned normally.
	OutcomeCompleted OutcomeKind = iota + 1
	// OutcomeTrapped means the VM signalled a fault (unreachable,
	// out-of-bounds access, nonzero exit, ...).
	OutcomeTrapped
	// OutcomeLimitExceeded means a resource budget was hit and execution
	// was halted at the offending operation.
	OutcomeLimitExceeded
	// OutcomeInvalidModule means the module bytes were rejected before
	// execution.
	OutcomeInvalidModule
	// OutcomeInvalidInput means the input payload failed to decode
	// before instantiation.
	OutcomeInvalidInput
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTrapped:
		return "trapped"
	case OutcomeLimitExceeded:
		return "limit_exceeded"
	case OutcomeInvalidModule:
		return "invalid_module"
	case OutcomeInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Outcome is the raw result of one execution. Exactly one variant holds;
// use the constructors below rather than filling the struct directly.
type Outcome struct {
	Kind OutcomeKind

	// Output holds the result-channel bytes. Set for Completed.
	Output []byte

	// TrapMessage is the engine's fault message, preserved verbatim.
	// Set for Trapped.
	TrapMessage string

	// Limit names the exceeded budget. Set for LimitExceeded.
	Limit Limit

	// Reason explains the rejection. Set for InvalidModule and
	// InvalidInput.
	Reason string
}

// Completed builds the normal-completion outcome carrying the
// result-channel bytes the guest wrote.
func Completed(output []byte) Outcome {
	return Outcome{Kind: OutcomeCompleted, Output: output}
}

// Trapped builds the VM-fault outcome. The message is kept verbatim.
func Trapped(message string) Outcome {
	return Outcome{Kind: OutcomeTrapped, TrapMessage: message}
}

// LimitExceeded builds the budget-breach outcome.
func LimitExceeded(limit Limit) Outcome {
	return Outcome{Kind: OutcomeLimitExceeded, Limit: limit}
}

// InvalidModule builds the pre-execution module rejection outcome.
func InvalidModule(reason string) Outcome {
	return Outcome{Kind: OutcomeInvalidModule, Reason: reason}
}

// InvalidInput builds the pre-instantiation input rejection outcome.
func InvalidInput(reason string) Outcome {
	return Outcome{Kind: OutcomeInvalidInput, Reason: reason}
}

// Profile reports the resources a run consumed. Partial counts are
// reported even when the run trapped or exceeded a limit.
type Profile struct {
	// FuelConsumed is the total instruction cost charged.
	FuelConsumed uint64 `json:"fuel_consumed"`
	// PeakMemoryBytes is the high-water linear memory size.
	PeakMemoryBytes uint64 `json:"peak_memory_bytes"`
	// PeakStackBytes is the high-water estimated call-stack usage.
	PeakStackBytes uint64 `json:"peak_stack_bytes"`
}
