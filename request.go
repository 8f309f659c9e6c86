package harness

// DefaultEntry is the export invoked when a RunRequest names none.
const DefaultEntry = "_start"

// RunRequest describes one isolated execution. It is created once per
// invocation and never mutated afterwards.
type RunRequest struct {
	// Name identifies the Function in the report, usually the module's
	// file name.
	Name string

	// Module holds the raw WebAssembly binary.
	Module []byte

	// Input holds the raw input payload, encoded per Codec.
	Input []byte

	// Limits is the resource budget for this run.
	Limits ResourceLimits

	// Codec selects the input/output payload encoding.
	Codec Codec

	// Entry names the export to invoke. Empty means DefaultEntry.
	Entry string
}

// EntryPoint returns the export name to invoke.
func (r RunRequest) EntryPoint() string {
	if r.Entry == "" {
		return DefaultEntry
	}
	return r.Entry
}
