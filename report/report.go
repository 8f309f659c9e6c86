// Package report assembles the final account of a run: the outcome,
// the captured channels, the resource profile and any output schema
// violations, in both machine and human readable forms.
package report

import (
	"encoding/json"

	harness "github.com/wippyai/function-harness"
	"github.com/wippyai/function-harness/errors"
	"github.com/wippyai/function-harness/logbuf"
	"github.com/wippyai/function-harness/validate"
)

// Status is the final classification of a run. It extends the engine
// outcome with invalid_output, which only exists after decoding.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusTrapped       Status = "trapped"
	StatusLimitExceeded Status = "limit_exceeded"
	StatusInvalidModule Status = "invalid_module"
	StatusInvalidInput  Status = "invalid_input"
	StatusInvalidOutput Status = "invalid_output"
)

// Report is the full account of one run.
type Report struct {
	Name            string        `json:"name,omitempty"`
	ModuleSizeBytes int           `json:"module_size_bytes"`
	Codec           harness.Codec `json:"codec"`
	Status          Status        `json:"status"`

	// Trap, Limit and Reason mirror the outcome variant that applies.
	Trap   string        `json:"trap,omitempty"`
	Limit  harness.Limit `json:"limit,omitempty"`
	Reason string        `json:"reason,omitempty"`

	// Output is the decoded output value. RawOutput carries the exact
	// result-channel bytes when no decoded form exists: always for the
	// raw codec, and on invalid output so the caller can inspect what
	// the guest actually wrote.
	Output    any    `json:"output,omitempty"`
	RawOutput []byte `json:"raw_output,omitempty"`

	Logs          string `json:"logs,omitempty"`
	LogsTruncated bool   `json:"logs_truncated,omitempty"`

	Profile     harness.Profile      `json:"profile"`
	ScaleFactor float64              `json:"scale_factor,omitempty"`
	Violations  []validate.Violation `json:"violations,omitempty"`
}

// Build classifies an outcome into a report. Completed runs get their
// output decoded here; a decode failure downgrades the run to
// invalid_output while keeping the raw bytes.
func Build(req harness.RunRequest, outcome harness.Outcome, profile harness.Profile, capture *logbuf.Capture) Report {
	r := Report{
		Name:            req.Name,
		ModuleSizeBytes: len(req.Module),
		Codec:           req.Codec,
		Profile:         profile,
	}
	if capture != nil {
		r.Logs = capture.Diagnostic.String()
		if capture.Diagnostic.Truncated() {
			r.Logs += logbuf.TruncationMarker
			r.LogsTruncated = true
		}
	}

	switch outcome.Kind {
	case harness.OutcomeCompleted:
		value, err := req.Codec.DecodeOutput(outcome.Output)
		if err != nil {
			r.Status = StatusInvalidOutput
			r.Reason = err.Error()
			r.RawOutput = outcome.Output
			return r
		}
		r.Status = StatusCompleted
		r.Output = value
		if value == nil {
			r.RawOutput = outcome.Output
		}
	case harness.OutcomeTrapped:
		r.Status = StatusTrapped
		r.Trap = outcome.TrapMessage
	case harness.OutcomeLimitExceeded:
		r.Status = StatusLimitExceeded
		r.Limit = outcome.Limit
	case harness.OutcomeInvalidModule:
		r.Status = StatusInvalidModule
		r.Reason = outcome.Reason
	case harness.OutcomeInvalidInput:
		r.Status = StatusInvalidInput
		r.Reason = outcome.Reason
	}
	return r
}

// EncodeJSON serializes the report for machine consumers.
func (r Report) EncodeJSON() ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRender, errors.KindInternal, err, "encoding report")
	}
	return out, nil
}

// Exit categories for CLI consumers. Schema violations only fail the
// run in strict mode; otherwise they are advisory.
const (
	ExitSuccess          = 0
	ExitInvalidInput     = 2
	ExitInvalidModule    = 3
	ExitTrapped          = 4
	ExitLimitExceeded    = 5
	ExitInvalidOutput    = 6
	ExitValidationFailed = 7
	ExitInternalError    = 10
)

// ExitCode maps a report to its process exit category.
func (r Report) ExitCode(strict bool) int {
	switch r.Status {
	case StatusCompleted:
		if strict && len(r.Violations) > 0 {
			return ExitValidationFailed
		}
		return ExitSuccess
	case StatusInvalidInput:
		return ExitInvalidInput
	case StatusInvalidModule:
		return ExitInvalidModule
	case StatusTrapped:
		return ExitTrapped
	case StatusLimitExceeded:
		return ExitLimitExceeded
	case StatusInvalidOutput:
		return ExitInvalidOutput
	}
	return ExitInternalError
}
