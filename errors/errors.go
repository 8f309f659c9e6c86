package errors

import (
	"strings"
)

// Phase indicates where in the run the error occurred.
type Phase string

const (
	PhaseConfig     Phase = "config"     // limits, flags, schema files
	PhaseInput      Phase = "input"      // input payload decoding
	PhaseModule     Phase = "module"     // module loading and parsing
	PhaseInstrument Phase = "instrument" // metering rewrite
	PhaseExecute    Phase = "execute"    // engine execution
	PhaseValidate   Phase = "validate"   // output schema validation
	PhaseRender     Phase = "render"     // report encoding
)

// Kind categorizes the error.
type Kind string

const (
	KindInvalidData Kind = "invalid_data"
	KindUnsupported Kind = "unsupported"
	KindIO          Kind = "io"
	KindInternal    Kind = "internal"
)

// Error is the structured error type used throughout the harness.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by phase and kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Wrap wraps an existing error with phase and kind context.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// InvalidConfig creates a configuration rejection error.
func InvalidConfig(detail string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// InvalidInput creates an input payload rejection error.
func InvalidInput(detail string) *Error {
	return &Error{
		Phase:  PhaseInput,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// InvalidModule creates a module rejection error.
func InvalidModule(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseModule,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Unsupported creates an unsupported-construct error.
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Internal creates a harness fault unrelated to guest behavior.
func Internal(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindInternal,
		Detail: detail,
		Cause:  cause,
	}
}

// InternalAt is Internal with an explicit phase.
func InternalAt(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInternal,
		Detail: detail,
		Cause:  cause,
	}
}

// IsInternal reports whether err is (or wraps) a harness-internal fault.
// Internal faults map to their own exit category, distinct from every
// guest-caused failure.
func IsInternal(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindInternal {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsKind reports whether err is (or wraps) a structured error of the
// given kind and phase.
func IsKind(err error, phase Phase, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Phase == phase && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
