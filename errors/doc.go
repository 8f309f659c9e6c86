// Package errors provides the structured error types used across the
// function harness.
//
// Errors are categorized by Phase (where in the run the error occurred)
// and Kind (error category). Guest-caused conditions never surface as
// Go errors from the harness; they become Outcome variants instead.
// What remains here is the machinery for rejecting bad configuration
// and input up front, and for reporting internal harness faults in a
// way the caller can always tell apart from guest failures:
//
//	err := errors.InvalidInput("invalid input JSON: ...")
//	err := errors.Internal("compile schema", cause)
//	if errors.IsInternal(err) { ... }
//
// All errors implement the standard error interface and support
// errors.Is/As.
package errors
