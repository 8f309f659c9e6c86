// Package harness defines the shared data model for running a single
// untrusted WebAssembly Function under fixed resource budgets.
//
// A run is described by a RunRequest: the module bytes, the input
// payload, a ResourceLimits record and a Codec. The engine package
// executes the request and produces an Outcome, a tagged variant
// describing exactly how execution ended, together with a Profile of
// consumed resources. The report package turns an Outcome plus the
// captured logs into the final, serializable Report.
//
// Nothing in this package (or its consumers) keeps state across runs:
// every invocation constructs its environment from scratch, which is
// what makes byte-identical reports for identical requests possible.
package harness
