// Package engine executes instrumented wasm modules under wazero with
// resource accounting. Every run gets a fresh interpreter runtime, a
// deterministic system environment (fixed wall clock, stepped
// monotonic clock, seeded random source) and a monitor that enforces
// the fuel, linear memory and call stack budgets through the host
// hooks the metering rewriter injected.
//
// Budget enforcement is breach-first: the monitor records which limit
// broke and then aborts the call, and classification consults the
// monitor before looking at the error wazero returned. The outcome is
// therefore stable no matter how the abort surfaced.
package engine
