// Package metering rewrites wasm binaries so that their execution cost
// becomes observable to the host. Two host functions are prepended to
// the import section: one receives batched per-instruction fuel
// charges, the other the page delta of every memory.grow before it
// runs. All function indices in the module shift to make room, and the
// rewriter patches every site that holds one.
//
// Charges are batched per basic block. The accumulated cost is flushed
// with a single host call before any instruction that can transfer
// control, so a function that traps or branches never pays for
// instructions it did not reach past the flush point.
package metering
