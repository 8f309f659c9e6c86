// Package wasmbin implements the subset of the WebAssembly binary
// format the harness needs: parsing a core module into sections,
// decoding and re-encoding function bodies instruction by instruction,
// and serializing a module back to bytes.
//
// It exists to serve the metering rewriter, which must inject imports
// and instruction sequences into untrusted guest binaries before they
// ever reach the VM, and the test fixtures, which construct guest
// modules programmatically. It is not a validator; structurally broken
// input is rejected with a parse error and semantic validation is left
// to the VM.
//
// Unsupported proposals (GC, exception handling, threads beyond
// atomics) surface as parse errors, which the engine reports as an
// invalid module.
package wasmbin
