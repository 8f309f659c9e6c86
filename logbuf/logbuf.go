// Package logbuf provides bounded, ordered capture buffers for the two
// guest output streams. The result channel and the diagnostic channel
// are capped independently; bytes past a cap are dropped and counted
// rather than buffered, so guest output volume can never grow host
// memory without bound.
package logbuf

import (
	"strings"
)

// Default byte caps applied by NewCapture when the config leaves a cap
// unset. The diagnostic cap matches the original harness's bounded log.
const (
	DefaultResultCap     = 1 << 20 // 1MiB
	DefaultDiagnosticCap = 1000
)

// TruncationMarker is appended by renderers (not by the buffer) when a
// stream was cut off. Keeping it out of the buffer keeps the byte cap
// exact.
const TruncationMarker = "...[TRUNCATED]"

// Buffer is a capped ordered byte sink. Writes never fail; bytes past
// the cap are dropped and counted. Not safe for concurrent use, which
// matches the engine's synchronous single-run model.
type Buffer struct {
	data    []byte
	cap     int
	dropped int
}

// NewBuffer returns a buffer that keeps at most capBytes bytes.
// capBytes must be positive.
func NewBuffer(capBytes int) *Buffer {
	return &Buffer{cap: capBytes}
}

// Write implements io.Writer. It always reports len(p) written so the
// guest's own write calls keep succeeding after truncation, exactly as
// a discarded stream would behave.
func (b *Buffer) Write(p []byte) (int, error) {
	room := b.cap - len(b.data)
	if room <= 0 {
		b.dropped += len(p)
		return len(p), nil
	}
	if len(p) > room {
		b.data = append(b.data, p[:room]...)
		b.dropped += len(p) - room
		return len(p), nil
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

// Bytes returns the captured bytes. At most the configured cap.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of captured bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Truncated reports whether any byte was dropped.
func (b *Buffer) Truncated() bool {
	return b.dropped > 0
}

// Dropped returns the number of dropped bytes.
func (b *Buffer) Dropped() int {
	return b.dropped
}

// String returns the captured bytes as text, replacing invalid UTF-8
// sequences with the replacement character. Conversion is lossy and
// never fails the run.
func (b *Buffer) String() string {
	return strings.ToValidUTF8(string(b.data), "�")
}

// Config sets the per-stream byte caps. Zero values take the defaults.
type Config struct {
	ResultCap     int
	DiagnosticCap int
}

// Capture owns the two stream buffers for a single run. Write order is
// preserved within each stream; no ordering is tracked between streams.
type Capture struct {
	Result     *Buffer
	Diagnostic *Buffer
}

// NewCapture builds a Capture with the configured caps.
func NewCapture(cfg Config) *Capture {
	resultCap := cfg.ResultCap
	if resultCap <= 0 {
		resultCap = DefaultResultCap
	}
	diagCap := cfg.DiagnosticCap
	if diagCap <= 0 {
		diagCap = DefaultDiagnosticCap
	}
	return &Capture{
		Result:     NewBuffer(resultCap),
		Diagnostic: NewBuffer(diagCap),
	}
}
