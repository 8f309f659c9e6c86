package logbuf_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wippyai/function-harness/logbuf"
)

func TestWriteWithinCap(t *testing.T) {
	b := logbuf.NewBuffer(15)
	n, err := b.Write([]byte("hello world"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 11 {
		t.Errorf("expected 11 bytes reported, got %d", n)
	}
	if b.String() != "hello world" {
		t.Errorf("unexpected content %q", b.String())
	}
	if b.Truncated() {
		t.Error("should not be truncated")
	}
}

func TestTruncationExactCap(t *testing.T) {
	b := logbuf.NewBuffer(500)
	payload := bytes.Repeat([]byte("x"), 1000)
	n, err := b.Write(payload)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 1000 {
		t.Errorf("writes must report full length, got %d", n)
	}
	if b.Len() != 500 {
		t.Errorf("expected exactly 500 captured bytes, got %d", b.Len())
	}
	if !b.Truncated() {
		t.Error("expected truncated flag")
	}
	if b.Dropped() != 500 {
		t.Errorf("expected 500 dropped bytes, got %d", b.Dropped())
	}
}

func TestTruncationAcrossWrites(t *testing.T) {
	b := logbuf.NewBuffer(10)
	b.Write([]byte("hello "))
	b.Write([]byte("world"))
	b.Write([]byte("more"))

	if got := string(b.Bytes()); got != "hello worl" {
		t.Errorf("expected %q, got %q", "hello worl", got)
	}
	if b.Dropped() != 5 {
		t.Errorf("expected 5 dropped, got %d", b.Dropped())
	}
}

func TestWriteOrderPreserved(t *testing.T) {
	b := logbuf.NewBuffer(64)
	for _, s := range []string{"a", "b", "c", "d"} {
		b.Write([]byte(s))
	}
	if got := b.String(); got != "abcd" {
		t.Errorf("order not preserved: %q", got)
	}
}

func TestInvalidUTF8IsLossy(t *testing.T) {
	b := logbuf.NewBuffer(16)
	b.Write([]byte{0xff, 0xfe, 'o', 'k'})

	s := b.String()
	if !strings.Contains(s, "ok") {
		t.Errorf("valid suffix lost: %q", s)
	}
	if !strings.Contains(s, "�") {
		t.Errorf("expected replacement characters: %q", s)
	}
	// Raw bytes stay untouched.
	if b.Len() != 4 {
		t.Errorf("raw byte count changed: %d", b.Len())
	}
}

func TestTruncationMidRune(t *testing.T) {
	// ✌️ is 6 bytes; a 15-byte cap cuts the third one mid-sequence.
	b := logbuf.NewBuffer(15)
	b.Write([]byte("✌️✌️✌️"))

	if b.Len() != 15 {
		t.Fatalf("expected 15 captured bytes, got %d", b.Len())
	}
	if !strings.HasPrefix(b.String(), "✌️✌️✌") {
		t.Errorf("unexpected lossy text %q", b.String())
	}
}

func TestCaptureDefaults(t *testing.T) {
	c := logbuf.NewCapture(logbuf.Config{})
	if got := c.Diagnostic.Len(); got != 0 {
		t.Fatalf("fresh capture not empty: %d", got)
	}

	big := bytes.Repeat([]byte("y"), logbuf.DefaultDiagnosticCap+1)
	c.Diagnostic.Write(big)
	if c.Diagnostic.Len() != logbuf.DefaultDiagnosticCap {
		t.Errorf("diagnostic cap default not applied: %d", c.Diagnostic.Len())
	}

	// Streams are independent.
	if c.Result.Truncated() {
		t.Error("result stream affected by diagnostic writes")
	}
}
