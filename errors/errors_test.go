package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/wippyai/function-harness/errors"
)

func TestErrorFormat(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := errors.InvalidModule("truncated section", cause)

	msg := err.Error()
	want := "[module] invalid_data: truncated section (caused by: unexpected EOF)"
	if msg != want {
		t.Errorf("Error() = %q, want %q", msg, want)
	}
}

func TestErrorFormatNoCause(t *testing.T) {
	err := errors.InvalidConfig("fuel must be positive")
	want := "[config] invalid_data: fuel must be positive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := errors.Internal("engine setup", cause)
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause not reachable through Unwrap")
	}
}

func TestIsMatchesPhaseAndKind(t *testing.T) {
	err := errors.InvalidModule("bad magic", nil)
	if !stderrors.Is(err, errors.InvalidModule("", nil)) {
		t.Error("Is should match on phase and kind")
	}
	if stderrors.Is(err, errors.InvalidInput("")) {
		t.Error("Is must not match a different phase")
	}
}

func TestIsInternal(t *testing.T) {
	if !errors.IsInternal(errors.Internal("boom", nil)) {
		t.Error("Internal errors must be internal")
	}
	if errors.IsInternal(errors.InvalidInput("bad json")) {
		t.Error("input errors are not internal")
	}
	wrapped := fmt.Errorf("context: %w", errors.Internal("boom", nil))
	if !errors.IsInternal(wrapped) {
		t.Error("IsInternal must unwrap")
	}
	if errors.IsInternal(nil) {
		t.Error("nil is not internal")
	}
}

func TestIsKind(t *testing.T) {
	err := errors.Wrap(errors.PhaseValidate, errors.KindInvalidData, nil, "bad output")
	if !errors.IsKind(err, errors.PhaseValidate, errors.KindInvalidData) {
		t.Error("IsKind should match")
	}
	if errors.IsKind(err, errors.PhaseExecute, errors.KindInvalidData) {
		t.Error("IsKind must not match a different phase")
	}
}
