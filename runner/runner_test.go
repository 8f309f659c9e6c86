package runner_test

import (
	"context"
	"testing"

	harness "github.com/wippyai/function-harness"
	"github.com/wippyai/function-harness/internal/wasmtest"
	"github.com/wippyai/function-harness/report"
	"github.com/wippyai/function-harness/runner"
	"github.com/wippyai/function-harness/validate"
)

func echoRequest(input string) harness.RunRequest {
	return harness.RunRequest{
		Name:   "echo.wasm",
		Module: wasmtest.EchoModule(),
		Input:  []byte(input),
		Codec:  harness.CodecJSON,
		Limits: harness.DefaultLimits(),
	}
}

func TestRunEcho(t *testing.T) {
	rep, err := runner.Run(context.Background(), echoRequest(`{"total": 12}`), runner.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Status != report.StatusCompleted {
		t.Fatalf("status = %s (%s)", rep.Status, rep.Reason)
	}
	obj, ok := rep.Output.(map[string]any)
	if !ok || obj["total"] != float64(12) {
		t.Errorf("output = %#v", rep.Output)
	}
	if rep.Profile.FuelConsumed == 0 {
		t.Error("expected fuel accounting")
	}
}

func TestRunMinifiesInput(t *testing.T) {
	// The guest echoes its stdin, so the report shows exactly what it
	// was fed: minified JSON regardless of input formatting.
	rep, err := runner.Run(context.Background(), echoRequest("{\n  \"a\": 1\n}"), runner.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Status != report.StatusCompleted {
		t.Fatalf("status = %s (%s)", rep.Status, rep.Reason)
	}
	obj, ok := rep.Output.(map[string]any)
	if !ok || obj["a"] != float64(1) {
		t.Errorf("output = %#v", rep.Output)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	rep, err := runner.Run(context.Background(), echoRequest(`{"broken":`), runner.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Status != report.StatusInvalidInput {
		t.Fatalf("status = %s, want invalid_input", rep.Status)
	}
	if rep.Profile.FuelConsumed != 0 {
		t.Error("guest should not have run")
	}
}

func TestRunRejectsBadLimits(t *testing.T) {
	req := echoRequest(`{}`)
	req.Limits.Fuel = 0
	if _, err := runner.Run(context.Background(), req, runner.Options{}); err == nil {
		t.Error("expected limits validation error")
	}
}

func TestRunMessagepackCodec(t *testing.T) {
	req := echoRequest(`{"qty": 3}`)
	req.Codec = harness.CodecMessagepack
	rep, err := runner.Run(context.Background(), req, runner.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Status != report.StatusCompleted {
		t.Fatalf("status = %s (%s)", rep.Status, rep.Reason)
	}
	obj, ok := rep.Output.(map[string]any)
	if !ok {
		t.Fatalf("output = %#v", rep.Output)
	}
	if _, ok := obj["qty"]; !ok {
		t.Errorf("output lost qty: %#v", rep.Output)
	}
}

func TestRunValidatesOutput(t *testing.T) {
	schema, err := validate.Compile([]byte(`{
		"type": "object",
		"required": ["operations"]
	}`))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	rep, err := runner.Run(context.Background(), echoRequest(`{"other": 1}`), runner.Options{
		Schema: schema,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Status != report.StatusCompleted {
		t.Fatalf("status = %s", rep.Status)
	}
	if len(rep.Violations) == 0 {
		t.Fatal("expected schema violations")
	}
	if rep.ExitCode(false) != report.ExitSuccess {
		t.Error("violations must not fail a non-strict run")
	}
	if rep.ExitCode(true) != report.ExitValidationFailed {
		t.Error("violations must fail a strict run")
	}
}

func TestRunAppliesScaleFactor(t *testing.T) {
	req := echoRequest(`{"payload": "0123456789012345678901234567890123456789"}`)
	rep, err := runner.Run(context.Background(), req, runner.Options{
		ScaleSource: `query { orders @scaleLimits(rate: 100) { id } }`,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.ScaleFactor <= 1 {
		t.Errorf("scale factor = %v, want > 1", rep.ScaleFactor)
	}
}

func TestRunInvalidOutput(t *testing.T) {
	req := harness.RunRequest{
		Name:   "badout.wasm",
		Module: wasmtest.WriteModule(1, []byte("not json at all")),
		Input:  []byte(`{}`),
		Codec:  harness.CodecJSON,
		Limits: harness.DefaultLimits(),
	}
	rep, err := runner.Run(context.Background(), req, runner.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Status != report.StatusInvalidOutput {
		t.Fatalf("status = %s, want invalid_output", rep.Status)
	}
	if string(rep.RawOutput) != "not json at all" {
		t.Errorf("raw output = %q", rep.RawOutput)
	}
	if rep.ExitCode(false) != report.ExitInvalidOutput {
		t.Errorf("exit code = %d", rep.ExitCode(false))
	}
}

func TestRunTruncatesDiagnostics(t *testing.T) {
	spam := make([]byte, 5000)
	for i := range spam {
		spam[i] = 'a' + byte(i%26)
	}
	req := harness.RunRequest{
		Name:   "spam.wasm",
		Module: wasmtest.WriteModule(2, spam),
		Input:  []byte(`{}`),
		Codec:  harness.CodecRaw,
		Limits: harness.DefaultLimits(),
	}
	rep, err := runner.Run(context.Background(), req, runner.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.LogsTruncated {
		t.Fatal("expected truncated diagnostics")
	}
	if len(rep.Logs) == 0 || rep.Logs[:4] != "abcd" {
		t.Errorf("logs do not start with the captured prefix: %q", rep.Logs[:10])
	}
}

func TestRunReportsAreByteIdentical(t *testing.T) {
	run := func() []byte {
		rep, err := runner.Run(context.Background(), echoRequest(`{"n": 5}`), runner.Options{})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		out, err := rep.EncodeJSON()
		if err != nil {
			t.Fatalf("EncodeJSON: %v", err)
		}
		return out
	}
	first, second := run(), run()
	if string(first) != string(second) {
		t.Errorf("reports differ:\n%s\n---\n%s", first, second)
	}
}

func TestScaleFactor(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		inputBytes int
		want       float64
	}{
		{"no directive", `query { id }`, 4096, 1},
		{"small input stays at one", `@scaleLimits(rate: 0.001)`, 100, 1},
		{"scales with input", `@scaleLimits(rate: 2)`, 2048, 4},
		{"largest rate wins", `@scaleLimits(rate: 1) @scaleLimits(rate: 3)`, 1024, 3},
		{"clamped", `@scaleLimits(rate: 1000)`, 1 << 20, 10},
		{"ignores junk rate", `@scaleLimits(rate: -5)`, 4096, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runner.ScaleFactor(tt.source, tt.inputBytes); got != tt.want {
				t.Errorf("ScaleFactor = %v, want %v", got, tt.want)
			}
		})
	}
}
