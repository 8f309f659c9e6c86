package harness_test

import (
	"strings"
	"testing"

	harness "github.com/wippyai/function-harness"
)

func TestLimitsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*harness.ResourceLimits)
		ok     bool
	}{
		{"defaults", func(*harness.ResourceLimits) {}, true},
		{"zero memory", func(l *harness.ResourceLimits) { l.MemoryPages = 0 }, false},
		{"memory past wasm32", func(l *harness.ResourceLimits) { l.MemoryPages = 70000 }, false},
		{"zero stack", func(l *harness.ResourceLimits) { l.StackBytes = 0 }, false},
		{"zero fuel", func(l *harness.ResourceLimits) { l.Fuel = 0 }, false},
		{"single page", func(l *harness.ResourceLimits) { l.MemoryPages = 1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := harness.DefaultLimits()
			tt.mutate(&limits)
			err := limits.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLimitsScale(t *testing.T) {
	base := harness.DefaultLimits()

	scaled := base.Scale(2.5)
	if want := uint64(float64(base.Fuel) * 2.5); scaled.Fuel != want {
		t.Errorf("scaled fuel = %d, want %d", scaled.Fuel, want)
	}
	if scaled.MemoryPages != base.MemoryPages || scaled.StackBytes != base.StackBytes {
		t.Error("scaling must only touch fuel")
	}
	if base.Scale(1) != base {
		t.Error("factor 1 must be identity")
	}
	if base.Scale(-3) != base {
		t.Error("non-positive factors must be identity")
	}
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		in   string
		want harness.Codec
		ok   bool
	}{
		{"json", harness.CodecJSON, true},
		{"", harness.CodecJSON, true},
		{"JSON", harness.CodecJSON, true},
		{"messagepack", harness.CodecMessagepack, true},
		{"msgpack", harness.CodecMessagepack, true},
		{"raw", harness.CodecRaw, true},
		{"protobuf", "", false},
	}
	for _, tt := range tests {
		got, err := harness.ParseCodec(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseCodec(%q) = %v, %v", tt.in, got, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("ParseCodec(%q) should fail", tt.in)
		}
	}
}

func TestDecodeInputMinifiesJSON(t *testing.T) {
	guest, value, err := harness.CodecJSON.DecodeInput([]byte("{\n  \"a\": [1, 2]\n}"))
	if err != nil {
		t.Fatalf("DecodeInput: %v", err)
	}
	if string(guest) != `{"a":[1,2]}` {
		t.Errorf("guest payload = %q, want minified", guest)
	}
	if value == nil {
		t.Error("expected decoded value")
	}
}

func TestDecodeInputRejectsBadJSON(t *testing.T) {
	for _, c := range []harness.Codec{harness.CodecJSON, harness.CodecMessagepack} {
		if _, _, err := c.DecodeInput([]byte(`{"broken":`)); err == nil {
			t.Errorf("codec %s accepted broken JSON", c)
		}
	}
}

func TestDecodeInputRawPassthrough(t *testing.T) {
	raw := []byte{0xFF, 0x00, 0x42}
	guest, value, err := harness.CodecRaw.DecodeInput(raw)
	if err != nil {
		t.Fatalf("DecodeInput: %v", err)
	}
	if string(guest) != string(raw) {
		t.Errorf("guest payload = %x, want %x", guest, raw)
	}
	if value != nil {
		t.Errorf("raw codec should not decode, got %#v", value)
	}
}

func TestMessagepackRoundTrip(t *testing.T) {
	guest, _, err := harness.CodecMessagepack.DecodeInput([]byte(`{"qty": 3, "sku": "A1"}`))
	if err != nil {
		t.Fatalf("DecodeInput: %v", err)
	}
	value, err := harness.CodecMessagepack.DecodeOutput(guest)
	if err != nil {
		t.Fatalf("DecodeOutput: %v", err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("value = %#v", value)
	}
	if obj["sku"] != "A1" {
		t.Errorf("sku = %v", obj["sku"])
	}
}

func TestHumanize(t *testing.T) {
	if got := harness.CodecRaw.Humanize([]byte{0xDE, 0xAD}); got != "de ad" {
		t.Errorf("raw humanize = %q", got)
	}
	got := harness.CodecJSON.Humanize([]byte(`{"a":1}`))
	if !strings.Contains(got, "\"a\": 1") {
		t.Errorf("json humanize = %q, want pretty form", got)
	}
	got = harness.CodecJSON.Humanize([]byte{0x68, 0x69, 0xFF})
	if !strings.Contains(got, "hi") || !strings.Contains(got, "�") {
		t.Errorf("lossy humanize = %q", got)
	}
}

func TestEntryPoint(t *testing.T) {
	req := harness.RunRequest{}
	if req.EntryPoint() != harness.DefaultEntry {
		t.Errorf("default entry = %q", req.EntryPoint())
	}
	req.Entry = "handle"
	if req.EntryPoint() != "handle" {
		t.Errorf("entry = %q", req.EntryPoint())
	}
}
