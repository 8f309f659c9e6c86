package wasmbin_test

import (
	"bytes"
	"testing"

	"github.com/wippyai/function-harness/wasmbin"
)

func buildModule() *wasmbin.Module {
	m := &wasmbin.Module{}
	sig := m.AddType(wasmbin.FuncType{
		Params:  []wasmbin.ValType{wasmbin.ValI32, wasmbin.ValI32},
		Results: []wasmbin.ValType{wasmbin.ValI32},
	})
	void := m.AddType(wasmbin.FuncType{})
	m.Imports = append(m.Imports, wasmbin.Import{
		Module: "env",
		Name:   "add",
		Desc:   wasmbin.ImportDesc{Kind: wasmbin.KindFunc, TypeIdx: sig},
	})
	m.Functions = append(m.Functions, void)
	m.Memories = append(m.Memories, wasmbin.MemoryType{
		Limits: wasmbin.Limits{Min: 1, Max: 4, HasMax: true},
	})
	m.Exports = append(m.Exports, wasmbin.Export{
		Name: "_start", Kind: wasmbin.KindFunc, Index: 1,
	})
	code := wasmbin.EncodeInstructionsTo(nil, []wasmbin.Instruction{
		wasmbin.I32Const(2),
		wasmbin.I32Const(3),
		wasmbin.Call(0),
		wasmbin.Op(wasmbin.OpDrop),
		wasmbin.Op(wasmbin.OpEnd),
	})
	m.Code = append(m.Code, wasmbin.FuncBody{
		Locals: []wasmbin.LocalEntry{{Count: 2, Type: wasmbin.ValI32}},
		Code:   code,
	})
	return m
}

func TestEncodeParseRoundTrip(t *testing.T) {
	m := buildModule()
	bin := m.Encode()

	got, err := wasmbin.ParseModule(bin)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if len(got.Types) != 2 || len(got.Imports) != 1 || len(got.Code) != 1 {
		t.Fatalf("unexpected section counts: types=%d imports=%d code=%d",
			len(got.Types), len(got.Imports), len(got.Code))
	}
	if got.Imports[0].Module != "env" || got.Imports[0].Name != "add" {
		t.Errorf("import = %q.%q, want env.add", got.Imports[0].Module, got.Imports[0].Name)
	}
	if !got.Types[0].Equal(m.Types[0]) {
		t.Error("type 0 did not survive round trip")
	}
	if got.Memories[0].Limits != (wasmbin.Limits{Min: 1, Max: 4, HasMax: true}) {
		t.Errorf("memory limits = %+v", got.Memories[0].Limits)
	}
	if !bytes.Equal(got.Code[0].Code, m.Code[0].Code) {
		t.Errorf("code body changed: got %x want %x", got.Code[0].Code, m.Code[0].Code)
	}
	if !bytes.Equal(got.Encode(), bin) {
		t.Error("re-encoding a parsed module is not stable")
	}
}

func TestParseErrors(t *testing.T) {
	valid := buildModule().Encode()

	tests := []struct {
		name string
		bin  []byte
	}{
		{"empty", nil},
		{"short preamble", []byte{0x00, 0x61, 0x73}},
		{"bad magic", []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x00, 0x00, 0x00}},
		{"bad version", []byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}},
		{"truncated section", append(append([]byte{}, valid...), wasmbin.SectionType, 0x7F)},
		{"unknown section", append(append([]byte{}, valid...), 0x2A, 0x01, 0x00)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := wasmbin.ParseModule(tt.bin); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}

func TestConstExprWithEmbeddedEndByte(t *testing.T) {
	// i64.const 11 encodes its immediate as the byte 0x0B, the same
	// byte as the end opcode. The parser must not stop there.
	m := &wasmbin.Module{}
	init := wasmbin.EncodeInstructionsTo(nil, []wasmbin.Instruction{
		wasmbin.I64Const(11),
		wasmbin.Op(wasmbin.OpEnd),
	})
	m.Globals = append(m.Globals, wasmbin.Global{
		Type: wasmbin.GlobalType{ValType: wasmbin.ValI64, Mutable: true},
		Init: init,
	})

	got, err := wasmbin.ParseModule(m.Encode())
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if !bytes.Equal(got.Globals[0].Init, init) {
		t.Errorf("init expr = %x, want %x", got.Globals[0].Init, init)
	}
}

func TestInstructionDecode(t *testing.T) {
	tests := []struct {
		name string
		in   wasmbin.Instruction
	}{
		{"i32.const negative", wasmbin.I32Const(-123456)},
		{"i64.const min", wasmbin.I64Const(-1 << 62)},
		{"call large index", wasmbin.Call(300)},
		{"memory.grow", wasmbin.MemoryGrow()},
		{"local.tee", wasmbin.LocalTee(17)},
		{"br_if", wasmbin.BrIf(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := tt.in.EncodeTo(nil)
			got, off, err := wasmbin.DecodeInstruction(enc, 0)
			if err != nil {
				t.Fatalf("DecodeInstruction: %v", err)
			}
			if off != len(enc) {
				t.Errorf("consumed %d of %d bytes", off, len(enc))
			}
			if !bytes.Equal(got.EncodeTo(nil), enc) {
				t.Errorf("re-encode = %x, want %x", got.EncodeTo(nil), enc)
			}
		})
	}
}

func TestFuncIndexDecoding(t *testing.T) {
	enc := wasmbin.Call(42).EncodeTo(nil)
	in, _, err := wasmbin.DecodeInstruction(enc, 0)
	if err != nil {
		t.Fatalf("DecodeInstruction: %v", err)
	}
	if !in.HasFuncIndex() || in.Index != 42 {
		t.Errorf("decoded call index = %d (hasIndex=%v), want 42", in.Index, in.HasFuncIndex())
	}
}

func TestFuncTypeOf(t *testing.T) {
	m := buildModule()
	imported, ok := m.FuncTypeOf(0)
	if !ok || len(imported.Params) != 2 {
		t.Fatalf("FuncTypeOf(0) = %+v, %v", imported, ok)
	}
	local, ok := m.FuncTypeOf(1)
	if !ok || len(local.Params) != 0 {
		t.Fatalf("FuncTypeOf(1) = %+v, %v", local, ok)
	}
	if _, ok := m.FuncTypeOf(2); ok {
		t.Error("FuncTypeOf(2) should be out of range")
	}
}
