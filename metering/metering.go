package metering

import (
	"github.com/wippyai/function-harness/errors"
	"github.com/wippyai/function-harness/wasmbin"
)

// Host hook identity. The execution engine registers functions under
// these names before instantiating an instrumented module.
const (
	HostModule = "function_runner"
	FuelFunc   = "fuel"
	GrowFunc   = "memory_grow"
)

// numInjected is how many imports the rewriter prepends, and therefore
// how far every pre-existing function index shifts.
const numInjected = 2

const (
	fuelIdx uint32 = 0
	growIdx uint32 = 1
)

// Instrument rewrites a wasm binary with fuel and memory-growth hooks.
// Custom sections are dropped because their function index references
// would go stale after the shift.
func Instrument(bin []byte) ([]byte, error) {
	m, err := wasmbin.ParseModule(bin)
	if err != nil {
		return nil, err
	}
	for _, imp := range m.Imports {
		if imp.Module == HostModule {
			return nil, errors.InvalidModule("module already imports from "+HostModule, nil)
		}
	}

	hookType := m.AddType(wasmbin.FuncType{Params: []wasmbin.ValType{wasmbin.ValI32}})
	hooks := []wasmbin.Import{
		{Module: HostModule, Name: FuelFunc, Desc: wasmbin.ImportDesc{Kind: wasmbin.KindFunc, TypeIdx: hookType}},
		{Module: HostModule, Name: GrowFunc, Desc: wasmbin.ImportDesc{Kind: wasmbin.KindFunc, TypeIdx: hookType}},
	}
	m.Imports = append(hooks, m.Imports...)

	if err := shiftIndices(m); err != nil {
		return nil, err
	}
	if err := meterBodies(m); err != nil {
		return nil, err
	}

	m.Customs = nil
	m.CustomOrder = nil
	return m.Encode(), nil
}

// shiftIndices bumps every function index outside code bodies. Indices
// inside bodies shift during metering, which decodes them anyway.
func shiftIndices(m *wasmbin.Module) error {
	for i := range m.Exports {
		if m.Exports[i].Kind == wasmbin.KindFunc {
			m.Exports[i].Index += numInjected
		}
	}
	if m.Start != nil {
		s := *m.Start + numInjected
		m.Start = &s
	}
	for i := range m.Elements {
		e := &m.Elements[i]
		for j := range e.FuncIdxs {
			e.FuncIdxs[j] += numInjected
		}
		for j, expr := range e.InitExprs {
			shifted, err := shiftExpr(expr)
			if err != nil {
				return err
			}
			e.InitExprs[j] = shifted
		}
	}
	for i := range m.Globals {
		shifted, err := shiftExpr(m.Globals[i].Init)
		if err != nil {
			return err
		}
		m.Globals[i].Init = shifted
	}
	return nil
}

// shiftExpr bumps ref.func indices inside a constant expression.
func shiftExpr(expr []byte) ([]byte, error) {
	ins, err := wasmbin.DecodeInstructions(expr)
	if err != nil {
		return nil, err
	}
	changed := false
	for i := range ins {
		if ins[i].Opcode == wasmbin.OpRefFunc {
			ins[i].Index += numInjected
			changed = true
		}
	}
	if !changed {
		return expr, nil
	}
	return wasmbin.EncodeInstructionsTo(nil, ins), nil
}

func meterBodies(m *wasmbin.Module) error {
	for i := range m.Code {
		sig, ok := m.FuncTypeOf(m.NumImportedFuncs() + uint32(i))
		if !ok {
			return errors.InvalidModule("code body without a function type", nil)
		}
		if err := meterBody(&m.Code[i], uint32(len(sig.Params))); err != nil {
			return err
		}
	}
	return nil
}

// meterBody rewrites one function body: shifts call targets, inserts
// batched fuel charges, and wraps memory.grow with the growth hook.
// The hook needs the page delta both before and after the call, so a
// scratch i32 local is appended when the body grows memory.
func meterBody(fb *wasmbin.FuncBody, numParams uint32) error {
	ins, err := wasmbin.DecodeInstructions(fb.Code)
	if err != nil {
		return err
	}

	growsMemory := false
	for _, in := range ins {
		if in.Opcode == wasmbin.OpMemoryGrow {
			growsMemory = true
			break
		}
	}
	var scratch uint32
	if growsMemory {
		scratch = numParams
		for _, le := range fb.Locals {
			scratch += le.Count
		}
		fb.Locals = append(fb.Locals, wasmbin.LocalEntry{Count: 1, Type: wasmbin.ValI32})
	}

	out := make([]wasmbin.Instruction, 0, len(ins)*2)
	var pending int64
	flush := func() {
		if pending > 0 {
			out = append(out, wasmbin.I32Const(int32(pending)), wasmbin.Call(fuelIdx))
			pending = 0
		}
	}

	for _, in := range ins {
		pending += cost(in)
		if in.HasFuncIndex() {
			in.Index += numInjected
		}
		if isFlushPoint(in.Opcode) {
			flush()
			if in.Opcode == wasmbin.OpMemoryGrow {
				out = append(out,
					wasmbin.LocalTee(scratch),
					wasmbin.Call(growIdx),
					wasmbin.LocalGet(scratch),
				)
			}
		}
		out = append(out, in)
	}

	fb.Code = wasmbin.EncodeInstructionsTo(nil, out)
	return nil
}

// cost is the fuel price of one instruction. Structural operators and
// the plain stack shufflers are free, everything else costs one unit.
func cost(in wasmbin.Instruction) int64 {
	switch in.Opcode {
	case wasmbin.OpNop, wasmbin.OpBlock, wasmbin.OpLoop,
		wasmbin.OpIf, wasmbin.OpElse, wasmbin.OpEnd, wasmbin.OpDrop:
		return 0
	}
	return 1
}

// isFlushPoint reports whether pending charges must be paid before the
// instruction executes.
func isFlushPoint(op byte) bool {
	switch op {
	case wasmbin.OpUnreachable, wasmbin.OpBlock, wasmbin.OpLoop,
		wasmbin.OpIf, wasmbin.OpElse, wasmbin.OpEnd,
		wasmbin.OpBr, wasmbin.OpBrIf, wasmbin.OpBrTable,
		wasmbin.OpReturn, wasmbin.OpCall, wasmbin.OpCallIndirect,
		wasmbin.OpReturnCall, wasmbin.OpReturnCallIndirect,
		wasmbin.OpMemoryGrow:
		return true
	}
	return false
}
