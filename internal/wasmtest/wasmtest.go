// Package wasmtest builds small guest modules in memory so tests do
// not depend on checked-in binaries or an external toolchain.
package wasmtest

import "github.com/wippyai/function-harness/wasmbin"

const wasiModule = "wasi_snapshot_preview1"

// Guest memory layout used by the fixtures: the iovec lives at 8, the
// io counter at 4 and payload buffers start at 16.
const (
	counterAddr = 4
	iovecAddr   = 8
	bufferAddr  = 16
	bufferSize  = 1024
)

// base returns a module skeleton with one page of exported memory and
// a single exported entry function whose body the caller fills in.
func base() *wasmbin.Module {
	m := &wasmbin.Module{}
	m.Memories = append(m.Memories, wasmbin.MemoryType{
		Limits: wasmbin.Limits{Min: 1},
	})
	m.Exports = append(m.Exports, wasmbin.Export{
		Name: "memory", Kind: wasmbin.KindMemory, Index: 0,
	})
	return m
}

// finish appends the entry function with the given body and returns
// the encoded binary.
func finish(m *wasmbin.Module, body []wasmbin.Instruction) []byte {
	void := m.AddType(wasmbin.FuncType{})
	m.Functions = append(m.Functions, void)
	m.Exports = append(m.Exports, wasmbin.Export{
		Name: "_start", Kind: wasmbin.KindFunc, Index: m.NumImportedFuncs(),
	})
	body = append(body, wasmbin.Op(wasmbin.OpEnd))
	m.Code = append(m.Code, wasmbin.FuncBody{
		Code: wasmbin.EncodeInstructionsTo(nil, body),
	})
	return m.Encode()
}

func fdIOImport(m *wasmbin.Module, name string) wasmbin.Import {
	sig := m.AddType(wasmbin.FuncType{
		Params:  []wasmbin.ValType{wasmbin.ValI32, wasmbin.ValI32, wasmbin.ValI32, wasmbin.ValI32},
		Results: []wasmbin.ValType{wasmbin.ValI32},
	})
	return wasmbin.Import{
		Module: wasiModule,
		Name:   name,
		Desc:   wasmbin.ImportDesc{Kind: wasmbin.KindFunc, TypeIdx: sig},
	}
}

// EchoModule copies up to a buffer's worth of stdin to stdout.
func EchoModule() []byte {
	m := base()
	m.Imports = append(m.Imports, fdIOImport(m, "fd_read"), fdIOImport(m, "fd_write"))

	body := []wasmbin.Instruction{
		// iovec = {base: bufferAddr, len: bufferSize}
		wasmbin.I32Const(iovecAddr),
		wasmbin.I32Const(bufferAddr),
		wasmbin.I32Store(0),
		wasmbin.I32Const(iovecAddr + 4),
		wasmbin.I32Const(bufferSize),
		wasmbin.I32Store(0),
		// fd_read(stdin, iovec, 1, counterAddr)
		wasmbin.I32Const(0),
		wasmbin.I32Const(iovecAddr),
		wasmbin.I32Const(1),
		wasmbin.I32Const(counterAddr),
		wasmbin.Call(0),
		wasmbin.Op(wasmbin.OpDrop),
		// shrink the iovec to the bytes actually read
		wasmbin.I32Const(iovecAddr + 4),
		wasmbin.I32Const(counterAddr),
		wasmbin.I32Load(0),
		wasmbin.I32Store(0),
		// fd_write(stdout, iovec, 1, counterAddr)
		wasmbin.I32Const(1),
		wasmbin.I32Const(iovecAddr),
		wasmbin.I32Const(1),
		wasmbin.I32Const(counterAddr),
		wasmbin.Call(1),
		wasmbin.Op(wasmbin.OpDrop),
	}
	return finish(m, body)
}

// WriteModule writes a fixed payload to the given file descriptor.
// fd 1 feeds the result channel, fd 2 the diagnostic channel.
func WriteModule(fd int32, payload []byte) []byte {
	m := base()
	m.Imports = append(m.Imports, fdIOImport(m, "fd_write"))
	offset := wasmbin.EncodeInstructionsTo(nil, []wasmbin.Instruction{
		wasmbin.I32Const(bufferAddr),
		wasmbin.Op(wasmbin.OpEnd),
	})
	m.Data = append(m.Data, wasmbin.DataSegment{Offset: offset, Data: payload})

	body := []wasmbin.Instruction{
		wasmbin.I32Const(iovecAddr),
		wasmbin.I32Const(bufferAddr),
		wasmbin.I32Store(0),
		wasmbin.I32Const(iovecAddr + 4),
		wasmbin.I32Const(int32(len(payload))),
		wasmbin.I32Store(0),
		wasmbin.I32Const(fd),
		wasmbin.I32Const(iovecAddr),
		wasmbin.I32Const(1),
		wasmbin.I32Const(counterAddr),
		wasmbin.Call(0),
		wasmbin.Op(wasmbin.OpDrop),
	}
	return finish(m, body)
}

// TrapModule hits an unreachable immediately.
func TrapModule() []byte {
	return finish(base(), []wasmbin.Instruction{
		wasmbin.Op(wasmbin.OpUnreachable),
	})
}

// GrowModule grows linear memory by the given number of pages.
func GrowModule(pages int32) []byte {
	return finish(base(), []wasmbin.Instruction{
		wasmbin.I32Const(pages),
		wasmbin.MemoryGrow(),
		wasmbin.Op(wasmbin.OpDrop),
	})
}

// CappedGrowModule declares memory with its own maximum and then
// tries to grow by the given number of pages.
func CappedGrowModule(maxPages uint32, pages int32) []byte {
	m := base()
	m.Memories[0].Limits = wasmbin.Limits{Min: 1, Max: maxPages, HasMax: true}
	return finish(m, []wasmbin.Instruction{
		wasmbin.I32Const(pages),
		wasmbin.MemoryGrow(),
		wasmbin.Op(wasmbin.OpDrop),
	})
}

// BigMemoryModule declares an initial memory of minPages and returns.
func BigMemoryModule(minPages uint32) []byte {
	m := base()
	m.Memories[0].Limits.Min = minPages
	return finish(m, []wasmbin.Instruction{
		wasmbin.Op(wasmbin.OpNop),
	})
}

// ImportModule imports a single void function from the named module
// without ever calling it.
func ImportModule(module, name string) []byte {
	m := base()
	sig := m.AddType(wasmbin.FuncType{})
	m.Imports = append(m.Imports, wasmbin.Import{
		Module: module,
		Name:   name,
		Desc:   wasmbin.ImportDesc{Kind: wasmbin.KindFunc, TypeIdx: sig},
	})
	return finish(m, []wasmbin.Instruction{
		wasmbin.Op(wasmbin.OpNop),
	})
}

// SpinModule loops forever, burning fuel.
func SpinModule() []byte {
	return finish(base(), []wasmbin.Instruction{
		wasmbin.Loop(wasmbin.BlockTypeVoid),
		wasmbin.Br(0),
		wasmbin.Op(wasmbin.OpEnd),
	})
}

// RecurseModule calls itself without bound.
func RecurseModule() []byte {
	m := base()
	return finish(m, []wasmbin.Instruction{
		wasmbin.Call(0),
	})
}

// ExitModule calls proc_exit with the given code.
func ExitModule(code int32) []byte {
	m := base()
	sig := m.AddType(wasmbin.FuncType{Params: []wasmbin.ValType{wasmbin.ValI32}})
	m.Imports = append(m.Imports, wasmbin.Import{
		Module: wasiModule,
		Name:   "proc_exit",
		Desc:   wasmbin.ImportDesc{Kind: wasmbin.KindFunc, TypeIdx: sig},
	})
	return finish(m, []wasmbin.Instruction{
		wasmbin.I32Const(code),
		wasmbin.Call(0),
	})
}
