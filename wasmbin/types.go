package wasmbin

// ValType is a wasm value type byte.
type ValType byte

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports whether two signatures match exactly.
func (t FuncType) Equal(o FuncType) bool {
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if o.Params[i] != p {
			return false
		}
	}
	for i, r := range t.Results {
		if o.Results[i] != r {
			return false
		}
	}
	return true
}

// Limits holds table or memory bounds.
type Limits struct {
	Min    uint32
	Max    uint32
	HasMax bool
	Shared bool
}

// TableType describes a table.
type TableType struct {
	ElemType ValType
	Limits   Limits
}

// MemoryType describes a linear memory.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global variable.
type GlobalType struct {
	ValType ValType
	Mutable bool
}

// ImportDesc is the kind-specific half of an import entry. Exactly one
// field is meaningful, selected by Kind.
type ImportDesc struct {
	Kind    byte
	TypeIdx uint32 // KindFunc
	Table   TableType
	Memory  MemoryType
	Global  GlobalType
}

// Import is one entry of the import section.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// Export is one entry of the export section.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Global is one entry of the global section. Init is a raw const
// expression including its terminating end opcode.
type Global struct {
	Type GlobalType
	Init []byte
}

// Element is one entry of the element section, kept in raw encoded
// form except for the pieces instrumentation must touch.
type Element struct {
	Flags     uint32
	TableIdx  uint32
	Offset    []byte // const expression incl. end, when flags select one
	ElemKind  byte
	RefType   ValType
	FuncIdxs  []uint32 // when the entry lists function indices
	InitExprs [][]byte // when the entry lists const expressions
	UsesExprs bool
}

// LocalEntry is one run-length local declaration in a code body.
type LocalEntry struct {
	Count uint32
	Type  ValType
}

// FuncBody is one entry of the code section.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // instruction stream incl. the final end opcode
}

// DataSegment is one entry of the data section.
type DataSegment struct {
	Flags  uint32
	MemIdx uint32
	Offset []byte // const expression incl. end, for active segments
	Data   []byte
}

// CustomSection is a custom section kept verbatim.
type CustomSection struct {
	Name string
	Data []byte
}

// Module is a decoded wasm module covering the sections the rewriter
// and fixtures need. Unknown section IDs cause a parse error.
type Module struct {
	Types     []FuncType
	Imports   []Import
	Functions []uint32 // type index per local function
	Tables    []TableType
	Memories  []MemoryType
	Globals   []Global
	Exports   []Export
	Start     *uint32
	Elements  []Element
	Code      []FuncBody
	Data      []DataSegment
	DataCount *uint32
	Customs   []CustomSection

	// CustomOrder remembers after which non-custom section each custom
	// section appeared, so encoding can preserve placement.
	CustomOrder []byte
}

// NumImportedFuncs counts function imports, which occupy the low end
// of the function index space.
func (m *Module) NumImportedFuncs() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			n++
		}
	}
	return n
}

// FuncTypeOf returns the signature of the function at idx in the
// combined index space, or false if the index is out of range.
func (m *Module) FuncTypeOf(idx uint32) (FuncType, bool) {
	var fn uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		if fn == idx {
			if imp.Desc.TypeIdx >= uint32(len(m.Types)) {
				return FuncType{}, false
			}
			return m.Types[imp.Desc.TypeIdx], true
		}
		fn++
	}
	local := idx - fn
	if local >= uint32(len(m.Functions)) {
		return FuncType{}, false
	}
	ti := m.Functions[local]
	if ti >= uint32(len(m.Types)) {
		return FuncType{}, false
	}
	return m.Types[ti], true
}

// AddType returns the index of a type equal to t, appending it when
// absent.
func (m *Module) AddType(t FuncType) uint32 {
	for i, existing := range m.Types {
		if existing.Equal(t) {
			return uint32(i)
		}
	}
	m.Types = append(m.Types, t)
	return uint32(len(m.Types) - 1)
}
