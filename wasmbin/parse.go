package wasmbin

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/function-harness/errors"
)

// ParseModule decodes a wasm binary into its section structures. The
// parser is a structural decoder for rewriting, not a validator, so it
// only rejects what it cannot re-encode faithfully.
func ParseModule(b []byte) (*Module, error) {
	if len(b) < 8 {
		return nil, errors.InvalidModule("binary shorter than preamble", nil)
	}
	if binary.LittleEndian.Uint32(b) != Magic {
		return nil, errors.InvalidModule("bad magic number", nil)
	}
	if binary.LittleEndian.Uint32(b[4:]) != Version {
		return nil, errors.InvalidModule("unsupported binary version", nil)
	}

	m := &Module{}
	off := 8
	var lastSection byte
	for off < len(b) {
		id := b[off]
		off++
		size, next, err := readU32(b, off)
		if err != nil {
			return nil, err
		}
		off = next
		if off+int(size) > len(b) {
			return nil, errors.InvalidModule("section extends past end of binary", nil)
		}
		body := b[off : off+int(size)]
		off += int(size)

		switch id {
		case SectionCustom:
			if err = m.parseCustom(body, lastSection); err != nil {
				return nil, err
			}
			continue
		case SectionType:
			err = m.parseTypes(body)
		case SectionImport:
			err = m.parseImports(body)
		case SectionFunction:
			err = m.parseFunctions(body)
		case SectionTable:
			err = m.parseTables(body)
		case SectionMemory:
			err = m.parseMemories(body)
		case SectionGlobal:
			err = m.parseGlobals(body)
		case SectionExport:
			err = m.parseExports(body)
		case SectionStart:
			err = m.parseStart(body)
		case SectionElement:
			err = m.parseElements(body)
		case SectionCode:
			err = m.parseCode(body)
		case SectionData:
			err = m.parseData(body)
		case SectionDataCount:
			err = m.parseDataCount(body)
		default:
			err = errors.InvalidModule(fmt.Sprintf("unknown section id %d", id), nil)
		}
		if err != nil {
			return nil, err
		}
		lastSection = id
	}
	if len(m.Functions) != len(m.Code) {
		return nil, errors.InvalidModule("function and code section counts differ", nil)
	}
	return m, nil
}

func (m *Module) parseCustom(b []byte, after byte) error {
	name, off, err := readName(b, 0)
	if err != nil {
		return err
	}
	m.Customs = append(m.Customs, CustomSection{Name: name, Data: b[off:]})
	m.CustomOrder = append(m.CustomOrder, after)
	return nil
}

func (m *Module) parseTypes(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Types = make([]FuncType, 0, n)
	for i := uint32(0); i < n; i++ {
		if off >= len(b) || b[off] != FuncTypeByte {
			return errors.InvalidModule("type section entry is not a function type", nil)
		}
		off++
		var t FuncType
		if t.Params, off, err = readValTypes(b, off); err != nil {
			return err
		}
		if t.Results, off, err = readValTypes(b, off); err != nil {
			return err
		}
		m.Types = append(m.Types, t)
	}
	return trailing(b, off)
}

func (m *Module) parseImports(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Imports = make([]Import, 0, n)
	for i := uint32(0); i < n; i++ {
		var imp Import
		if imp.Module, off, err = readName(b, off); err != nil {
			return err
		}
		if imp.Name, off, err = readName(b, off); err != nil {
			return err
		}
		if off >= len(b) {
			return errors.InvalidModule("truncated import entry", nil)
		}
		imp.Desc.Kind = b[off]
		off++
		switch imp.Desc.Kind {
		case KindFunc:
			imp.Desc.TypeIdx, off, err = readU32(b, off)
		case KindTable:
			imp.Desc.Table, off, err = readTableType(b, off)
		case KindMemory:
			imp.Desc.Memory.Limits, off, err = readLimits(b, off)
		case KindGlobal:
			imp.Desc.Global, off, err = readGlobalType(b, off)
		default:
			err = errors.InvalidModule(fmt.Sprintf("unknown import kind 0x%02x", imp.Desc.Kind), nil)
		}
		if err != nil {
			return err
		}
		m.Imports = append(m.Imports, imp)
	}
	return trailing(b, off)
}

func (m *Module) parseFunctions(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Functions = make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		var ti uint32
		if ti, off, err = readU32(b, off); err != nil {
			return err
		}
		m.Functions = append(m.Functions, ti)
	}
	return trailing(b, off)
}

func (m *Module) parseTables(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Tables = make([]TableType, 0, n)
	for i := uint32(0); i < n; i++ {
		var t TableType
		if t, off, err = readTableType(b, off); err != nil {
			return err
		}
		m.Tables = append(m.Tables, t)
	}
	return trailing(b, off)
}

func (m *Module) parseMemories(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Memories = make([]MemoryType, 0, n)
	for i := uint32(0); i < n; i++ {
		var l Limits
		if l, off, err = readLimits(b, off); err != nil {
			return err
		}
		m.Memories = append(m.Memories, MemoryType{Limits: l})
	}
	return trailing(b, off)
}

func (m *Module) parseGlobals(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Globals = make([]Global, 0, n)
	for i := uint32(0); i < n; i++ {
		var g Global
		if g.Type, off, err = readGlobalType(b, off); err != nil {
			return err
		}
		if g.Init, off, err = readExpr(b, off); err != nil {
			return err
		}
		m.Globals = append(m.Globals, g)
	}
	return trailing(b, off)
}

func (m *Module) parseExports(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Exports = make([]Export, 0, n)
	for i := uint32(0); i < n; i++ {
		var e Export
		if e.Name, off, err = readName(b, off); err != nil {
			return err
		}
		if off >= len(b) {
			return errors.InvalidModule("truncated export entry", nil)
		}
		e.Kind = b[off]
		off++
		if e.Index, off, err = readU32(b, off); err != nil {
			return err
		}
		m.Exports = append(m.Exports, e)
	}
	return trailing(b, off)
}

func (m *Module) parseStart(b []byte) error {
	idx, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Start = &idx
	return trailing(b, off)
}

func (m *Module) parseElements(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Elements = make([]Element, 0, n)
	for i := uint32(0); i < n; i++ {
		var e Element
		if e.Flags, off, err = readU32(b, off); err != nil {
			return err
		}
		if e.Flags > 7 {
			return errors.InvalidModule(fmt.Sprintf("unknown element flags %d", e.Flags), nil)
		}
		if e.Flags == 2 || e.Flags == 6 {
			if e.TableIdx, off, err = readU32(b, off); err != nil {
				return err
			}
		}
		if e.Flags&1 == 0 { // active
			if e.Offset, off, err = readExpr(b, off); err != nil {
				return err
			}
		}
		if e.Flags&4 == 0 {
			if e.Flags != 0 {
				if off >= len(b) {
					return errors.InvalidModule("truncated element entry", nil)
				}
				e.ElemKind = b[off]
				off++
			}
			if e.FuncIdxs, off, err = readU32Vec(b, off); err != nil {
				return err
			}
		} else {
			e.UsesExprs = true
			if e.Flags != 4 {
				if off >= len(b) {
					return errors.InvalidModule("truncated element entry", nil)
				}
				e.RefType = ValType(b[off])
				off++
			}
			var cnt uint32
			if cnt, off, err = readU32(b, off); err != nil {
				return err
			}
			e.InitExprs = make([][]byte, 0, cnt)
			for j := uint32(0); j < cnt; j++ {
				var expr []byte
				if expr, off, err = readExpr(b, off); err != nil {
					return err
				}
				e.InitExprs = append(e.InitExprs, expr)
			}
		}
		m.Elements = append(m.Elements, e)
	}
	return trailing(b, off)
}

func (m *Module) parseCode(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Code = make([]FuncBody, 0, n)
	for i := uint32(0); i < n; i++ {
		var size uint32
		if size, off, err = readU32(b, off); err != nil {
			return err
		}
		if off+int(size) > len(b) {
			return errors.InvalidModule("code body extends past section end", nil)
		}
		body := b[off : off+int(size)]
		off += int(size)

		var fb FuncBody
		nlocals, boff, err := readU32(body, 0)
		if err != nil {
			return err
		}
		fb.Locals = make([]LocalEntry, 0, nlocals)
		for j := uint32(0); j < nlocals; j++ {
			var le LocalEntry
			if le.Count, boff, err = readU32(body, boff); err != nil {
				return err
			}
			if boff >= len(body) {
				return errors.InvalidModule("truncated local declaration", nil)
			}
			le.Type = ValType(body[boff])
			boff++
			fb.Locals = append(fb.Locals, le)
		}
		fb.Code = body[boff:]
		m.Code = append(m.Code, fb)
	}
	return trailing(b, off)
}

func (m *Module) parseData(b []byte) error {
	n, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.Data = make([]DataSegment, 0, n)
	for i := uint32(0); i < n; i++ {
		var d DataSegment
		if d.Flags, off, err = readU32(b, off); err != nil {
			return err
		}
		switch d.Flags {
		case 0:
			if d.Offset, off, err = readExpr(b, off); err != nil {
				return err
			}
		case 1:
			// passive, no offset
		case 2:
			if d.MemIdx, off, err = readU32(b, off); err != nil {
				return err
			}
			if d.Offset, off, err = readExpr(b, off); err != nil {
				return err
			}
		default:
			return errors.InvalidModule(fmt.Sprintf("unknown data segment flags %d", d.Flags), nil)
		}
		var size uint32
		if size, off, err = readU32(b, off); err != nil {
			return err
		}
		if off+int(size) > len(b) {
			return errors.InvalidModule("data segment extends past section end", nil)
		}
		d.Data = b[off : off+int(size)]
		off += int(size)
		m.Data = append(m.Data, d)
	}
	return trailing(b, off)
}

func (m *Module) parseDataCount(b []byte) error {
	cnt, off, err := readU32(b, 0)
	if err != nil {
		return err
	}
	m.DataCount = &cnt
	return trailing(b, off)
}

func trailing(b []byte, off int) error {
	if off != len(b) {
		return errors.InvalidModule("trailing bytes in section", nil)
	}
	return nil
}

func readName(b []byte, off int) (string, int, error) {
	n, off, err := readU32(b, off)
	if err != nil {
		return "", off, err
	}
	if off+int(n) > len(b) {
		return "", off, errors.InvalidModule("truncated name", nil)
	}
	return string(b[off : off+int(n)]), off + int(n), nil
}

func readValTypes(b []byte, off int) ([]ValType, int, error) {
	n, off, err := readU32(b, off)
	if err != nil {
		return nil, off, err
	}
	if off+int(n) > len(b) {
		return nil, off, errors.InvalidModule("truncated value type vector", nil)
	}
	out := make([]ValType, n)
	for i := range out {
		out[i] = ValType(b[off+i])
	}
	return out, off + int(n), nil
}

func readU32Vec(b []byte, off int) ([]uint32, int, error) {
	n, off, err := readU32(b, off)
	if err != nil {
		return nil, off, err
	}
	out := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		var v uint32
		if v, off, err = readU32(b, off); err != nil {
			return nil, off, err
		}
		out = append(out, v)
	}
	return out, off, nil
}

func readLimits(b []byte, off int) (Limits, int, error) {
	var l Limits
	if off >= len(b) {
		return l, off, errors.InvalidModule("truncated limits", nil)
	}
	flags := b[off]
	off++
	if flags&^(LimitsHasMax|LimitsShared) != 0 {
		return l, off, errors.InvalidModule(fmt.Sprintf("unsupported limits flags 0x%02x", flags), nil)
	}
	l.HasMax = flags&LimitsHasMax != 0
	l.Shared = flags&LimitsShared != 0
	var err error
	if l.Min, off, err = readU32(b, off); err != nil {
		return l, off, err
	}
	if l.HasMax {
		if l.Max, off, err = readU32(b, off); err != nil {
			return l, off, err
		}
	}
	return l, off, nil
}

func readTableType(b []byte, off int) (TableType, int, error) {
	var t TableType
	if off >= len(b) {
		return t, off, errors.InvalidModule("truncated table type", nil)
	}
	t.ElemType = ValType(b[off])
	off++
	var err error
	t.Limits, off, err = readLimits(b, off)
	return t, off, err
}

func readGlobalType(b []byte, off int) (GlobalType, int, error) {
	var g GlobalType
	if off+1 >= len(b) {
		return g, off, errors.InvalidModule("truncated global type", nil)
	}
	g.ValType = ValType(b[off])
	switch b[off+1] {
	case 0x00:
	case 0x01:
		g.Mutable = true
	default:
		return g, off, errors.InvalidModule("bad global mutability byte", nil)
	}
	return g, off + 2, nil
}

// readExpr decodes a constant expression through its end opcode and
// returns the raw bytes including it. Decoding instruction by
// instruction matters here because a bare scan for 0x0B would match
// the middle of a multi-byte immediate.
func readExpr(b []byte, off int) ([]byte, int, error) {
	start := off
	for {
		in, next, err := DecodeInstruction(b, off)
		if err != nil {
			return nil, off, err
		}
		off = next
		if in.Opcode == OpEnd {
			return b[start:off], off, nil
		}
	}
}
