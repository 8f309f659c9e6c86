package wasmbin

import "encoding/binary"

// Encode serializes the module back to its binary form. Sections are
// emitted in canonical order with custom sections restored to their
// recorded positions.
func (m *Module) Encode() []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint32(out, Magic)
	binary.LittleEndian.PutUint32(out[4:], Version)

	out = m.emitCustoms(out, 0)
	if len(m.Types) > 0 {
		out = emitSection(out, SectionType, m.encodeTypes())
		out = m.emitCustoms(out, SectionType)
	}
	if len(m.Imports) > 0 {
		out = emitSection(out, SectionImport, m.encodeImports())
		out = m.emitCustoms(out, SectionImport)
	}
	if len(m.Functions) > 0 {
		out = emitSection(out, SectionFunction, m.encodeFunctions())
		out = m.emitCustoms(out, SectionFunction)
	}
	if len(m.Tables) > 0 {
		out = emitSection(out, SectionTable, m.encodeTables())
		out = m.emitCustoms(out, SectionTable)
	}
	if len(m.Memories) > 0 {
		out = emitSection(out, SectionMemory, m.encodeMemories())
		out = m.emitCustoms(out, SectionMemory)
	}
	if len(m.Globals) > 0 {
		out = emitSection(out, SectionGlobal, m.encodeGlobals())
		out = m.emitCustoms(out, SectionGlobal)
	}
	if len(m.Exports) > 0 {
		out = emitSection(out, SectionExport, m.encodeExports())
		out = m.emitCustoms(out, SectionExport)
	}
	if m.Start != nil {
		out = emitSection(out, SectionStart, appendU32(nil, *m.Start))
		out = m.emitCustoms(out, SectionStart)
	}
	if len(m.Elements) > 0 {
		out = emitSection(out, SectionElement, m.encodeElements())
		out = m.emitCustoms(out, SectionElement)
	}
	if m.DataCount != nil {
		out = emitSection(out, SectionDataCount, appendU32(nil, *m.DataCount))
		out = m.emitCustoms(out, SectionDataCount)
	}
	if len(m.Code) > 0 {
		out = emitSection(out, SectionCode, m.encodeCode())
		out = m.emitCustoms(out, SectionCode)
	}
	if len(m.Data) > 0 {
		out = emitSection(out, SectionData, m.encodeData())
		out = m.emitCustoms(out, SectionData)
	}
	return out
}

func emitSection(out []byte, id byte, body []byte) []byte {
	out = append(out, id)
	out = appendU32(out, uint32(len(body)))
	return append(out, body...)
}

func (m *Module) emitCustoms(out []byte, after byte) []byte {
	for i, c := range m.Customs {
		if i < len(m.CustomOrder) && m.CustomOrder[i] == after {
			body := appendU32(nil, uint32(len(c.Name)))
			body = append(body, c.Name...)
			body = append(body, c.Data...)
			out = emitSection(out, SectionCustom, body)
		}
	}
	return out
}

func (m *Module) encodeTypes() []byte {
	b := appendU32(nil, uint32(len(m.Types)))
	for _, t := range m.Types {
		b = append(b, FuncTypeByte)
		b = appendU32(b, uint32(len(t.Params)))
		for _, p := range t.Params {
			b = append(b, byte(p))
		}
		b = appendU32(b, uint32(len(t.Results)))
		for _, r := range t.Results {
			b = append(b, byte(r))
		}
	}
	return b
}

func (m *Module) encodeImports() []byte {
	b := appendU32(nil, uint32(len(m.Imports)))
	for _, imp := range m.Imports {
		b = appendName(b, imp.Module)
		b = appendName(b, imp.Name)
		b = append(b, imp.Desc.Kind)
		switch imp.Desc.Kind {
		case KindFunc:
			b = appendU32(b, imp.Desc.TypeIdx)
		case KindTable:
			b = appendTableType(b, imp.Desc.Table)
		case KindMemory:
			b = appendLimits(b, imp.Desc.Memory.Limits)
		case KindGlobal:
			b = appendGlobalType(b, imp.Desc.Global)
		}
	}
	return b
}

func (m *Module) encodeFunctions() []byte {
	b := appendU32(nil, uint32(len(m.Functions)))
	for _, ti := range m.Functions {
		b = appendU32(b, ti)
	}
	return b
}

func (m *Module) encodeTables() []byte {
	b := appendU32(nil, uint32(len(m.Tables)))
	for _, t := range m.Tables {
		b = appendTableType(b, t)
	}
	return b
}

func (m *Module) encodeMemories() []byte {
	b := appendU32(nil, uint32(len(m.Memories)))
	for _, mem := range m.Memories {
		b = appendLimits(b, mem.Limits)
	}
	return b
}

func (m *Module) encodeGlobals() []byte {
	b := appendU32(nil, uint32(len(m.Globals)))
	for _, g := range m.Globals {
		b = appendGlobalType(b, g.Type)
		b = append(b, g.Init...)
	}
	return b
}

func (m *Module) encodeExports() []byte {
	b := appendU32(nil, uint32(len(m.Exports)))
	for _, e := range m.Exports {
		b = appendName(b, e.Name)
		b = append(b, e.Kind)
		b = appendU32(b, e.Index)
	}
	return b
}

func (m *Module) encodeElements() []byte {
	b := appendU32(nil, uint32(len(m.Elements)))
	for _, e := range m.Elements {
		b = appendU32(b, e.Flags)
		if e.Flags == 2 || e.Flags == 6 {
			b = appendU32(b, e.TableIdx)
		}
		if e.Flags&1 == 0 {
			b = append(b, e.Offset...)
		}
		if !e.UsesExprs {
			if e.Flags != 0 {
				b = append(b, e.ElemKind)
			}
			b = appendU32(b, uint32(len(e.FuncIdxs)))
			for _, fi := range e.FuncIdxs {
				b = appendU32(b, fi)
			}
		} else {
			if e.Flags != 4 {
				b = append(b, byte(e.RefType))
			}
			b = appendU32(b, uint32(len(e.InitExprs)))
			for _, expr := range e.InitExprs {
				b = append(b, expr...)
			}
		}
	}
	return b
}

func (m *Module) encodeCode() []byte {
	b := appendU32(nil, uint32(len(m.Code)))
	for _, fb := range m.Code {
		body := appendU32(nil, uint32(len(fb.Locals)))
		for _, le := range fb.Locals {
			body = appendU32(body, le.Count)
			body = append(body, byte(le.Type))
		}
		body = append(body, fb.Code...)
		b = appendU32(b, uint32(len(body)))
		b = append(b, body...)
	}
	return b
}

func (m *Module) encodeData() []byte {
	b := appendU32(nil, uint32(len(m.Data)))
	for _, d := range m.Data {
		b = appendU32(b, d.Flags)
		switch d.Flags {
		case 0:
			b = append(b, d.Offset...)
		case 2:
			b = appendU32(b, d.MemIdx)
			b = append(b, d.Offset...)
		}
		b = appendU32(b, uint32(len(d.Data)))
		b = append(b, d.Data...)
	}
	return b
}

func appendName(b []byte, s string) []byte {
	b = appendU32(b, uint32(len(s)))
	return append(b, s...)
}

func appendLimits(b []byte, l Limits) []byte {
	var flags byte
	if l.HasMax {
		flags |= LimitsHasMax
	}
	if l.Shared {
		flags |= LimitsShared
	}
	b = append(b, flags)
	b = appendU32(b, l.Min)
	if l.HasMax {
		b = appendU32(b, l.Max)
	}
	return b
}

func appendTableType(b []byte, t TableType) []byte {
	b = append(b, byte(t.ElemType))
	return appendLimits(b, t.Limits)
}

func appendGlobalType(b []byte, g GlobalType) []byte {
	b = append(b, byte(g.ValType))
	if g.Mutable {
		return append(b, 0x01)
	}
	return append(b, 0x00)
}
