package wasmbin

import (
	"fmt"

	"github.com/wippyai/function-harness/errors"
)

// Instruction is one decoded instruction. Immediates are kept as raw
// bytes except for function indices, which the rewriter must be able
// to shift, and prefix sub-opcodes, which drive cost decisions.
type Instruction struct {
	Opcode byte
	Sub    uint32 // sub-opcode for 0xFC, 0xFD and 0xFE prefixes
	Index  uint32 // function index for call, return_call and ref.func
	Imm    []byte // remaining immediate bytes, re-emitted verbatim
}

// HasFuncIndex reports whether Index carries a function index.
func (in Instruction) HasFuncIndex() bool {
	switch in.Opcode {
	case OpCall, OpReturnCall, OpRefFunc:
		return true
	}
	return false
}

// EncodeTo appends the wire encoding of the instruction.
func (in Instruction) EncodeTo(dst []byte) []byte {
	dst = append(dst, in.Opcode)
	switch in.Opcode {
	case OpPrefixMisc, OpPrefixSIMD, OpPrefixAtomic:
		dst = appendU32(dst, in.Sub)
	case OpCall, OpReturnCall, OpRefFunc:
		dst = appendU32(dst, in.Index)
	}
	return append(dst, in.Imm...)
}

// DecodeInstructions decodes an expression, which must end exactly at
// len(b). Code bodies and const expressions both carry their final end
// opcode, so the last instruction is always OpEnd.
func DecodeInstructions(b []byte) ([]Instruction, error) {
	var out []Instruction
	off := 0
	for off < len(b) {
		in, next, err := DecodeInstruction(b, off)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		off = next
	}
	if n := len(out); n == 0 || out[n-1].Opcode != OpEnd {
		return nil, errors.InvalidModule("expression missing end opcode", nil)
	}
	return out, nil
}

// EncodeInstructionsTo appends the wire encoding of an expression.
func EncodeInstructionsTo(dst []byte, ins []Instruction) []byte {
	for _, in := range ins {
		dst = in.EncodeTo(dst)
	}
	return dst
}

// DecodeInstruction decodes the instruction at off and returns it with
// the offset past it.
func DecodeInstruction(b []byte, off int) (Instruction, int, error) {
	if off >= len(b) {
		return Instruction{}, off, errors.InvalidModule("truncated instruction stream", nil)
	}
	op := b[off]
	start := off
	off++
	in := Instruction{Opcode: op}
	var err error

	switch {
	case op == OpUnreachable, op == OpNop, op == OpElse, op == OpEnd,
		op == OpReturn, op == OpDrop, op == OpSelect, op == OpRefIsNull:
		// no immediate
	case op == OpBlock || op == OpLoop || op == OpIf:
		_, off, err = readS33(b, off)
	case op == OpBr || op == OpBrIf:
		off, err = skipU32s(b, off, 1)
	case op == OpBrTable:
		var n uint32
		n, off, err = readU32(b, off)
		if err == nil {
			off, err = skipU32s(b, off, int(n)+1)
		}
	case op == OpCall || op == OpReturnCall || op == OpRefFunc:
		in.Index, off, err = readU32(b, off)
		return finish(in, b, start+1, off, err, true)
	case op == OpCallIndirect || op == OpReturnCallIndirect:
		off, err = skipU32s(b, off, 2)
	case op == OpSelectTyped:
		var n uint32
		n, off, err = readU32(b, off)
		if err == nil {
			off, err = skipBytes(b, off, int(n))
		}
	case op >= OpLocalGet && op <= OpTableSet:
		off, err = skipU32s(b, off, 1)
	case op >= OpI32Load && op <= OpI64Store32:
		off, err = skipMemArg(b, off)
	case op == OpMemorySize || op == OpMemoryGrow:
		off, err = skipU32s(b, off, 1)
	case op == OpI32Const:
		_, off, err = readS32(b, off)
	case op == OpI64Const:
		_, off, err = readS64(b, off)
	case op == OpF32Const:
		off, err = skipBytes(b, off, 4)
	case op == OpF64Const:
		off, err = skipBytes(b, off, 8)
	case op >= 0x45 && op <= 0xC4:
		// plain numeric ops carry no immediate
	case op == OpRefNull:
		off, err = skipBytes(b, off, 1)
	case op == OpPrefixMisc:
		in.Sub, off, err = readU32(b, off)
		if err == nil {
			off, err = skipMiscImm(b, off, in.Sub)
		}
		return finish(in, b, prefixImmStart(b, start), off, err, false)
	case op == OpPrefixSIMD:
		in.Sub, off, err = readU32(b, off)
		if err == nil {
			off, err = skipSIMDImm(b, off, in.Sub)
		}
		return finish(in, b, prefixImmStart(b, start), off, err, false)
	case op == OpPrefixAtomic:
		in.Sub, off, err = readU32(b, off)
		if err == nil {
			if in.Sub == AtomicFence {
				off, err = skipBytes(b, off, 1)
			} else {
				off, err = skipMemArg(b, off)
			}
		}
		return finish(in, b, prefixImmStart(b, start), off, err, false)
	default:
		return Instruction{}, off, errors.InvalidModule(fmt.Sprintf("unsupported opcode 0x%02x", op), nil)
	}
	return finish(in, b, start+1, off, err, false)
}

// finish slices the raw immediate bytes out of the stream. Rewritable
// indices were decoded into Index and are excluded from Imm.
func finish(in Instruction, b []byte, immStart, off int, err error, indexed bool) (Instruction, int, error) {
	if err != nil {
		return Instruction{}, off, err
	}
	if !indexed && off > immStart {
		in.Imm = b[immStart:off]
	}
	return in, off, nil
}

// prefixImmStart returns the offset just past a prefixed instruction's
// sub-opcode, which is stored decoded rather than in Imm.
func prefixImmStart(b []byte, start int) int {
	off := start + 1
	for off < len(b) && b[off]&0x80 != 0 {
		off++
	}
	return off + 1
}

func skipBytes(b []byte, off, n int) (int, error) {
	if off+n > len(b) {
		return off, errors.InvalidModule("truncated instruction stream", nil)
	}
	return off + n, nil
}

func skipU32s(b []byte, off, n int) (int, error) {
	var err error
	for i := 0; i < n; i++ {
		_, off, err = readU32(b, off)
		if err != nil {
			return off, err
		}
	}
	return off, nil
}

// skipMemArg skips an alignment and offset pair. Alignment bit 6
// signals a trailing memory index for multi-memory modules.
func skipMemArg(b []byte, off int) (int, error) {
	align, off, err := readU32(b, off)
	if err != nil {
		return off, err
	}
	if align&(1<<6) != 0 {
		if off, err = skipU32s(b, off, 1); err != nil {
			return off, err
		}
	}
	return skipU32s(b, off, 1)
}

func skipMiscImm(b []byte, off int, sub uint32) (int, error) {
	switch sub {
	case 0, 1, 2, 3, 4, 5, 6, 7: // saturating truncations
		return off, nil
	case MiscDataDrop, MiscElemDrop, MiscMemoryFill,
		MiscTableGrow, MiscTableSize, MiscTableFill:
		return skipU32s(b, off, 1)
	case MiscMemoryInit, MiscMemoryCopy, MiscTableInit, MiscTableCopy:
		return skipU32s(b, off, 2)
	default:
		return off, errors.InvalidModule(fmt.Sprintf("unsupported 0xFC sub-opcode %d", sub), nil)
	}
}

func skipSIMDImm(b []byte, off int, sub uint32) (int, error) {
	switch {
	case sub <= 11, sub == 92, sub == 93: // loads and stores
		return skipMemArg(b, off)
	case sub == 12, sub == 13: // v128.const, i8x16.shuffle
		return skipBytes(b, off, 16)
	case sub >= 21 && sub <= 34: // lane extracts and replaces
		return skipBytes(b, off, 1)
	case sub >= 84 && sub <= 91: // lane loads and stores
		off, err := skipMemArg(b, off)
		if err != nil {
			return off, err
		}
		return skipBytes(b, off, 1)
	default:
		return off, nil
	}
}
