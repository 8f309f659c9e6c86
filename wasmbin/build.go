package wasmbin

// Instruction builders for rewriters and test fixtures. Each returns
// a ready-to-encode Instruction; sequences are assembled with
// EncodeInstructionsTo.

func I32Const(v int32) Instruction {
	return Instruction{Opcode: OpI32Const, Imm: appendS32(nil, v)}
}

func I64Const(v int64) Instruction {
	return Instruction{Opcode: OpI64Const, Imm: appendS64(nil, v)}
}

func LocalGet(idx uint32) Instruction {
	return Instruction{Opcode: OpLocalGet, Imm: appendU32(nil, idx)}
}

func LocalSet(idx uint32) Instruction {
	return Instruction{Opcode: OpLocalSet, Imm: appendU32(nil, idx)}
}

func LocalTee(idx uint32) Instruction {
	return Instruction{Opcode: OpLocalTee, Imm: appendU32(nil, idx)}
}

func Call(idx uint32) Instruction {
	return Instruction{Opcode: OpCall, Index: idx}
}

func Block(blockType int64) Instruction {
	return Instruction{Opcode: OpBlock, Imm: appendS64(nil, blockType)}
}

func Loop(blockType int64) Instruction {
	return Instruction{Opcode: OpLoop, Imm: appendS64(nil, blockType)}
}

func If(blockType int64) Instruction {
	return Instruction{Opcode: OpIf, Imm: appendS64(nil, blockType)}
}

func Br(label uint32) Instruction {
	return Instruction{Opcode: OpBr, Imm: appendU32(nil, label)}
}

func BrIf(label uint32) Instruction {
	return Instruction{Opcode: OpBrIf, Imm: appendU32(nil, label)}
}

func MemoryGrow() Instruction {
	return Instruction{Opcode: OpMemoryGrow, Imm: []byte{0x00}}
}

func MemorySize() Instruction {
	return Instruction{Opcode: OpMemorySize, Imm: []byte{0x00}}
}

// I32Load and I32Store use natural alignment and a static offset.
func I32Load(offset uint32) Instruction {
	imm := appendU32(nil, 2)
	return Instruction{Opcode: OpI32Load, Imm: appendU32(imm, offset)}
}

func I32Store(offset uint32) Instruction {
	imm := appendU32(nil, 2)
	return Instruction{Opcode: 0x36, Imm: appendU32(imm, offset)}
}

// Op wraps a bare opcode with no immediate.
func Op(opcode byte) Instruction {
	return Instruction{Opcode: opcode}
}
