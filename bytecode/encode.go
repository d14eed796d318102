package bytecode

import "encoding/binary"

// Encode serializes in to its wire form: one opcode byte (bit 0x80 set
// for the wide form) followed by its operands, narrow operands as one
// byte each and wide operands as four bytes each (little-endian, via
// encoding/binary). This wire form exists for tooling
// outside the interpreter CORE (an AOT frontend, a disassembler); the
// dispatch loop itself executes pre-decoded []Instruction slices, the
// same way backend_vm.go's execFunc switches over IRFunc.Code without
// redecoding bytes per step.
func Encode(in Instruction) []byte {
	n := FormatOf(in.Op).NumOperands()
	opByte := byte(in.Op)
	if in.Wide {
		opByte |= 0x80
	}
	buf := []byte{opByte}
	for i := 0; i < n; i++ {
		if in.Wide {
			var tmp [4]byte
			binary.LittleEndian.PutUint32(tmp[:], uint32(in.Operands[i]))
			buf = append(buf, tmp[:]...)
		} else {
			buf = append(buf, byte(int8(in.Operands[i])))
		}
	}
	return buf
}

// Decode reads one instruction from buf starting at offset, returning
// the instruction and the offset of the next instruction. Decode and
// Encode are inverses of each other within each operand's declared
// domain (narrow: one signed byte, wide: one int32), the bijection
// property spec §8 requires.
func Decode(buf []byte, offset int) (Instruction, int) {
	opByte := buf[offset]
	offset++
	wide := opByte&0x80 != 0
	op := Op(opByte &^ 0x80)
	n := FormatOf(op).NumOperands()
	var in Instruction
	in.Op = op
	in.Wide = wide
	for i := 0; i < n; i++ {
		if wide {
			v := int32(binary.LittleEndian.Uint32(buf[offset:]))
			in.Operands[i] = v
			offset += 4
		} else {
			in.Operands[i] = int32(int8(buf[offset]))
			offset++
		}
	}
	return in, offset
}

// Width reports the number of bytes Encode(in) produces, i.e. how far
// the program counter advances past this instruction (spec §4.11:
// "the PC is advanced by the width of the decoded form").
func Width(in Instruction) int {
	n := FormatOf(in.Op).NumOperands()
	if in.Wide {
		return 1 + 4*n
	}
	return 1 + n
}
