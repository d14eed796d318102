package bytecode

// Instruction is one decoded KBC instruction. Operands are stored as
// plain int32s regardless of which named operand (A/D/X/...) the
// format assigns them to; Format (recovered from Op) says how many of
// Operands[:] are meaningful and what they mean.
type Instruction struct {
	Op       Op
	Operands [3]int32
	Wide     bool
}

// A, D, X, T, E, Y, F, B, C are accessors naming the operand the
// instruction's format assigns to that slot, matching spec §4.11's
// format-pack names.
func (in Instruction) A() int32 { return in.Operands[0] }
func (in Instruction) D() int32 { return in.Operands[0] }
func (in Instruction) X() int32 { return in.Operands[0] }
func (in Instruction) T() int32 { return in.Operands[0] }
func (in Instruction) E() int32 { return in.Operands[1] }
func (in Instruction) Y() int32 { return in.Operands[1] }
func (in Instruction) F() int32 { return in.Operands[1] }
func (in Instruction) B() int32 { return in.Operands[1] }
func (in Instruction) C() int32 { return in.Operands[2] }

// Make0 builds a no-operand instruction.
func Make0(op Op) Instruction { return Instruction{Op: op} }

// Make1 builds a single-operand instruction (A, D, X, or T format).
func Make1(op Op, operand int32) Instruction {
	return Instruction{Op: op, Operands: [3]int32{operand, 0, 0}}
}

// Make2 builds a two-operand instruction (A_E, A_Y, or D_F format).
func Make2(op Op, a, b int32) Instruction {
	return Instruction{Op: op, Operands: [3]int32{a, b, 0}}
}

// Make3 builds a three-operand instruction (A_B_C format).
func Make3(op Op, a, b, c int32) Instruction {
	return Instruction{Op: op, Operands: [3]int32{a, b, c}}
}

// Bytecode exposes exactly the contract spec §3 names: an instructions
// pointer and a constant-pool pointer, plus the PC-range handler table
// spec §4.5 describes for resuming at a bytecode-level catch.
type Bytecode struct {
	Instrs   []Instruction
	Pool     *Pool
	Handlers []HandlerRange
}
