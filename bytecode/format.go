package bytecode

// Format identifies an opcode's operand pack (spec §4.11: "0, A, D, X,
// T, A_E, A_Y, D_F, A_B_C, each present in a narrow form and a wide
// form"). The exact operand widths are a design parameter (spec §1
// Non-goals: "reproducing byte-exact ... tag bit positions"); this
// repository fixes narrow operands at one byte each and wide operands
// at four bytes each, which keeps every pack's encode/decode trivially
// bijective (spec §8) without chasing Dart's literal bit layout.
type Format uint8

const (
	Format0   Format = iota // no operands
	FormatA                 // one operand: A
	FormatD                 // one operand: D (typically a pool/local index)
	FormatX                 // one signed operand: X (jump displacement)
	FormatT                 // one operand: T (a selector/type-test slot)
	FormatAE                // two operands: A, E
	FormatAY                // two operands: A, Y (Y signed)
	FormatDF                // two operands: D, F
	FormatABC               // three operands: A, B, C
)

// formatOf maps each opcode to its operand pack. Opcodes not listed
// default to Format0.
var formatOf = map[Op]Format{
	OpEntry:                      FormatD,
	OpEntryFixed:                 FormatA,
	OpEntryOptional:              FormatABC,
	OpFrame:                      FormatD,
	OpSetFrame:                   FormatA,
	OpCheckStack:                 Format0,
	OpPushConstant:               FormatD,
	OpLoadLocal:                  FormatA,
	OpStoreLocal:                 FormatA,
	OpLoadConstant:               FormatDF,
	OpDirectCall:                 FormatAD,
	OpUncheckedDirectCall:        FormatAD,
	OpInterfaceCall:              FormatAD,
	OpUncheckedInterfaceCall:     FormatAD,
	OpInstantiatedInterfaceCall:  FormatAD,
	OpUncheckedClosureCall:       FormatAD,
	OpDynamicCall:                FormatAD,
	OpNativeCall:                 FormatAD,
	OpInstantiateType:            FormatD,
	OpInstantiateTypeArgumentsTOS: FormatD,
	OpLoadFieldTOS:               FormatD,
	OpStoreFieldTOS:              FormatD,
	OpAllocateContext:            FormatD,
	OpAllocateClosure:            FormatD,
	OpAllocate:                   FormatD,
	OpAllocateT:                  FormatD,
	OpCreateArrayTOS:             Format0,
	OpAssertAssignable:           FormatT,
	OpAssertSubtype:              Format0,
	OpJump:                       FormatX,
	OpJumpIfTrue:                 FormatX,
	OpJumpIfFalse:                FormatX,
	OpJumpIfNull:                 FormatX,
	OpJumpIfNotNull:              FormatX,
	OpJumpIfEqStrict:             FormatX,
	OpJumpIfNeStrict:             FormatX,
	OpJumpIfNoAsserts:            FormatX,
	OpJumpIfNotZeroTypeArgs:      FormatX,
	OpJumpIfInitialized:          FormatX,
	OpJumpIfUnchecked:            FormatX,
}

// FormatAD is a two-operand pack (A, D) used by the call family to
// carry both an argument count and a pool index; it is a variant of
// A_E kept under its own name for readability at call sites.
const FormatAD Format = FormatAE

// FormatOf returns the operand pack for op.
func FormatOf(op Op) Format {
	if f, ok := formatOf[op]; ok {
		return f
	}
	return Format0
}

// NumOperands reports how many int32 operand slots a format carries.
func (f Format) NumOperands() int {
	switch f {
	case Format0:
		return 0
	case FormatA, FormatD, FormatX, FormatT:
		return 1
	case FormatAE, FormatAY, FormatDF:
		return 2
	case FormatABC:
		return 3
	default:
		return 0
	}
}
