// Package bytecode defines KBC: the compact instruction set the
// interpreter executes (spec §4.11, §6). Instructions are decoded once
// into a flat []Instruction slice per Bytecode object (the same shape
// backend_vm.go's IRFunc.Code takes — a slice of pre-decoded structs the
// dispatch loop switches over, rather than redecoding a byte stream on
// every step); Encode/Decode in encode.go operate on the wire
// byte-stream form for tooling (an AOT frontend, disassemblers) that
// sits outside this interpreter's CORE.
package bytecode

// Op is one KBC opcode. Grouping follows spec §4.11's "notable
// opcodes" list.
type Op uint8

const (
	OpNop Op = iota

	// Frame setup (spec §4.11 "Entry family").
	OpEntry
	OpEntryFixed
	OpEntryOptional
	OpFrame
	OpSetFrame
	OpCheckStack

	// Constants and locals.
	OpPushConstant
	OpPushNull
	OpPushTrue
	OpPushFalse
	OpPop
	OpLoadLocal
	OpStoreLocal

	// OpLoadConstant never reaches the dispatch loop's PC: it is data
	// embedded immediately after EntryOptional, read directly by
	// parameter binding, never executed as a normal instruction. A
	// function with optional positional parameters carries one per
	// parameter, naming that parameter's default; a function with
	// optional named parameters carries a single one whose constant is
	// the whole []bind.NamedDefault list, not a separate name and
	// default constant per parameter.
	OpLoadConstant

	// Calls.
	OpDirectCall
	OpUncheckedDirectCall
	OpInterfaceCall
	OpUncheckedInterfaceCall
	OpInstantiatedInterfaceCall
	OpUncheckedClosureCall
	OpDynamicCall
	OpNativeCall
	OpReturnTOS

	// Type instantiation.
	OpInstantiateType
	OpInstantiateTypeArgumentsTOS

	// Fields and arrays.
	OpLoadFieldTOS
	OpStoreFieldTOS
	OpLoadIndexedTOS
	OpStoreIndexedTOS

	// Allocation.
	OpAllocateContext
	OpCloneContext
	OpAllocateClosure
	OpAllocate
	OpAllocateT
	OpCreateArrayTOS

	// Assertions.
	OpAssertAssignable
	OpAssertSubtype
	OpAssertBoolean
	OpNullCheck

	// Jumps.
	OpJump
	OpJumpIfTrue
	OpJumpIfFalse
	OpJumpIfNull
	OpJumpIfNotNull
	OpJumpIfEqStrict
	OpJumpIfNeStrict
	OpJumpIfNoAsserts
	OpJumpIfNotZeroTypeArgs
	OpJumpIfInitialized
	OpJumpIfUnchecked

	// Integer arithmetic (spec §4.11).
	OpAddInt
	OpSubInt
	OpMulInt
	OpNegateInt
	OpTruncDivInt
	OpModInt
	OpBitAndInt
	OpBitOrInt
	OpBitXorInt
	OpShlInt
	OpShrInt
	OpCompareIntEq
	OpCompareIntGt
	OpCompareIntLt
	OpCompareIntGe
	OpCompareIntLe

	// Exception handling (spec §4.5): materialize the interpreter's
	// exception special slots onto the operand stack at the start of a
	// resumed handler.
	OpPushException
	OpPushStackTrace

	// Floating-point arithmetic.
	OpNegateDouble
	OpAddDouble
	OpSubDouble
	OpMulDouble
	OpDivDouble
	OpCompareEqDouble
	OpCompareGtDouble
	OpCompareLtDouble
	OpCompareGeDouble
	OpCompareLeDouble

	opCount
)

var opNames = [opCount]string{
	OpNop:                        "Nop",
	OpEntry:                      "Entry",
	OpEntryFixed:                 "EntryFixed",
	OpEntryOptional:              "EntryOptional",
	OpFrame:                      "Frame",
	OpSetFrame:                   "SetFrame",
	OpCheckStack:                 "CheckStack",
	OpPushConstant:               "PushConstant",
	OpPushNull:                   "PushNull",
	OpPushTrue:                   "PushTrue",
	OpPushFalse:                  "PushFalse",
	OpPop:                        "Pop",
	OpLoadLocal:                  "LoadLocal",
	OpStoreLocal:                 "StoreLocal",
	OpLoadConstant:               "LoadConstant",
	OpDirectCall:                 "DirectCall",
	OpUncheckedDirectCall:        "UncheckedDirectCall",
	OpInterfaceCall:              "InterfaceCall",
	OpUncheckedInterfaceCall:     "UncheckedInterfaceCall",
	OpInstantiatedInterfaceCall:  "InstantiatedInterfaceCall",
	OpUncheckedClosureCall:       "UncheckedClosureCall",
	OpDynamicCall:                "DynamicCall",
	OpNativeCall:                 "NativeCall",
	OpReturnTOS:                  "ReturnTOS",
	OpInstantiateType:            "InstantiateType",
	OpInstantiateTypeArgumentsTOS: "InstantiateTypeArgumentsTOS",
	OpLoadFieldTOS:               "LoadFieldTOS",
	OpStoreFieldTOS:              "StoreFieldTOS",
	OpLoadIndexedTOS:             "LoadIndexedTOS",
	OpStoreIndexedTOS:            "StoreIndexedTOS",
	OpAllocateContext:            "AllocateContext",
	OpCloneContext:               "CloneContext",
	OpAllocateClosure:            "AllocateClosure",
	OpAllocate:                   "Allocate",
	OpAllocateT:                  "AllocateT",
	OpCreateArrayTOS:             "CreateArrayTOS",
	OpAssertAssignable:           "AssertAssignable",
	OpAssertSubtype:              "AssertSubtype",
	OpAssertBoolean:              "AssertBoolean",
	OpNullCheck:                  "NullCheck",
	OpJump:                       "Jump",
	OpJumpIfTrue:                 "JumpIfTrue",
	OpJumpIfFalse:                "JumpIfFalse",
	OpJumpIfNull:                 "JumpIfNull",
	OpJumpIfNotNull:              "JumpIfNotNull",
	OpJumpIfEqStrict:             "JumpIfEqStrict",
	OpJumpIfNeStrict:             "JumpIfNeStrict",
	OpJumpIfNoAsserts:            "JumpIfNoAsserts",
	OpJumpIfNotZeroTypeArgs:      "JumpIfNotZeroTypeArgs",
	OpJumpIfInitialized:          "JumpIfInitialized",
	OpJumpIfUnchecked:            "JumpIfUnchecked",
	OpAddInt:                     "AddInt",
	OpSubInt:                     "SubInt",
	OpMulInt:                     "MulInt",
	OpNegateInt:                  "NegateInt",
	OpTruncDivInt:                "TruncDivInt",
	OpModInt:                     "ModInt",
	OpBitAndInt:                  "BitAndInt",
	OpBitOrInt:                   "BitOrInt",
	OpBitXorInt:                  "BitXorInt",
	OpShlInt:                     "ShlInt",
	OpShrInt:                     "ShrInt",
	OpCompareIntEq:               "CompareIntEq",
	OpCompareIntGt:               "CompareIntGt",
	OpCompareIntLt:               "CompareIntLt",
	OpCompareIntGe:               "CompareIntGe",
	OpCompareIntLe:               "CompareIntLe",
	OpPushException:              "PushException",
	OpPushStackTrace:             "PushStackTrace",
	OpNegateDouble:               "NegateDouble",
	OpAddDouble:                  "AddDouble",
	OpSubDouble:                  "SubDouble",
	OpMulDouble:                  "MulDouble",
	OpDivDouble:                  "DivDouble",
	OpCompareEqDouble:            "CompareEqDouble",
	OpCompareGtDouble:            "CompareGtDouble",
	OpCompareLtDouble:            "CompareLtDouble",
	OpCompareGeDouble:            "CompareGeDouble",
	OpCompareLeDouble:            "CompareLeDouble",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "Op?"
}
