package runtime

import "j5.nz/kbcvm/bytecode"

// ConcreteFunction is the reference implementation of the Function
// contract. A real frontend would back Function with whatever class
// its AST/IR nodes use; this repository uses one plain struct for
// every kind (regular, native, and the synthetic VM-internal bodies)
// the way backend_vm.go uses one IRFunc struct for every function in
// its module, varying behavior by a kind/data field rather than by
// subtype.
type ConcreteFunction struct {
	FnName   string
	FnKind   FunctionKind
	FnParent Function

	bytecode *bytecode.Bytecode
	native   NativeEntryPoint

	FnData any

	NumFixed            int
	NumOptionalPositional int
	NumOptionalNamed     int
	Static               bool
}

var _ Function = (*ConcreteFunction)(nil)

func (f *ConcreteFunction) Name() string             { return f.FnName }
func (f *ConcreteFunction) HasNativeCode() bool       { return f.native != nil }
func (f *ConcreteFunction) HasBytecode() bool         { return f.bytecode != nil }
func (f *ConcreteFunction) Parent() Function          { return f.FnParent }
func (f *ConcreteFunction) Kind() FunctionKind        { return f.FnKind }
func (f *ConcreteFunction) Bytecode() *bytecode.Bytecode { return f.bytecode }
func (f *ConcreteFunction) NativeEntry() NativeEntryPoint { return f.native }
func (f *ConcreteFunction) Data() any                 { return f.FnData }

func (f *ConcreteFunction) NumFixedParams() int             { return f.NumFixed }
func (f *ConcreteFunction) NumOptionalPositionalParams() int { return f.NumOptionalPositional }
func (f *ConcreteFunction) NumOptionalNamedParams() int      { return f.NumOptionalNamed }
func (f *ConcreteFunction) IsStatic() bool                   { return f.Static }

// NewBytecodeFunction builds a regular function backed by bytecode.
func NewBytecodeFunction(name string, bc *bytecode.Bytecode, numFixed, numOptPos, numOptNamed int) *ConcreteFunction {
	return &ConcreteFunction{
		FnName:                name,
		FnKind:                KindRegular,
		bytecode:              bc,
		NumFixed:              numFixed,
		NumOptionalPositional: numOptPos,
		NumOptionalNamed:      numOptNamed,
	}
}

// NewNativeFunction builds a function backed by "compiled" native code
// (spec §4.7 InvokeCompiled); see NativeEntryPoint's doc comment for
// why this is a Go closure rather than real machine code.
func NewNativeFunction(name string, entry NativeEntryPoint, numFixed int) *ConcreteFunction {
	return &ConcreteFunction{
		FnName:   name,
		FnKind:   KindRegular,
		native:   entry,
		NumFixed: numFixed,
	}
}

// NewSyntheticFunction builds one of the VM-internal bodies (spec
// §4.11 "synthetic bodies"): it carries neither bytecode nor native
// code, so Invoke's third branch ("ask runtime to compile") never
// applies to it — the dispatch loop recognizes its Kind and runs a
// hand-written body in place of decoding bytecode.
func NewSyntheticFunction(name string, kind FunctionKind, data any) *ConcreteFunction {
	return &ConcreteFunction{FnName: name, FnKind: kind, FnData: data}
}
