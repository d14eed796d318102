package runtime

import "j5.nz/kbcvm/value"

// Heap is the external collaborator contract for the managed heap and
// GC (spec §1 OUT OF SCOPE, §3/§4.2/§4.9/§4.11 contract only): boxing,
// field/element access, and the object allocation the runtime helpers
// perform when the interpreter's own inline bump-allocation fast path
// (package heap) cannot satisfy a request.
type Heap interface {
	ClassIDOf(v value.Value) value.ClassID

	AllocateObject(cls *Class) value.Value
	AllocateArray(length int) value.Value
	AllocateContext(numVars int) value.Value
	CloneContext(ctx value.Value) value.Value

	LoadField(obj value.Value, wordOffset int) value.Value
	StoreField(obj value.Value, wordOffset int, v value.Value)
	LoadElement(arr value.Value, index int) value.Value
	StoreElement(arr value.Value, index int, v value.Value)
	ArrayLength(arr value.Value) int

	// BoxInt64/UnboxInt64 implement the Smi-vs-Mint boxing invariant
	// (spec §8): BoxInt64 must return an immediate whenever the value
	// fits (value.FitsSmi), and only allocate a heap Mint otherwise.
	BoxInt64(n int64) value.Value
	UnboxInt64(v value.Value) (n int64, ok bool)
	BoxDouble(f float64) value.Value
	UnboxDouble(v value.Value) (f float64, ok bool)

	IsNull(v value.Value) bool
	TrueValue() value.Value
	FalseValue() value.Value
	IsTrue(v value.Value) bool

	// TryBumpAllocate is the inline fast path (spec §4.2): on success
	// the interpreter initializes the object itself; on failure it
	// falls back to AllocateObject/AllocateArray/AllocateContext via a
	// Helpers call (which may trigger GC).
	TryBumpAllocate(cid value.ClassID, sizeWords int32) (value.Value, bool)
}

// ClassTable is the external collaborator contract for class metadata
// (spec §3).
type ClassTable interface {
	Lookup(cid value.ClassID) *Class
}

// Helpers is the runtime helper shim (spec §6): every name listed
// there that this interpreter CORE actually calls. Each may allocate
// (and thus GC) and may throw — throwing is expressed as a Go panic
// raised by unwind.Throw; see package unwind and the per-frame recover
// in interp's runSegment.
type Helpers interface {
	CompileFunction(t *Thread, fn Function) Function
	InitInstanceField(t *Thread, obj value.Value, f *Field) value.Value
	InitStaticField(t *Thread, f *Field) value.Value
	UpdateFieldCid(t *Thread, f *Field, v value.Value)
	StackOverflow(t *Thread)

	InstanceCallMissHandler(t *Thread, receiver value.Value, selector string, argdesc *ArgumentsDescriptor) Function
	InvokeNoSuchMethod(t *Thread, receiver value.Value, selector string, argdesc *ArgumentsDescriptor, args []value.Value) value.Value
	NoSuchMethodFromPrologue(t *Thread, fn Function, argdesc *ArgumentsDescriptor, args []value.Value) value.Value

	TypeCheck(t *Thread, instance value.Value, typ any, instantiatorTA, functionTA value.Value, name string) bool
	SubtypeCheck(t *Thread, sub, super any, instantiatorTA, functionTA value.Value) bool

	NonBoolTypeError(t *Thread, v value.Value)
	NullErrorWithSelector(t *Thread, selector string)
	IntegerDivisionByZero(t *Thread)
	ArgumentError(t *Thread, message string)

	InstantiateType(t *Thread, typ any, instantiatorTA, functionTA value.Value) value.Value
	InstantiateTypeArguments(t *Thread, typeArgs any, instantiatorTA, functionTA value.Value) value.Value

	GetFieldForDispatch(t *Thread, obj value.Value, name string) *Field
	ResolveCallFunction(t *Thread, closure value.Value) Function
	ClosureArgumentsValid(t *Thread, closure value.Value, argdesc *ArgumentsDescriptor) bool
}

// Thread bundles the per-execution-context collaborators the runtime
// helper contract threads through every call (spec §6:
// "NativeArguments{thread, argc, argv, retval}"), plus a flag for
// asynchronous interruption (spec §5). The dispatch loop's OpCheckStack
// in package interp checks only the frame depth; it does not read
// ScheduledInterrupt.
type Thread struct {
	Heap    Heap
	Classes ClassTable
	Helpers Helpers

	ScheduledInterrupt bool
}
