package runtime

import (
	"fmt"

	"j5.nz/kbcvm/unwind"
	"j5.nz/kbcvm/value"
)

// RefHelpers is a reference implementation of the runtime helper shim
// (spec §6) sufficient to run and test the interpreter CORE end to
// end. It has no compiler, no type system, and no real noSuchMethod
// machinery behind it; where a real runtime would consult rich guest
// metadata, this one does the minimum the interpreter's contract
// requires and throws unwind.RuntimeError for anything else,
// matching backend_vm.go's own habit of panicking with a plain string
// on any IR shape its backend does not support rather than building
// out unreachable generality.
type RefHelpers struct {
	// Compiler is consulted by CompileFunction; nil means every
	// Function this interpreter calls already carries bytecode or
	// native code, which is the only configuration the reference test
	// suite needs; with nil, CompileFunction throws an unwind.Fatal. No
	// test in this repository supplies a Compiler.
	Compiler func(fn Function) Function

	// NoSuchMethod is consulted by InvokeNoSuchMethod and
	// NoSuchMethodFromPrologue; nil means it behaves as a plain throw of
	// a NoSuchMethod RuntimeError, sufficient for spec §8's scenario 3.
	NoSuchMethod func(t *Thread, receiver value.Value, selector string, argdesc *ArgumentsDescriptor, args []value.Value) value.Value

	// Resolver backs InstanceCallMissHandler; nil means every instance
	// call misses permanently (falls straight to no-such-method).
	Resolver func(t *Thread, receiver value.Value, selector string, argdesc *ArgumentsDescriptor) Function
}

var _ Helpers = (*RefHelpers)(nil)

func (h *RefHelpers) CompileFunction(t *Thread, fn Function) Function {
	if h.Compiler == nil {
		unwind.Throw(&unwind.Fatal{Err: fmt.Errorf("runtime: no compiler configured for %q", fn.Name())})
	}
	return h.Compiler(fn)
}

// InitInstanceField runs a field's initializer the first time an
// implicit getter observes value.Uninitialized (spec §4.9). The
// reference runtime has no initializer expressions to evaluate, so it
// installs null, matching how a field declared without an initializer
// behaves.
func (h *RefHelpers) InitInstanceField(t *Thread, obj value.Value, f *Field) value.Value {
	t.Heap.StoreField(obj, f.Offset, value.Null)
	return value.Null
}

func (h *RefHelpers) InitStaticField(t *Thread, f *Field) value.Value {
	return value.Null
}

// UpdateFieldCid widens a field's guard after a store observes a class
// id the guard didn't predict (spec §4.9). The reference runtime has
// no persistent field metadata store beyond the Field struct itself,
// so it mutates it in place; a real compiler would additionally
// deoptimize code compiled against the old guard, which is out of
// scope (§1, no optimizing compiler).
func (h *RefHelpers) UpdateFieldCid(t *Thread, f *Field, v value.Value) {
	cid := t.Heap.ClassIDOf(v)
	if f.GuardedClassID == value.IllegalClassID {
		return
	}
	if f.GuardedClassID != cid {
		f.GuardedClassID = value.IllegalClassID
	}
}

func (h *RefHelpers) StackOverflow(t *Thread) {
	unwind.Throw(&unwind.RuntimeError{Kind: unwind.StackOverflow, Message: "stack overflow"})
}

// InstanceCallMissHandler resolves a selector against a receiver's
// class when the lookup cache misses (spec §4.3, §4.8). The reference
// runtime has no method table of its own; callers that want the
// "cache warms up on the second call" scenario (spec §8 scenario 2)
// configure Resolver.
func (h *RefHelpers) InstanceCallMissHandler(t *Thread, receiver value.Value, selector string, argdesc *ArgumentsDescriptor) Function {
	if h.Resolver == nil {
		return nil
	}
	return h.Resolver(t, receiver, selector, argdesc)
}

func (h *RefHelpers) InvokeNoSuchMethod(t *Thread, receiver value.Value, selector string, argdesc *ArgumentsDescriptor, args []value.Value) value.Value {
	if h.NoSuchMethod != nil {
		return h.NoSuchMethod(t, receiver, selector, argdesc, args)
	}
	unwind.Throw(&unwind.RuntimeError{Kind: unwind.NoSuchMethod, Message: fmt.Sprintf("NoSuchMethodError: %s", selector)})
	panic("unreachable")
}

func (h *RefHelpers) NoSuchMethodFromPrologue(t *Thread, fn Function, argdesc *ArgumentsDescriptor, args []value.Value) value.Value {
	var receiver value.Value
	if len(args) > 0 {
		receiver = args[0]
	}
	return h.InvokeNoSuchMethod(t, receiver, fn.Name(), argdesc, args)
}

// TypeCheck and SubtypeCheck have no real type system behind them in
// this reference runtime (spec §1 excludes the type system beyond
// AssertAssignable's cache contract); they accept everything, so
// AssertAssignable opcodes never fail in tests that don't configure
// something stricter via a Thread.Helpers built for that purpose.
func (h *RefHelpers) TypeCheck(t *Thread, instance value.Value, typ any, instantiatorTA, functionTA value.Value, name string) bool {
	return true
}

func (h *RefHelpers) SubtypeCheck(t *Thread, sub, super any, instantiatorTA, functionTA value.Value) bool {
	return true
}

func (h *RefHelpers) NonBoolTypeError(t *Thread, v value.Value) {
	unwind.Throw(&unwind.RuntimeError{Kind: unwind.NonBoolCondition, Message: "type 'dynamic' is not a subtype of type 'bool'"})
}

func (h *RefHelpers) NullErrorWithSelector(t *Thread, selector string) {
	unwind.Throw(&unwind.RuntimeError{Kind: unwind.NullError, Message: fmt.Sprintf("NoSuchMethodError: method %q called on null", selector)})
}

func (h *RefHelpers) IntegerDivisionByZero(t *Thread) {
	unwind.Throw(&unwind.RuntimeError{Kind: unwind.DivisionByZero, Message: "IntegerDivisionByZeroException"})
}

func (h *RefHelpers) ArgumentError(t *Thread, message string) {
	unwind.Throw(&unwind.RuntimeError{Kind: unwind.ArgumentError, Message: message})
}

func (h *RefHelpers) InstantiateType(t *Thread, typ any, instantiatorTA, functionTA value.Value) value.Value {
	return value.Null
}

func (h *RefHelpers) InstantiateTypeArguments(t *Thread, typeArgs any, instantiatorTA, functionTA value.Value) value.Value {
	return value.Null
}

func (h *RefHelpers) GetFieldForDispatch(t *Thread, obj value.Value, name string) *Field {
	return nil
}

func (h *RefHelpers) ResolveCallFunction(t *Thread, closure value.Value) Function {
	cid := t.Heap.ClassIDOf(closure)
	if cid != ClosureClassID {
		unwind.Throw(&unwind.RuntimeError{Kind: unwind.NoSuchMethod, Message: "not a closure"})
	}
	return ClosureFunction(t.Heap, closure)
}

func (h *RefHelpers) ClosureArgumentsValid(t *Thread, closure value.Value, argdesc *ArgumentsDescriptor) bool {
	return true
}
