package runtime

import "j5.nz/kbcvm/value"

// Closure instances (spec §4.11 AllocateClosure) are Array-shaped
// heap objects (package heap only deals in raw 8-byte words, never Go
// interface values); ClosureClassID objects reserve three payload
// words for the function, the captured context, and the instantiator
// type arguments. Since a heap word cannot hold a Go Function
// interface directly, the function slot holds an index into
// functionRegistry rather than a pointer, the same hash-consing trick
// intern.go uses for selectors and arguments descriptors.
const (
	closureFunctionSlot       = 0
	closureContextSlot        = 1
	closureInstantiatorTASlot = 2
)

var functionRegistry []Function

// RegisterFunctionHandle returns a stable handle for fn. Both Closure
// objects (whose function slot must be a tagged value.Value) and
// instance-call lookup caches (whose target is a plain uintptr
// identity, cache.LookupCache) need this: a Go Function interface
// value cannot live directly in either a heap word or a uintptr, so
// every Function that needs to cross that boundary gets interned here
// once, the same hash-consing trick intern.go uses for selectors and
// arguments descriptors.
func RegisterFunctionHandle(fn Function) uintptr {
	functionRegistry = append(functionRegistry, fn)
	return uintptr(len(functionRegistry) - 1)
}

// LookupFunctionHandle reverses RegisterFunctionHandle.
func LookupFunctionHandle(handle uintptr) Function {
	if int(handle) >= len(functionRegistry) {
		panic("runtime: invalid function handle")
	}
	return functionRegistry[handle]
}

func registerFunction(fn Function) value.Value {
	return value.MakeSmi(int64(RegisterFunctionHandle(fn)))
}

func lookupFunction(handle value.Value) Function {
	return LookupFunctionHandle(uintptr(handle.SmiValue()))
}

// MakeClosure allocates a Closure object bound to fn and ctx (spec
// §4.11 AllocateClosure / §4.7 generic-call Invoke's closure branch).
func MakeClosure(h Heap, fn Function, ctx value.Value) value.Value {
	closure, ok := h.TryBumpAllocate(ClosureClassID, 3)
	if !ok {
		panic("runtime: MakeClosure requires a heap with room in its fast path")
	}
	h.StoreField(closure, closureFunctionSlot, registerFunction(fn))
	h.StoreField(closure, closureContextSlot, ctx)
	h.StoreField(closure, closureInstantiatorTASlot, value.Null)
	return closure
}

// ClosureFunction reads back the Function a Closure was bound to.
func ClosureFunction(h Heap, closure value.Value) Function {
	return lookupFunction(h.LoadField(closure, closureFunctionSlot))
}

// ClosureContext reads back a Closure's captured context.
func ClosureContext(h Heap, closure value.Value) value.Value {
	return h.LoadField(closure, closureContextSlot)
}

// ClosureFunctionHandle returns the functionRegistry handle a Closure
// was bound to, without reconstructing (and re-registering) the
// Function itself. Callers that only need a stable identity for a
// closure's target function — AssertAssignable's subtype-shape key,
// spec §4.10 — use this instead of RegisterFunctionHandle(ClosureFunction(...)),
// which would mint a fresh handle on every call and defeat any cache
// keyed on it.
func ClosureFunctionHandle(h Heap, closure value.Value) uintptr {
	return uintptr(h.LoadField(closure, closureFunctionSlot).SmiValue())
}

// ClosureInstantiatorTypeArgs reads back a Closure's instantiator type
// arguments (always value.Null in this reference implementation, since
// MakeClosure never receives a real one — see DESIGN.md).
func ClosureInstantiatorTypeArgs(h Heap, closure value.Value) value.Value {
	return h.LoadField(closure, closureInstantiatorTASlot)
}
