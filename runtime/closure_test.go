package runtime

import (
	"testing"

	"j5.nz/kbcvm/value"
)

func TestRegisterLookupFunctionHandle(t *testing.T) {
	fn := NewSyntheticFunction("probe", KindRegular, nil)
	handle := RegisterFunctionHandle(fn)
	if got := LookupFunctionHandle(handle); got != Function(fn) {
		t.Fatalf("LookupFunctionHandle returned a different function")
	}
}

func TestLookupFunctionHandleInvalidPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("an out-of-range handle should panic")
		}
	}()
	LookupFunctionHandle(^uintptr(0))
}

func TestMakeClosureRoundTrip(t *testing.T) {
	h := NewRefHeap(256)
	target := NewSyntheticFunction("body", KindRegular, nil)
	ctx := h.AllocateContext(1)

	closure := MakeClosure(h, target, ctx)
	if h.ClassIDOf(closure) != ClosureClassID {
		t.Fatalf("MakeClosure should allocate a _Closure instance")
	}
	if got := ClosureFunction(h, closure); got != Function(target) {
		t.Fatalf("ClosureFunction did not round-trip the target function")
	}
	if got := ClosureContext(h, closure); got != ctx {
		t.Fatalf("ClosureContext = %v, want %v", got, ctx)
	}
}

func TestMakeClosureWithNullContext(t *testing.T) {
	h := NewRefHeap(256)
	target := NewSyntheticFunction("body", KindRegular, nil)
	closure := MakeClosure(h, target, value.Null)
	if got := ClosureContext(h, closure); got != value.Null {
		t.Fatalf("ClosureContext = %v, want Null", got)
	}
}
