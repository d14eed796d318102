package interp

import (
	"testing"

	"j5.nz/kbcvm/bind"
	"j5.nz/kbcvm/bytecode"
	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/unwind"
	"j5.nz/kbcvm/value"
)

func newTestThread() *runtime.Thread {
	return &runtime.Thread{
		Heap:    runtime.NewRefHeap(4 << 10),
		Classes: runtime.NewRefClassTable(),
		Helpers: &runtime.RefHelpers{},
	}
}

// buildFib assembles fib(n) { if (n<2) return n; return fib(n-1)+fib(n-2); }
// as a self-recursive DirectCall, the way any KBC-emitting frontend
// would hand the interpreter a finished function.
func buildFib() (runtime.Function, *runtime.ArgumentsDescriptor) {
	argdesc := &runtime.ArgumentsDescriptor{Count: 1, PositionalCount: 1}
	site := &DirectCallSite{ArgDesc: argdesc}
	pool := bytecode.NewPool(
		value.MakeSmi(2),
		value.MakeSmi(1),
		site,
	)
	instrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 1),
		bytecode.Make1(bytecode.OpLoadLocal, 0),
		bytecode.Make1(bytecode.OpPushConstant, 0),
		bytecode.Make0(bytecode.OpCompareIntLt),
		bytecode.Make1(bytecode.OpJumpIfFalse, 3),
		bytecode.Make1(bytecode.OpLoadLocal, 0),
		bytecode.Make0(bytecode.OpReturnTOS),
		bytecode.Make1(bytecode.OpLoadLocal, 0),
		bytecode.Make1(bytecode.OpPushConstant, 1),
		bytecode.Make0(bytecode.OpSubInt),
		bytecode.Make2(bytecode.OpDirectCall, 1, 2),
		bytecode.Make1(bytecode.OpLoadLocal, 0),
		bytecode.Make1(bytecode.OpPushConstant, 0),
		bytecode.Make0(bytecode.OpSubInt),
		bytecode.Make2(bytecode.OpDirectCall, 1, 2),
		bytecode.Make0(bytecode.OpAddInt),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	bc := &bytecode.Bytecode{Instrs: instrs, Pool: pool}
	fn := runtime.NewBytecodeFunction("fib", bc, 1, 0, 0)
	site.Target = fn
	return fn, argdesc
}

func TestFibonacciRecursiveDirectCall(t *testing.T) {
	thread := newTestThread()
	vm := NewInterpreter(thread)
	fn, argdesc := buildFib()

	result, err := vm.Call(fn, argdesc, []value.Value{value.MakeSmi(10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := thread.Heap.UnboxInt64(result)
	if !ok || got != 55 {
		t.Fatalf("fib(10) = %v, %v, want 55, true", got, ok)
	}
	if vm.Depth() != 0 {
		t.Fatalf("frame stack should unwind fully after Call returns, depth=%d", vm.Depth())
	}
}

// buildInstanceCallCaller builds a body that performs a single
// instance call on its one argument and returns the result, so a test can drive
// the lookup-cache miss/hit path directly.
func buildInstanceCallCaller(site *InstanceCallSite) runtime.Function {
	pool := bytecode.NewPool(site)
	instrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 1),
		bytecode.Make1(bytecode.OpLoadLocal, 0),
		bytecode.Make2(bytecode.OpInterfaceCall, 1, 0),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	bc := &bytecode.Bytecode{Instrs: instrs, Pool: pool}
	return runtime.NewBytecodeFunction("caller", bc, 1, 0, 0)
}

func buildConstFunction(result value.Value) runtime.Function {
	pool := bytecode.NewPool(result)
	instrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 1),
		bytecode.Make1(bytecode.OpPushConstant, 0),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	bc := &bytecode.Bytecode{Instrs: instrs, Pool: pool}
	return runtime.NewBytecodeFunction("greet", bc, 1, 0, 0)
}

func TestInstanceCallWarmsCacheOnSecondCall(t *testing.T) {
	thread := newTestThread()
	resolveCount := 0
	target := buildConstFunction(value.MakeSmi(42))
	helpers := &runtime.RefHelpers{
		Resolver: func(t *runtime.Thread, receiver value.Value, selector string, argdesc *runtime.ArgumentsDescriptor) runtime.Function {
			resolveCount++
			return target
		},
	}
	thread.Helpers = helpers

	argdesc := &runtime.ArgumentsDescriptor{Count: 1, PositionalCount: 1}
	site := NewInstanceCallSite("greet", argdesc)
	caller := buildInstanceCallCaller(site)
	vm := NewInterpreter(thread)

	receiver := thread.Heap.TrueValue()
	for i := 0; i < 2; i++ {
		result, err := vm.Call(caller, argdesc, []value.Value{receiver})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if got, ok := thread.Heap.UnboxInt64(result); !ok || got != 42 {
			t.Fatalf("call %d: result = %v, %v, want 42, true", i, got, ok)
		}
	}
	if resolveCount != 1 {
		t.Fatalf("resolver should run once (cache miss) then hit, ran %d times", resolveCount)
	}
}

func TestNamedArgBindingSuccessAndNoSuchMethodOnUnknownName(t *testing.T) {
	argdescOK := &runtime.ArgumentsDescriptor{
		Count:           1,
		PositionalCount: 0,
		Named:           []runtime.NamedArg{{Name: "x", Position: 0}},
	}
	argdescBad := &runtime.ArgumentsDescriptor{
		Count:           1,
		PositionalCount: 0,
		Named:           []runtime.NamedArg{{Name: "nope", Position: 0}},
	}

	named := []bind.NamedDefault{{Name: "x", Value: value.MakeSmi(5)}}
	pool := bytecode.NewPool(named)
	instrs := []bytecode.Instruction{
		bytecode.Make3(bytecode.OpEntryOptional, 0, 1, 0),
		bytecode.Make1(bytecode.OpLoadConstant, 0),
		bytecode.Make1(bytecode.OpLoadLocal, 0),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	bc := &bytecode.Bytecode{Instrs: instrs, Pool: pool}
	target := runtime.NewBytecodeFunction("withNamed", bc, 0, 0, 1)

	thread := newTestThread()
	vm := NewInterpreter(thread)

	result, err := vm.Call(target, argdescOK, []value.Value{value.MakeSmi(9)})
	if err != nil {
		t.Fatalf("unexpected error binding a known name: %v", err)
	}
	if got := result.SmiValue(); got != 9 {
		t.Fatalf("result = %d, want 9 (caller-supplied, not the default)", got)
	}

	_, err = vm.Call(target, argdescBad, []value.Value{value.MakeSmi(9)})
	if err == nil {
		t.Fatalf("expected an UnhandledException for an unknown named argument")
	}
	if _, ok := err.(*UnhandledException); !ok {
		t.Fatalf("expected *UnhandledException, got %T: %v", err, err)
	}
}

func buildOp0Function(op bytecode.Op) runtime.Function {
	instrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 2),
		bytecode.Make1(bytecode.OpLoadLocal, 0),
		bytecode.Make1(bytecode.OpLoadLocal, 1),
		bytecode.Make0(op),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	bc := &bytecode.Bytecode{Instrs: instrs, Pool: bytecode.NewPool()}
	return runtime.NewBytecodeFunction("binop", bc, 2, 0, 0)
}

func TestIntegerOverflowWraps(t *testing.T) {
	thread := newTestThread()
	vm := NewInterpreter(thread)
	fn := buildOp0Function(bytecode.OpAddInt)
	argdesc := &runtime.ArgumentsDescriptor{Count: 2, PositionalCount: 2}

	maxMint := thread.Heap.BoxInt64(1<<62 + (1<<62 - 1)) // a large positive Mint
	result, err := vm.Call(fn, argdesc, []value.Value{maxMint, maxMint})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := thread.Heap.UnboxInt64(result)
	if !ok {
		t.Fatalf("result did not unbox as an int")
	}
	want := int64(uint64(1<<62+(1<<62-1)) + uint64(1<<62+(1<<62-1)))
	if got != want {
		t.Fatalf("AddInt overflow = %d, want wraparound result %d", got, want)
	}
}

func TestDivisionByZeroThrowsUnhandledException(t *testing.T) {
	thread := newTestThread()
	vm := NewInterpreter(thread)
	fn := buildOp0Function(bytecode.OpTruncDivInt)
	argdesc := &runtime.ArgumentsDescriptor{Count: 2, PositionalCount: 2}

	_, err := vm.Call(fn, argdesc, []value.Value{value.MakeSmi(10), value.MakeSmi(0)})
	if err == nil {
		t.Fatalf("expected a division-by-zero error")
	}
	unhandled, ok := err.(*UnhandledException)
	if !ok {
		t.Fatalf("expected *UnhandledException, got %T", err)
	}
	rtErr, ok := unhandled.Exception.(*unwind.RuntimeError)
	if !ok || rtErr.Kind != unwind.DivisionByZero {
		t.Fatalf("expected a DivisionByZero RuntimeError, got %#v", unhandled.Exception)
	}
	if vm.Depth() != 0 {
		t.Fatalf("frame stack should unwind fully after an unhandled exception, depth=%d", vm.Depth())
	}
}

// buildThrowsTwoFramesDeep builds outer -> middle -> inner, where inner
// divides by zero; the exception unwinds past middle and outer with
// neither installing a handler, so Call sees it at the entry frame.
func buildThrowsTwoFramesDeep() (outer runtime.Function, argdesc *runtime.ArgumentsDescriptor) {
	argdesc = &runtime.ArgumentsDescriptor{Count: 0, PositionalCount: 0}

	innerSite := &DirectCallSite{ArgDesc: argdesc}
	innerPool := bytecode.NewPool(value.MakeSmi(1), value.MakeSmi(0))
	innerInstrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 0),
		bytecode.Make1(bytecode.OpPushConstant, 0),
		bytecode.Make1(bytecode.OpPushConstant, 1),
		bytecode.Make0(bytecode.OpTruncDivInt),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	inner := runtime.NewBytecodeFunction("inner", &bytecode.Bytecode{Instrs: innerInstrs, Pool: innerPool}, 0, 0, 0)
	innerSite.Target = inner

	middlePool := bytecode.NewPool(innerSite)
	middleInstrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 0),
		bytecode.Make2(bytecode.OpDirectCall, 0, 0),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	middle := runtime.NewBytecodeFunction("middle", &bytecode.Bytecode{Instrs: middleInstrs, Pool: middlePool}, 0, 0, 0)

	middleSite := &DirectCallSite{Target: middle, ArgDesc: argdesc}
	outerPool := bytecode.NewPool(middleSite)
	outerInstrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 0),
		bytecode.Make2(bytecode.OpDirectCall, 0, 0),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	outer = runtime.NewBytecodeFunction("outer", &bytecode.Bytecode{Instrs: outerInstrs, Pool: outerPool}, 0, 0, 0)
	return outer, argdesc
}

func TestExceptionUnwindsThroughMultipleFramesWhenUnhandled(t *testing.T) {
	thread := newTestThread()
	vm := NewInterpreter(thread)
	outer, argdesc := buildThrowsTwoFramesDeep()

	_, err := vm.Call(outer, argdesc, nil)
	if err == nil {
		t.Fatalf("expected an unhandled exception from two frames deep")
	}
	if vm.Depth() != 0 {
		t.Fatalf("every intervening frame must be popped as the panic propagates, depth=%d", vm.Depth())
	}
}

// throwingHelpers overrides IntegerDivisionByZero to carry a
// recognizable payload value, so a test resuming at a handler can
// assert the exact value it observes through the exception special
// slot rather than just "some error happened".
type throwingHelpers struct {
	*runtime.RefHelpers
	payload value.Value
}

func (h *throwingHelpers) IntegerDivisionByZero(t *runtime.Thread) {
	unwind.Throw(&unwind.RuntimeError{Kind: unwind.DivisionByZero, Message: "IntegerDivisionByZeroException", Value: h.payload})
}

// buildThrowsTwoFramesDeepWithOuterHandler builds outer -> middle ->
// inner exactly like buildThrowsTwoFramesDeep, except outer installs a
// handler over its DirectCall to middle: when inner's division by zero
// unwinds past middle (which has none), outer's own runSegment catches
// it, resumes at the handler, and pushes the caught exception's value
// as outer's result instead of propagating (spec §8 scenario 6: "the
// throw is caught by a handler two frames up").
func buildThrowsTwoFramesDeepWithOuterHandler() (outer runtime.Function, argdesc *runtime.ArgumentsDescriptor) {
	argdesc = &runtime.ArgumentsDescriptor{Count: 0, PositionalCount: 0}

	innerSite := &DirectCallSite{ArgDesc: argdesc}
	innerPool := bytecode.NewPool(value.MakeSmi(1), value.MakeSmi(0))
	innerInstrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 0),
		bytecode.Make1(bytecode.OpPushConstant, 0),
		bytecode.Make1(bytecode.OpPushConstant, 1),
		bytecode.Make0(bytecode.OpTruncDivInt),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	inner := runtime.NewBytecodeFunction("inner", &bytecode.Bytecode{Instrs: innerInstrs, Pool: innerPool}, 0, 0, 0)
	innerSite.Target = inner

	middlePool := bytecode.NewPool(innerSite)
	middleInstrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 0),
		bytecode.Make2(bytecode.OpDirectCall, 0, 0),
		bytecode.Make0(bytecode.OpReturnTOS),
	}
	middle := runtime.NewBytecodeFunction("middle", &bytecode.Bytecode{Instrs: middleInstrs, Pool: middlePool}, 0, 0, 0)

	middleSite := &DirectCallSite{Target: middle, ArgDesc: argdesc}
	outerPool := bytecode.NewPool(middleSite)
	outerInstrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 0), // 0
		bytecode.Make2(bytecode.OpDirectCall, 0, 0), // 1: may throw
		bytecode.Make0(bytecode.OpReturnTOS),         // 2: normal path, unreached
		bytecode.Make0(bytecode.OpPushException),     // 3: handler entry
		bytecode.Make0(bytecode.OpReturnTOS),         // 4
	}
	outerBC := &bytecode.Bytecode{
		Instrs: outerInstrs,
		Pool:   outerPool,
		Handlers: []bytecode.HandlerRange{
			{Start: 1, End: 2, HandlerPC: 3},
		},
	}
	outer = runtime.NewBytecodeFunction("outer", outerBC, 0, 0, 0)
	return outer, argdesc
}

func TestExceptionUnwindsThroughMultipleFrames(t *testing.T) {
	thread := newTestThread()
	payload := value.MakeSmi(42)
	thread.Helpers = &throwingHelpers{RefHelpers: &runtime.RefHelpers{}, payload: payload}
	vm := NewInterpreter(thread)
	outer, argdesc := buildThrowsTwoFramesDeepWithOuterHandler()

	result, err := vm.Call(outer, argdesc, nil)
	if err != nil {
		t.Fatalf("expected outer's handler to catch the exception, got error: %v", err)
	}
	if result != payload {
		t.Fatalf("expected outer to return the caught exception value %v, got %v", payload, result)
	}
	if vm.Depth() != 0 {
		t.Fatalf("frame stack should be back to empty once outer returns normally, depth=%d", vm.Depth())
	}
}
