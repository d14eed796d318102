package interp

import (
	"fmt"

	"j5.nz/kbcvm/bytecode"
	"j5.nz/kbcvm/cache"
	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/unwind"
	"j5.nz/kbcvm/value"
)

// dispatch runs bc's body starting at pc against locals. It returns
// the value an OpReturnTOS hands back; any exception that reaches an
// in-frame handler resumes execution there instead of exiting (spec
// §4.5) — only an exception this bytecode declares no handler for
// propagates out of dispatch entirely, as a thrown (package unwind)
// panic.
func (in *Interpreter) dispatch(bc *bytecode.Bytecode, locals []value.Value, pc int) value.Value {
	for {
		result, nextLocals, handlerPC, resume := in.runSegment(bc, locals, pc)
		if !resume {
			return result
		}
		locals, pc = nextLocals, handlerPC
	}
}

// runSegment runs bc's body starting at pc against locals, using a
// fresh operand stack local to this call (see package doc: each
// interpreted frame is a real Go stack frame, so its operand stack is
// a plain Go slice rather than a shared region of one global array),
// until either an OpReturnTOS produces a result or an exception
// reaches a handler this bytecode declares covering the pc that was
// executing when the throw happened.
//
// The deferred recover here is this frame's half of spec §4.5's
// "walk frames via saved-caller-FP chain to locate the innermost
// handler": Go's own panic propagation already walks one interpreted
// frame (one Go call) at a time, so each frame's runSegment gets first
// look at whether the pc it was at when the panic reached it falls
// inside one of its own handler ranges. It must recover directly here
// (recover only works called directly inside a deferred function
// literal) rather than through a helper, which is why package unwind
// exposes Unwrap as a separate, non-recovering check.
func (in *Interpreter) runSegment(bc *bytecode.Bytecode, locals []value.Value, pc int) (result value.Value, nextLocals []value.Value, handlerPC int, resume bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		exc, ok := unwind.Unwrap(r)
		if !ok {
			panic(r)
		}
		if _, fatal := exc.(*unwind.Fatal); fatal {
			// Host-side failures are never caught by a bytecode handler.
			panic(r)
		}
		hr, found := bc.HandlerFor(pc)
		if !found {
			panic(r)
		}
		in.PendingException, in.PendingStackTrace = exceptionValues(exc)
		nextLocals, handlerPC, resume = locals, int(hr.HandlerPC), true
	}()

	stack := make([]value.Value, 0, 16)

	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() value.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	top := func() value.Value { return stack[len(stack)-1] }
	popArgs := func(n int) []value.Value {
		args := append([]value.Value(nil), stack[len(stack)-n:]...)
		stack = stack[:len(stack)-n]
		return args
	}

	for {
		in.StepCount++
		instr := bc.Instrs[pc]

		switch instr.Op {
		case bytecode.OpNop:
			pc++

		case bytecode.OpCheckStack:
			if in.frames.Depth() > in.MaxFrameDepth {
				in.Thread.Helpers.StackOverflow(in.Thread)
			}
			pc++

		case bytecode.OpPushConstant:
			push(bc.Pool.At(instr.D()).(value.Value))
			pc++
		case bytecode.OpPushNull:
			push(value.Null)
			pc++
		case bytecode.OpPushTrue:
			push(in.Thread.Heap.TrueValue())
			pc++
		case bytecode.OpPushFalse:
			push(in.Thread.Heap.FalseValue())
			pc++
		case bytecode.OpPop:
			pop()
			pc++
		case bytecode.OpLoadLocal:
			push(locals[instr.A()])
			pc++
		case bytecode.OpStoreLocal:
			locals[instr.A()] = top()
			pc++

		case bytecode.OpSetFrame:
			// Resizes the local area to exactly instr.A() slots in
			// place (inter.cc's BYTECODE(SetFrame, A): SP = FP + rA -
			// 1), used to discard stale locals when resuming a catch
			// handler (spec §4.11).
			n := int(instr.A())
			switch {
			case n == len(locals):
			case n < len(locals):
				locals = locals[:n]
			default:
				extended := make([]value.Value, n)
				copy(extended, locals)
				for i := len(locals); i < n; i++ {
					extended[i] = value.Null
				}
				locals = extended
			}
			pc++

		case bytecode.OpDirectCall, bytecode.OpUncheckedDirectCall, bytecode.OpNativeCall:
			site := bc.Pool.At(instr.E()).(*DirectCallSite)
			args := popArgs(int(instr.A()))
			push(in.enterFunction(site.Target, site.ArgDesc, args))
			pc++

		case bytecode.OpInterfaceCall, bytecode.OpUncheckedInterfaceCall,
			bytecode.OpInstantiatedInterfaceCall, bytecode.OpDynamicCall:
			site := bc.Pool.At(instr.E()).(*InstanceCallSite)
			args := popArgs(int(instr.A()))
			push(in.instanceCall(site, args))
			pc++

		case bytecode.OpUncheckedClosureCall:
			argdesc := bc.Pool.At(instr.E()).(*runtime.ArgumentsDescriptor)
			args := popArgs(int(instr.A()))
			push(in.closureCall(argdesc, args))
			pc++

		case bytecode.OpReturnTOS:
			result = stack[len(stack)-1]
			return

		case bytecode.OpPushException:
			push(in.PendingException)
			pc++
		case bytecode.OpPushStackTrace:
			push(in.PendingStackTrace)
			pc++

		case bytecode.OpInstantiateType:
			functionTA := pop()
			instantiatorTA := pop()
			site := bc.Pool.At(instr.D()).(*InstantiateTypeSite)
			instantiated, found := site.Cache.Lookup(instantiatorTA, functionTA)
			if !found {
				instantiated = in.Thread.Helpers.InstantiateType(in.Thread, site.Type, instantiatorTA, functionTA)
				site.Cache.Append(instantiatorTA, functionTA, instantiated)
			}
			push(instantiated)
			pc++

		case bytecode.OpInstantiateTypeArgumentsTOS:
			functionTA := pop()
			instantiatorTA := pop()
			site := bc.Pool.At(instr.D()).(*InstantiateTypeArgumentsSite)
			instantiated, found := site.Cache.Lookup(instantiatorTA, functionTA)
			if !found {
				instantiated = in.Thread.Helpers.InstantiateTypeArguments(in.Thread, site.TypeArgs, instantiatorTA, functionTA)
				site.Cache.Append(instantiatorTA, functionTA, instantiated)
			}
			push(instantiated)
			pc++

		case bytecode.OpLoadFieldTOS:
			obj := pop()
			if in.Thread.Heap.IsNull(obj) {
				in.Thread.Helpers.NullErrorWithSelector(in.Thread, "field load")
			}
			push(in.Thread.Heap.LoadField(obj, int(instr.D())))
			pc++

		case bytecode.OpStoreFieldTOS:
			v := pop()
			obj := pop()
			if in.Thread.Heap.IsNull(obj) {
				in.Thread.Helpers.NullErrorWithSelector(in.Thread, "field store")
			}
			in.Thread.Heap.StoreField(obj, int(instr.D()), v)
			pc++

		case bytecode.OpLoadIndexedTOS:
			index := pop()
			arr := pop()
			idx := in.unboxIntOperand(index)
			if idx < 0 || idx >= int64(in.Thread.Heap.ArrayLength(arr)) {
				in.Thread.Helpers.ArgumentError(in.Thread, "index out of range")
			}
			push(in.Thread.Heap.LoadElement(arr, int(idx)))
			pc++

		case bytecode.OpStoreIndexedTOS:
			v := pop()
			index := pop()
			arr := pop()
			idx := in.unboxIntOperand(index)
			if idx < 0 || idx >= int64(in.Thread.Heap.ArrayLength(arr)) {
				in.Thread.Helpers.ArgumentError(in.Thread, "index out of range")
			}
			in.Thread.Heap.StoreElement(arr, int(idx), v)
			pc++

		case bytecode.OpAllocateContext:
			push(in.Thread.Heap.AllocateContext(int(instr.D())))
			pc++
		case bytecode.OpCloneContext:
			push(in.Thread.Heap.CloneContext(pop()))
			pc++
		case bytecode.OpAllocateClosure:
			target := bc.Pool.At(instr.D()).(runtime.Function)
			ctx := pop()
			push(runtime.MakeClosure(in.Thread.Heap, target, ctx))
			pc++

		case bytecode.OpAllocate, bytecode.OpAllocateT:
			cls := in.Thread.Classes.Lookup(value.ClassID(instr.D()))
			var typeArgs value.Value = value.Null
			if instr.Op == bytecode.OpAllocateT {
				typeArgs = pop()
			}
			obj, ok := in.Thread.Heap.TryBumpAllocate(cls.ID, cls.InstanceSizeWords)
			if !ok {
				obj = in.Thread.Heap.AllocateObject(cls)
			}
			if cls.TypeArgsFieldOffsetWords >= 0 {
				in.Thread.Heap.StoreField(obj, cls.TypeArgsFieldOffsetWords, typeArgs)
			}
			push(obj)
			pc++

		case bytecode.OpCreateArrayTOS:
			length := pop()
			n := in.unboxIntOperand(length)
			push(in.Thread.Heap.AllocateArray(int(n)))
			pc++

		case bytecode.OpAssertAssignable:
			site := bc.Pool.At(instr.T()).(*TypeTestSite)
			functionTA := pop()
			instantiatorTA := pop()
			instance := top()
			shape := in.subtypeShapeFor(instance, instantiatorTA, functionTA)
			result, found := site.Cache.Lookup(shape)
			if !found {
				result = in.Thread.Helpers.TypeCheck(in.Thread, instance, site.Type, instantiatorTA, functionTA, site.Name)
				site.Cache.Append(shape, result)
			}
			if !result {
				unwind.Throw(&unwind.RuntimeError{Kind: unwind.TypeError, Message: "type '" + site.Name + "' assertion failed"})
			}
			pc++

		case bytecode.OpAssertSubtype:
			functionTA := pop()
			instantiatorTA := pop()
			super := pop()
			sub := pop()
			if !in.Thread.Helpers.SubtypeCheck(in.Thread, sub, super, instantiatorTA, functionTA) {
				in.Thread.Helpers.ArgumentError(in.Thread, "type parameter bound violation")
			}
			pc++

		case bytecode.OpAssertBoolean:
			v := top()
			if v != in.Thread.Heap.TrueValue() && v != in.Thread.Heap.FalseValue() {
				in.Thread.Helpers.NonBoolTypeError(in.Thread, v)
			}
			pc++

		case bytecode.OpNullCheck:
			if in.Thread.Heap.IsNull(top()) {
				in.Thread.Helpers.NullErrorWithSelector(in.Thread, "")
			}
			pc++

		case bytecode.OpJump:
			pc += int(instr.X())
		case bytecode.OpJumpIfTrue:
			if in.Thread.Heap.IsTrue(pop()) {
				pc += int(instr.X())
			} else {
				pc++
			}
		case bytecode.OpJumpIfFalse:
			if !in.Thread.Heap.IsTrue(pop()) {
				pc += int(instr.X())
			} else {
				pc++
			}
		case bytecode.OpJumpIfNull:
			if in.Thread.Heap.IsNull(pop()) {
				pc += int(instr.X())
			} else {
				pc++
			}
		case bytecode.OpJumpIfNotNull:
			if !in.Thread.Heap.IsNull(pop()) {
				pc += int(instr.X())
			} else {
				pc++
			}
		case bytecode.OpJumpIfEqStrict:
			b, a := pop(), pop()
			if a == b {
				pc += int(instr.X())
			} else {
				pc++
			}
		case bytecode.OpJumpIfNeStrict:
			b, a := pop(), pop()
			if a != b {
				pc += int(instr.X())
			} else {
				pc++
			}
		case bytecode.OpJumpIfNoAsserts:
			// This reference interpreter has no "assertions disabled"
			// build mode (spec Non-goal); assertions always run.
			pc++
		case bytecode.OpJumpIfNotZeroTypeArgs:
			n := in.unboxIntOperand(pop())
			if n != 0 {
				pc += int(instr.X())
			} else {
				pc++
			}
		case bytecode.OpJumpIfInitialized:
			if pop() != value.Uninitialized {
				pc += int(instr.X())
			} else {
				pc++
			}
		case bytecode.OpJumpIfUnchecked:
			// Checked-vs-unchecked entry is selected by which call-site
			// opcode (Unchecked* vs not) the caller used, not by runtime
			// state, in this reference interpreter.
			pc++

		case bytecode.OpAddInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.Thread.Heap.BoxInt64(int64(uint64(a) + uint64(b))))
			pc++
		case bytecode.OpSubInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.Thread.Heap.BoxInt64(int64(uint64(a) - uint64(b))))
			pc++
		case bytecode.OpMulInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.Thread.Heap.BoxInt64(int64(uint64(a) * uint64(b))))
			pc++
		case bytecode.OpNegateInt:
			a := in.unboxIntOperand(pop())
			push(in.Thread.Heap.BoxInt64(int64(-uint64(a))))
			pc++
		case bytecode.OpTruncDivInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			if b == 0 {
				in.Thread.Helpers.IntegerDivisionByZero(in.Thread)
			}
			push(in.Thread.Heap.BoxInt64(truncDiv(a, b)))
			pc++
		case bytecode.OpModInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			if b == 0 {
				in.Thread.Helpers.IntegerDivisionByZero(in.Thread)
			}
			push(in.Thread.Heap.BoxInt64(euclideanMod(a, b)))
			pc++
		case bytecode.OpBitAndInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.Thread.Heap.BoxInt64(a & b))
			pc++
		case bytecode.OpBitOrInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.Thread.Heap.BoxInt64(a | b))
			pc++
		case bytecode.OpBitXorInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.Thread.Heap.BoxInt64(a ^ b))
			pc++
		case bytecode.OpShlInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			if b < 0 {
				in.Thread.Helpers.ArgumentError(in.Thread, "negative shift count")
			}
			push(in.Thread.Heap.BoxInt64(shl(a, b)))
			pc++
		case bytecode.OpShrInt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			if b < 0 {
				in.Thread.Helpers.ArgumentError(in.Thread, "negative shift count")
			}
			if b > 63 {
				b = 63
			}
			push(in.Thread.Heap.BoxInt64(a >> uint(b)))
			pc++

		case bytecode.OpCompareIntEq:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.boolValue(a == b))
			pc++
		case bytecode.OpCompareIntGt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.boolValue(a > b))
			pc++
		case bytecode.OpCompareIntLt:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.boolValue(a < b))
			pc++
		case bytecode.OpCompareIntGe:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.boolValue(a >= b))
			pc++
		case bytecode.OpCompareIntLe:
			b, a := in.unboxIntOperand(pop()), in.unboxIntOperand(pop())
			push(in.boolValue(a <= b))
			pc++

		case bytecode.OpNegateDouble:
			push(in.Thread.Heap.BoxDouble(-in.unboxDoubleOperand(pop())))
			pc++
		case bytecode.OpAddDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.Thread.Heap.BoxDouble(a + b))
			pc++
		case bytecode.OpSubDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.Thread.Heap.BoxDouble(a - b))
			pc++
		case bytecode.OpMulDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.Thread.Heap.BoxDouble(a * b))
			pc++
		case bytecode.OpDivDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.Thread.Heap.BoxDouble(a / b))
			pc++
		case bytecode.OpCompareEqDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.boolValue(a == b))
			pc++
		case bytecode.OpCompareGtDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.boolValue(a > b))
			pc++
		case bytecode.OpCompareLtDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.boolValue(a < b))
			pc++
		case bytecode.OpCompareGeDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.boolValue(a >= b))
			pc++
		case bytecode.OpCompareLeDouble:
			b, a := in.unboxDoubleOperand(pop()), in.unboxDoubleOperand(pop())
			push(in.boolValue(a <= b))
			pc++

		default:
			panic(fmt.Sprintf("interp: unhandled opcode %s", instr.Op))
		}
	}
}

func (in *Interpreter) unboxIntOperand(v value.Value) int64 {
	n, ok := in.Thread.Heap.UnboxInt64(v)
	if !ok {
		in.Thread.Helpers.ArgumentError(in.Thread, "expected an int")
	}
	return n
}

func (in *Interpreter) unboxDoubleOperand(v value.Value) float64 {
	f, ok := in.Thread.Heap.UnboxDouble(v)
	if !ok {
		in.Thread.Helpers.ArgumentError(in.Thread, "expected a double")
	}
	return f
}

func (in *Interpreter) boolValue(b bool) value.Value {
	if b {
		return in.Thread.Heap.TrueValue()
	}
	return in.Thread.Heap.FalseValue()
}

const minInt64 = int64(-1) << 63

// truncDiv performs C-style truncating division, wrapping to minInt64
// on the one input pair that would otherwise overflow (spec §8's
// wraparound invariant extends to this corner case, matching
// inter.cc's use of an unsigned divide for exactly this reason).
func truncDiv(a, b int64) int64 {
	if a == minInt64 && b == -1 {
		return minInt64
	}
	return a / b
}

// euclideanMod implements Dart's % operator: always non-negative
// (unlike Go's %, which takes the sign of the dividend).
func euclideanMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		if b < 0 {
			m -= b
		} else {
			m += b
		}
	}
	return m
}

func shl(a, shift int64) int64 {
	if shift < 0 {
		return shr(a, -shift)
	}
	if shift >= 64 {
		return 0
	}
	return int64(uint64(a) << uint(shift))
}

func shr(a, shift int64) int64 {
	if shift < 0 {
		return shl(a, -shift)
	}
	if shift >= 64 {
		if a < 0 {
			return -1
		}
		return 0
	}
	return a >> uint(shift)
}

// subtypeShapeFor builds the six-tuple cache key AssertAssignable
// looks up and appends to (spec §4.10). Closures key on their target
// function's identity rather than the shared Closure class id, so two
// closures over different functions never collide on one cache slot;
// their instantiator type arguments (the only extra type-argument
// state this reference Closure carries, runtime.Closure) fill
// InstanceParentFunctionTypeArgs. This reference implementation has no
// separate storage for a closure's delayed-function type arguments, so
// InstanceDelayedFunctionTypeArgs is always the zero value here.
// Non-closure instances with a class-declared type-arguments field key
// on that field's value, so two differently-instantiated generics of
// the same class don't collide either.
func (in *Interpreter) subtypeShapeFor(instance, instantiatorTA, functionTA value.Value) cache.SubtypeShape {
	shape := cache.SubtypeShape{
		InstantiatorTypeArgs: uintptr(instantiatorTA),
		FunctionTypeArgs:     uintptr(functionTA),
	}
	cid := in.Thread.Heap.ClassIDOf(instance)
	if cid == runtime.ClosureClassID {
		shape.InstanceCidOrSignature = runtime.ClosureFunctionHandle(in.Thread.Heap, instance)
		shape.InstanceParentFunctionTypeArgs = uintptr(runtime.ClosureInstantiatorTypeArgs(in.Thread.Heap, instance))
		return shape
	}
	shape.InstanceCidOrSignature = uintptr(cid)
	if cls := in.Thread.Classes.Lookup(cid); cls != nil && cls.TypeArgsFieldOffsetWords >= 0 {
		shape.InstanceTypeArgs = uintptr(in.Thread.Heap.LoadField(instance, cls.TypeArgsFieldOffsetWords))
	}
	return shape
}
