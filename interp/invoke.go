package interp

import (
	"j5.nz/kbcvm/cache"
	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/unwind"
	"j5.nz/kbcvm/value"
)

// invokeNative bridges to externally compiled code (spec §4.7
// InvokeCompiled); see runtime.NativeEntryPoint's doc comment for why
// this is a Go closure standing in for machine code this repository
// never produces (no optimizing compiler, spec §1).
//
// The frame stack still records the transition with an exit frame
// (spec §4.4) even though NativeEntryPoint cannot itself call back
// into enterFunction: a stack walk taken while inside native code
// (diagnostics, a future debugger) needs to see that the top frame is
// native, not stale interpreted bytecode state left over from before
// the call.
func (in *Interpreter) invokeNative(fn runtime.Function, argdesc *runtime.ArgumentsDescriptor, args []value.Value) value.Value {
	exitFP := in.frames.Exit(in.fp)
	savedFP := in.fp
	in.fp = exitFP
	defer func() {
		in.frames.Unexit(exitFP)
		in.fp = savedFP
	}()

	result, err := fn.NativeEntry()(in.Thread, argdesc, args)
	if err != nil {
		unwind.Throw(&unwind.Fatal{Err: err})
	}
	return result
}

// invokeSynthetic runs one of the VM-internal bodies the dispatch loop
// executes without decoding bytecode (spec §4.11 "synthetic bodies"):
// implicit getters/setters, the implicit static getter, the method
// extractor, the invoke-field and dynamic-invocation forwarders, the
// implicit-closure constructor, and the no-such-method dispatcher.
func (in *Interpreter) invokeSynthetic(fn runtime.Function, kind runtime.FunctionKind, argdesc *runtime.ArgumentsDescriptor, args []value.Value) value.Value {
	switch kind {
	case runtime.KindImplicitGetter:
		f := fn.Data().(*runtime.Field)
		receiver := args[0]
		v := in.Thread.Heap.LoadField(receiver, f.Offset)
		if v == value.Uninitialized {
			return in.Thread.Helpers.InitInstanceField(in.Thread, receiver, f)
		}
		return v

	case runtime.KindImplicitSetter:
		f := fn.Data().(*runtime.Field)
		in.storeFieldGuarded(args[0], f, args[1])
		return value.Null

	case runtime.KindImplicitStaticGetter:
		f := fn.Data().(*runtime.Field)
		return in.Thread.Helpers.InitStaticField(in.Thread, f)

	case runtime.KindMethodExtractor:
		target := fn.Data().(runtime.Function)
		return runtime.MakeClosure(in.Thread.Heap, target, args[0])

	case runtime.KindInvokeFieldDispatcher, runtime.KindDynamicInvocationForwarder:
		target := fn.Data().(runtime.Function)
		return in.enterFunction(target, argdesc, args)

	case runtime.KindImplicitClosure:
		target := fn.Data().(runtime.Function)
		ctx := value.Null
		if in.CompatClosureCtx && len(args) > 0 {
			ctx = args[0]
		}
		return runtime.MakeClosure(in.Thread.Heap, target, ctx)

	case runtime.KindNoSuchMethodDispatcher:
		var receiver value.Value
		if len(args) > 0 {
			receiver = args[0]
		}
		return in.Thread.Helpers.InvokeNoSuchMethod(in.Thread, receiver, fn.Name(), argdesc, args)

	default:
		panic("interp: unhandled synthetic function kind")
	}
}

// storeFieldGuarded implements the guarded field store (spec §4.9):
// a store that observes a class id the field's guard didn't predict
// asks the runtime to widen (or drop) the guard before the store
// itself proceeds.
func (in *Interpreter) storeFieldGuarded(receiver value.Value, f *runtime.Field, v value.Value) {
	if f.GuardedClassID != value.IllegalClassID {
		cid := in.Thread.Heap.ClassIDOf(v)
		if f.GuardedClassID != cid {
			in.Thread.Helpers.UpdateFieldCid(in.Thread, f, v)
		}
	}
	in.Thread.Heap.StoreField(receiver, f.Offset, v)
}

// instanceCall implements instance-call dispatch through the lookup
// cache (spec §4.3, §4.8): a hit calls the cached target directly; a
// miss asks the runtime to resolve the selector against the
// receiver's class, installs the result in the cache for next time,
// and falls back to noSuchMethod if resolution comes back empty.
func (in *Interpreter) instanceCall(site *InstanceCallSite, args []value.Value) value.Value {
	receiver := args[0]
	cid := in.Thread.Heap.ClassIDOf(receiver)
	key := cache.Key{
		ReceiverClassID: cid,
		Selector:        runtime.InternSelector(site.Selector),
		ArgDesc:         site.ArgDesc.Identity(),
	}

	if handle, ok := site.Cache.Lookup(key); ok {
		fn := runtime.LookupFunctionHandle(handle)
		return in.enterFunction(fn, site.ArgDesc, args)
	}

	fn := in.Thread.Helpers.InstanceCallMissHandler(in.Thread, receiver, site.Selector, site.ArgDesc)
	if fn == nil {
		return in.Thread.Helpers.InvokeNoSuchMethod(in.Thread, receiver, site.Selector, site.ArgDesc, args)
	}
	site.Cache.Insert(key, runtime.RegisterFunctionHandle(fn))
	return in.enterFunction(fn, site.ArgDesc, args)
}

// closureCall implements the closure-call branch of the generic-call
// protocol (spec §4.7): resolve the closure's target function, check
// the call's shape against it, and invoke.
func (in *Interpreter) closureCall(argdesc *runtime.ArgumentsDescriptor, args []value.Value) value.Value {
	closure := args[0]
	fn := in.Thread.Helpers.ResolveCallFunction(in.Thread, closure)
	if !in.Thread.Helpers.ClosureArgumentsValid(in.Thread, closure, argdesc) {
		return in.Thread.Helpers.InvokeNoSuchMethod(in.Thread, closure, fn.Name(), argdesc, args)
	}
	return in.enterFunction(fn, argdesc, args)
}
