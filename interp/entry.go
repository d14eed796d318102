package interp

import (
	"j5.nz/kbcvm/bind"
	"j5.nz/kbcvm/bytecode"
	"j5.nz/kbcvm/frame"
	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/value"
)

// enterFunction is the generic-call protocol (spec §4.7): dispatch to
// a native entry point, a hand-written synthetic body, or decoded
// bytecode, asking the runtime to compile on demand and re-fetching
// afterward the way the dispatch loop re-fetches heap pointers after
// any call that may relocate the heap.
func (in *Interpreter) enterFunction(fn runtime.Function, argdesc *runtime.ArgumentsDescriptor, args []value.Value) value.Value {
	if fn.HasNativeCode() {
		return in.invokeNative(fn, argdesc, args)
	}
	if kind := fn.Kind(); kind != runtime.KindRegular {
		return in.invokeSynthetic(fn, kind, argdesc, args)
	}
	if !fn.HasBytecode() {
		compiled := in.Thread.Helpers.CompileFunction(in.Thread, fn)
		return in.enterFunction(compiled, argdesc, args)
	}

	bc := fn.Bytecode()
	locals, startPC, ok := in.bindEntry(fn, bc, argdesc, args)
	if !ok {
		return in.Thread.Helpers.NoSuchMethodFromPrologue(in.Thread, fn, argdesc, args)
	}
	return in.runFrame(fn, bc, locals, len(args), startPC)
}

// bindEntry reads bc's entry instruction (OpEntry/OpEntryFixed/
// OpEntryOptional, spec §4.6, §4.11 "Entry family") and an optional
// following OpFrame, producing the function's initial locals array and
// the PC its body starts executing at. ok is false when argdesc's
// shape cannot be reconciled with fn's declared parameters at all.
func (in *Interpreter) bindEntry(fn runtime.Function, bc *bytecode.Bytecode, argdesc *runtime.ArgumentsDescriptor, args []value.Value) (locals []value.Value, startPC int, ok bool) {
	entry := bc.Instrs[0]
	var pc int
	var bound []value.Value

	switch entry.Op {
	case bytecode.OpEntry:
		total := int(entry.D())
		bound = make([]value.Value, total)
		copy(bound, args)
		for i := len(args); i < total; i++ {
			bound[i] = value.Null
		}
		pc = 1

	case bytecode.OpEntryFixed:
		if argdesc.PositionalCount != fn.NumFixedParams() || len(argdesc.Named) != 0 {
			return nil, 0, false
		}
		bound = append([]value.Value(nil), args...)
		pc = 1

	case bytecode.OpEntryOptional:
		numOptPos := int(entry.A())
		numOptNamed := int(entry.B())

		var defaults bind.Defaults
		if numOptNamed > 0 {
			raw := bc.OptionalDefaults(1, 1)[0]
			defaults.Named = raw.([]bind.NamedDefault)
			pc = 2
		} else {
			raw := bc.OptionalDefaults(1, numOptPos)
			defaults.Positional = make([]value.Value, numOptPos)
			for i, v := range raw {
				defaults.Positional[i] = v.(value.Value)
			}
			pc = 1 + numOptPos
		}

		var boundOK bool
		bound, boundOK = bind.Bind(fn, argdesc, args, defaults)
		if !boundOK {
			return nil, 0, false
		}

	default:
		panic("interp: function body is missing its entry instruction")
	}

	bound, pc = in.consumeFrameInstruction(bc, pc, bound)
	return bound, pc, true
}

// consumeFrameInstruction extends locals with the extra, null-
// initialized temporary slots an OpFrame instruction reserves (spec
// §4.11 "Frame"), if the entry sequence is followed by one.
func (in *Interpreter) consumeFrameInstruction(bc *bytecode.Bytecode, pc int, locals []value.Value) ([]value.Value, int) {
	if pc >= len(bc.Instrs) || bc.Instrs[pc].Op != bytecode.OpFrame {
		return locals, pc
	}
	extra := int(bc.Instrs[pc].D())
	extended := make([]value.Value, len(locals)+extra)
	copy(extended, locals)
	for i := len(locals); i < len(extended); i++ {
		extended[i] = value.Null
	}
	return extended, pc + 1
}

// runFrame installs a frame and runs its bytecode body to completion.
// If dispatch panics (an unwind.Throw, or a genuine Go bug), the
// deferred cleanup still restores in.fp and truncates the frame stack
// as the panic propagates past this call — Go guarantees deferred
// functions run during an unwinding panic, which is exactly the
// "restore SP/FP while skipping frames with no handler" behavior spec
// §4.4 describes.
func (in *Interpreter) runFrame(fn runtime.Function, bc *bytecode.Bytecode, locals []value.Value, numArgs int, startPC int) value.Value {
	fp := in.frames.Push(frame.Frame{Function: fn, Bytecode: bc, SavedFP: in.fp, NumArgs: numArgs})
	savedFP := in.fp
	in.fp = fp
	if d := in.frames.Depth(); d > in.StackHWM {
		in.StackHWM = d
	}
	defer func() {
		in.frames.TruncateTo(fp)
		in.fp = savedFP
	}()
	return in.dispatch(bc, locals, startPC)
}
