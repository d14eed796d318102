// Package bind implements the parameter binding algorithm (spec §4.6):
// placing a call's actual arguments, shaped by an ArgumentsDescriptor,
// into a function's locals according to its fixed/optional-positional/
// optional-named parameter shape, or reporting that the shapes do not
// match at all (the caller then falls back to noSuchMethod, spec
// §4.6, §4.8).
package bind

import (
	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/value"
)

// NamedDefault pairs a declared optional-named parameter with its
// default value.
type NamedDefault struct {
	Name  string
	Value value.Value
}

// Defaults carries a function's optional-parameter default values,
// already resolved out of its constant pool (bytecode.OptionalDefaults)
// by the caller, since only the caller knows where in the bytecode
// stream the defaults are encoded.
type Defaults struct {
	Positional []value.Value // one per optional positional parameter, declaration order
	Named      []NamedDefault
}

// Bind places argdesc/args into a locals slice sized to fn's full
// parameter count (fixed + optional). ok is false when the call's
// shape cannot be reconciled with fn's declared shape at all: a fixed
// arity mismatch, a positional count outside fn's
// [numFixed, numFixed+numOptPositional] range, or a named argument
// argdesc names that fn does not declare as an optional-named
// parameter (spec §4.6 edge cases).
func Bind(fn runtime.Function, argdesc *runtime.ArgumentsDescriptor, args []value.Value, defaults Defaults) (locals []value.Value, ok bool) {
	numFixed := fn.NumFixedParams()
	numOptNamed := fn.NumOptionalNamedParams()

	if numOptNamed > 0 {
		return bindNamed(numFixed, numOptNamed, argdesc, args, defaults)
	}
	return bindPositional(numFixed, fn.NumOptionalPositionalParams(), argdesc, args, defaults)
}

func bindPositional(numFixed, numOptPos int, argdesc *runtime.ArgumentsDescriptor, args []value.Value, defaults Defaults) ([]value.Value, bool) {
	if len(argdesc.Named) > 0 {
		return nil, false
	}
	passed := argdesc.PositionalCount
	if passed < numFixed || passed > numFixed+numOptPos {
		return nil, false
	}
	locals := make([]value.Value, numFixed+numOptPos)
	for i := 0; i < passed; i++ {
		locals[i] = args[i]
	}
	for i := passed; i < numFixed+numOptPos; i++ {
		locals[i] = defaults.Positional[i-numFixed]
	}
	return locals, true
}

func bindNamed(numFixed, numOptNamed int, argdesc *runtime.ArgumentsDescriptor, args []value.Value, defaults Defaults) ([]value.Value, bool) {
	if argdesc.PositionalCount != numFixed {
		return nil, false
	}
	locals := make([]value.Value, numFixed+numOptNamed)
	for i := 0; i < numFixed; i++ {
		locals[i] = args[i]
	}

	supplied := make([]bool, numOptNamed)
	for _, na := range argdesc.Named {
		slot := -1
		for i, d := range defaults.Named {
			if d.Name == na.Name {
				slot = i
				break
			}
		}
		if slot == -1 {
			// argdesc names a parameter fn does not declare.
			return nil, false
		}
		locals[numFixed+slot] = args[na.Position]
		supplied[slot] = true
	}
	for i, d := range defaults.Named {
		if !supplied[i] {
			locals[numFixed+i] = d.Value
		}
	}
	return locals, true
}
