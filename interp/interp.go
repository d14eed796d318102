// Package interp implements the interpreter CORE (spec §4): the call
// protocol, generic invocation, instance-call dispatch, guarded field
// access, assignability checks, and the per-opcode dispatch loop, all
// built on the external collaborator contracts package runtime
// defines and the reference implementation it provides.
//
// Each interpreted call is a recursive Go function call (runFrame),
// not a single shared stack walked by raw pointer arithmetic: spec §9
// explicitly invites this ("Implementations may define an abstract
// accessor interface rather than replicate exact slot positions"),
// and it lets Go's own panic/recover unwind interpreted frames exactly
// the way a thrown exception unwinds them (package unwind) — no
// separate bookkeeping is needed to skip over frames a handler isn't
// installed in, because Go's runtime already does that for its own
// call stack.
package interp

import (
	"fmt"

	"github.com/pkg/errors"

	"j5.nz/kbcvm/frame"
	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/unwind"
	"j5.nz/kbcvm/value"
)

// Interpreter runs KBC. One Interpreter owns exactly one Thread and
// one frame.Stack; nothing is shared between instances (spec §5: "no
// data sharing between interpreter instances").
type Interpreter struct {
	Thread *runtime.Thread
	frames *frame.Stack
	fp     int

	// CompatClosureCtx, when true, makes an ImplicitClosure synthetic
	// body capture its receiver as the closure's context the way an
	// older bytecode format required (SPEC_FULL.md Open Question:
	// default true, for maximum compatibility with bytecode produced by
	// either convention).
	CompatClosureCtx bool

	// MaxFrameDepth bounds interpreted call depth; OpCheckStack raises
	// StackOverflow once frames.Depth() exceeds it (spec §4.11
	// "CheckStack").
	MaxFrameDepth int

	// StepCount and StackHWM are supplemental diagnostics (SPEC_FULL.md
	// "Supplemented features"), grounded on backend_vm.go's own
	// vm.stepCount/vm.stackHWM fields.
	StepCount int
	StackHWM  int

	// PendingException and PendingStackTrace are the exception special
	// slots spec §3/§4.5 describe: when a throw resumes at a
	// bytecode-declared handler rather than unwinding further, dispatch
	// stores the caught value and its stack trace here before resuming,
	// so the handler's own OpPushException/OpPushStackTrace can
	// materialize them onto the operand stack.
	PendingException  value.Value
	PendingStackTrace value.Value
}

// NewInterpreter builds an interpreter over the given collaborators.
func NewInterpreter(t *runtime.Thread) *Interpreter {
	return &Interpreter{
		Thread:           t,
		frames:           frame.NewStack(),
		fp:               frame.NoCaller,
		CompatClosureCtx: true,
		MaxFrameDepth:    4096,
	}
}

// UnhandledException is returned by Call when a thrown exception
// (either a guest unwind.UserException or a host unwind.RuntimeError)
// reaches the entry frame without being caught anywhere along the way
// (spec §4.4's exit path, §7).
type UnhandledException struct {
	Exception unwind.Exception
}

func (e *UnhandledException) Error() string {
	switch exc := e.Exception.(type) {
	case *unwind.RuntimeError:
		return exc.Message
	case *unwind.UserException:
		return fmt.Sprintf("unhandled exception: value %#x", uint64(exc.Value))
	default:
		return fmt.Sprintf("unhandled exception: %v", exc)
	}
}

// exceptionValues extracts the (exception, stackTrace) pair a
// bytecode handler observes through the exception special slots (spec
// §3, §4.5) from a caught unwind.Exception. A *RuntimeError carries no
// guest stack trace object in this reference implementation (no
// runtime walks frames to build one), so its StackTrace side is
// always value.Null; callers needing the message string read
// RuntimeError.Message directly instead.
func exceptionValues(exc unwind.Exception) (val, stackTrace value.Value) {
	switch e := exc.(type) {
	case *unwind.UserException:
		return e.Value, e.StackTrace
	case *unwind.RuntimeError:
		return e.Value, value.Null
	default:
		return value.Null, value.Null
	}
}

// Call is the entry-frame/exit-frame bridge (spec §4.4): it installs
// the sentinel entry frame, invokes fn, and tears the entry frame down
// whether fn returns normally or an exception unwinds all the way out.
//
// Every interpreted frame gets its own recover point first (dispatch's
// runSegment, spec §4.5): a throw resumes at an in-frame handler if
// one covers it, and only keeps unwinding past a frame that has none.
// So by the time a panic reaches Call's own unwind.Catch here, it is
// genuinely unhandled anywhere in the call chain — this is the "walk
// frames via saved-caller-FP chain... long-jump to that buffer"
// behavior spec §4.5 describes, realized as Go's own call-stack
// unwinding rather than an explicit FP-chain walk.
//
// A *unwind.Fatal (malformed bytecode, not a guest-level throw) comes
// back wrapped by github.com/pkg/errors so a host embedding this
// interpreter can tell "your bytecode is broken" apart from "the guest
// program threw and nothing caught it."
func (in *Interpreter) Call(fn runtime.Function, argdesc *runtime.ArgumentsDescriptor, args []value.Value) (result value.Value, err error) {
	entryFP := in.frames.Push(frame.Frame{SavedPC: frame.EntryFramePC, SavedFP: frame.NoCaller})
	savedFP := in.fp
	in.fp = entryFP
	defer func() {
		in.frames.TruncateTo(entryFP)
		in.fp = savedFP
	}()

	exc, threw := unwind.Catch(func() {
		result = in.enterFunction(fn, argdesc, args)
	})
	if !threw {
		return result, nil
	}
	if fatal, ok := exc.(*unwind.Fatal); ok {
		return value.Null, errors.Wrap(fatal.Err, "kbcvm: fatal interpreter error")
	}
	return value.Null, &UnhandledException{Exception: exc}
}

// Depth reports the interpreter's current frame depth, for tests that
// want to confirm the frame stack unwound to a particular point.
func (in *Interpreter) Depth() int { return in.frames.Depth() }
