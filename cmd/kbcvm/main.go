// Command kbcvm is a small driver over the interpreter CORE: it
// assembles a recursive Fibonacci function directly out of
// bytecode.Instruction values (standing in for a frontend this
// repository does not implement, spec §1) and runs it through
// interp.Interpreter, the way tools/build.go is a small standalone
// driver over that repository's own core packages rather than a test.
package main

import (
	"fmt"
	"os"

	"j5.nz/kbcvm/bytecode"
	"j5.nz/kbcvm/interp"
	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/value"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-n <int>]\n\nRuns a recursive KBC Fibonacci function and prints fib(n).\n\nOptions:\n  -n <int>    Argument to fib (default 10)\n  -h, --help  Show this help message\n", os.Args[0])
}

func main() {
	n := int64(10)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "-n requires an argument\n")
				os.Exit(1)
			}
			i++
			var parsed int64
			if _, err := fmt.Sscanf(args[i], "%d", &parsed); err != nil {
				fmt.Fprintf(os.Stderr, "invalid -n argument %q: %v\n", args[i], err)
				os.Exit(1)
			}
			n = parsed
		case "-h", "--help":
			usage()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "unknown option: %s\n", args[i])
			usage()
			os.Exit(1)
		}
	}

	fn, argdesc := buildFib()

	thread := &runtime.Thread{
		Heap:    runtime.NewRefHeap(64 << 10),
		Classes: runtime.NewRefClassTable(),
		Helpers: &runtime.RefHelpers{},
	}
	vm := interp.NewInterpreter(thread)

	result, err := vm.Call(fn, argdesc, []value.Value{value.MakeSmi(n)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	got, ok := thread.Heap.UnboxInt64(result)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: fib returned a non-integer value\n")
		os.Exit(1)
	}
	fmt.Printf("fib(%d) = %d\n", n, got)
}

// buildFib assembles:
//
//	fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }
//
// directly as bytecode.Instruction values and a constant pool, the
// shape any KBC-emitting frontend would hand the interpreter (spec
// §4.11's "notable opcodes" list covers every opcode used here).
func buildFib() (runtime.Function, *runtime.ArgumentsDescriptor) {
	argdesc := &runtime.ArgumentsDescriptor{Count: 1, PositionalCount: 1}

	site := &interp.DirectCallSite{ArgDesc: argdesc}
	pool := bytecode.NewPool(
		value.MakeSmi(2), // 0: literal 2
		value.MakeSmi(1), // 1: literal 1
		site,             // 2: fib's own call site (patched below)
	)

	instrs := []bytecode.Instruction{
		bytecode.Make1(bytecode.OpEntryFixed, 1), // 0
		bytecode.Make1(bytecode.OpLoadLocal, 0),  // 1: push n
		bytecode.Make1(bytecode.OpPushConstant, 0), // 2: push 2
		bytecode.Make0(bytecode.OpCompareIntLt),    // 3: n < 2
		bytecode.Make1(bytecode.OpJumpIfFalse, 3),  // 4: -> 7 if false
		bytecode.Make1(bytecode.OpLoadLocal, 0),    // 5: push n
		bytecode.Make0(bytecode.OpReturnTOS),       // 6
		bytecode.Make1(bytecode.OpLoadLocal, 0),    // 7: push n
		bytecode.Make1(bytecode.OpPushConstant, 1), // 8: push 1
		bytecode.Make0(bytecode.OpSubInt),          // 9: n - 1
		bytecode.Make2(bytecode.OpDirectCall, 1, 2), // 10: fib(n-1)
		bytecode.Make1(bytecode.OpLoadLocal, 0),     // 11: push n
		bytecode.Make1(bytecode.OpPushConstant, 0),  // 12: push 2
		bytecode.Make0(bytecode.OpSubInt),           // 13: n - 2
		bytecode.Make2(bytecode.OpDirectCall, 1, 2), // 14: fib(n-2)
		bytecode.Make0(bytecode.OpAddInt),           // 15: sum
		bytecode.Make0(bytecode.OpReturnTOS),        // 16
	}

	bc := &bytecode.Bytecode{Instrs: instrs, Pool: pool}
	fn := runtime.NewBytecodeFunction("fib", bc, 1, 0, 0)
	site.Target = fn
	return fn, argdesc
}
