package bind

import (
	"testing"

	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/value"
)

func TestBindPositionalFillsDefaults(t *testing.T) {
	fn := &runtime.ConcreteFunction{NumFixed: 1, NumOptionalPositional: 2}
	argdesc := &runtime.ArgumentsDescriptor{Count: 2, PositionalCount: 2}
	args := []value.Value{value.MakeSmi(1), value.MakeSmi(2)}
	defaults := Defaults{Positional: []value.Value{value.MakeSmi(10), value.MakeSmi(20)}}

	locals, ok := Bind(fn, argdesc, args, defaults)
	if !ok {
		t.Fatalf("Bind should succeed")
	}
	want := []int64{1, 2, 20}
	for i, w := range want {
		if got := locals[i].SmiValue(); got != w {
			t.Fatalf("locals[%d] = %d, want %d", i, got, w)
		}
	}
}

func TestBindPositionalRejectsArityOutsideRange(t *testing.T) {
	fn := &runtime.ConcreteFunction{NumFixed: 2, NumOptionalPositional: 1}
	argdesc := &runtime.ArgumentsDescriptor{Count: 1, PositionalCount: 1}
	_, ok := Bind(fn, argdesc, []value.Value{value.MakeSmi(1)}, Defaults{})
	if ok {
		t.Fatalf("Bind should fail: only 1 arg passed but 2 fixed params required")
	}
}

func TestBindNamedFillsUnsuppliedDefaults(t *testing.T) {
	fn := &runtime.ConcreteFunction{NumFixed: 1, NumOptionalNamed: 2}
	argdesc := &runtime.ArgumentsDescriptor{
		Count:           2,
		PositionalCount: 1,
		Named:           []runtime.NamedArg{{Name: "b", Position: 1}},
	}
	args := []value.Value{value.MakeSmi(1), value.MakeSmi(99)}
	defaults := Defaults{Named: []NamedDefault{
		{Name: "a", Value: value.MakeSmi(111)},
		{Name: "b", Value: value.MakeSmi(222)},
	}}

	locals, ok := Bind(fn, argdesc, args, defaults)
	if !ok {
		t.Fatalf("Bind should succeed")
	}
	if locals[0].SmiValue() != 1 {
		t.Fatalf("fixed param mismatch: %v", locals[0])
	}
	if locals[1].SmiValue() != 111 {
		t.Fatalf("unsupplied named 'a' should take its default, got %v", locals[1])
	}
	if locals[2].SmiValue() != 99 {
		t.Fatalf("supplied named 'b' should take the caller's value, got %v", locals[2])
	}
}

func TestBindNamedRejectsUnknownName(t *testing.T) {
	fn := &runtime.ConcreteFunction{NumFixed: 0, NumOptionalNamed: 1}
	argdesc := &runtime.ArgumentsDescriptor{
		Count:           1,
		PositionalCount: 0,
		Named:           []runtime.NamedArg{{Name: "unknown", Position: 0}},
	}
	defaults := Defaults{Named: []NamedDefault{{Name: "known", Value: value.Null}}}

	_, ok := Bind(fn, argdesc, []value.Value{value.MakeSmi(1)}, defaults)
	if ok {
		t.Fatalf("Bind should fail when argdesc names a parameter fn does not declare")
	}
}
