package bytecode

// Pool is the per-function constant pool (spec §3 "PP"): a flat array
// of tagged constants indexed by instruction operands. Entries are
// heterogeneous — types, names, closures, functions, classes, subtype
// test caches, field handles, integers, strings — so this package
// stores them as `any` and leaves interpreting a given slot's kind to
// whichever package defined that kind (interp, runtime), avoiding an
// import cycle back from bytecode into runtime.
type Pool struct {
	entries []any
}

// NewPool builds a pool from a fixed set of entries, mirroring how an
// AOT frontend would hand the interpreter a finished constant array.
func NewPool(entries ...any) *Pool {
	return &Pool{entries: entries}
}

// At returns the constant at index i.
func (p *Pool) At(i int32) any {
	return p.entries[i]
}

// Len reports the number of entries.
func (p *Pool) Len() int { return len(p.entries) }

// Append adds a new constant and returns its index, used by the
// instantiate-type-arguments cache slot and similar self-extending
// pool entries.
func (p *Pool) Append(v any) int32 {
	p.entries = append(p.entries, v)
	return int32(len(p.entries) - 1)
}
