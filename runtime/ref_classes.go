package runtime

import "j5.nz/kbcvm/value"

// RefClassTable is a reference ClassTable backed by a plain map, the
// way backend_vm.go keeps its whole module's type table in one
// map[string]*IRType rather than a generated lookup structure.
type RefClassTable struct {
	classes map[value.ClassID]*Class
}

var _ ClassTable = (*RefClassTable)(nil)

// NewRefClassTable builds a class table preloaded with the fixed
// classes RefHeap relies on structurally (Bool, Mint, Double, Array,
// Context, Closure), so callers only need to Register their own
// user-defined classes.
func NewRefClassTable() *RefClassTable {
	t := &RefClassTable{classes: make(map[value.ClassID]*Class)}
	t.Register(&Class{ID: BoolClassID, Name: "bool", AllocateFinalized: true, InstanceSizeWords: 0, TypeArgsFieldOffsetWords: -1})
	t.Register(&Class{ID: MintClassID, Name: "_Mint", AllocateFinalized: true, InstanceSizeWords: 1, TypeArgsFieldOffsetWords: -1})
	t.Register(&Class{ID: DoubleClassID, Name: "double", AllocateFinalized: true, InstanceSizeWords: 1, TypeArgsFieldOffsetWords: -1})
	t.Register(&Class{ID: ArrayClassID, Name: "_List", AllocateFinalized: true, TypeArgsFieldOffsetWords: -1})
	t.Register(&Class{ID: ContextClassID, Name: "_Context", AllocateFinalized: true, TypeArgsFieldOffsetWords: -1})
	t.Register(&Class{ID: ClosureClassID, Name: "_Closure", AllocateFinalized: true, InstanceSizeWords: 3, TypeArgsFieldOffsetWords: -1})
	return t
}

// Register adds or replaces a class's metadata.
func (t *RefClassTable) Register(cls *Class) { t.classes[cls.ID] = cls }

func (t *RefClassTable) Lookup(cid value.ClassID) *Class {
	cls, ok := t.classes[cid]
	if !ok {
		panic("runtime: unknown class id")
	}
	return cls
}
