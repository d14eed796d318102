package runtime

import (
	"j5.nz/kbcvm/heap"
	"j5.nz/kbcvm/value"
)

// RefHeap is the reference implementation of Heap: one arena, owned
// entirely by this package, the way backend_vm.go's VM owns its flat
// memory rather than delegating to a mock. TryBumpAllocate is the
// inline fast path (spec §4.2); every other allocating method is the
// "runtime allocator helper" slow path, which in this reference
// implementation never fails (heap.BumpAllocator.GrowAndAllocate grows
// rather than returning failure — a real GC's job, out of scope per
// §1).
type RefHeap struct {
	arena *heap.BumpAllocator

	trueAddr  value.Value
	falseAddr value.Value
}

// NewRefHeap builds a reference heap with a fast-path arena of
// fastPathBytes before the slow path must grow it. A small value
// (e.g. a few hundred bytes) is useful in tests that want to exercise
// TryBumpAllocate's failure branch deliberately.
func NewRefHeap(fastPathBytes int) *RefHeap {
	h := &RefHeap{arena: heap.NewBumpAllocator(8, fastPathBytes)}
	h.trueAddr = value.Value(h.arena.GrowAndAllocate(BoolClassID, 0))
	h.falseAddr = value.Value(h.arena.GrowAndAllocate(BoolClassID, 0))
	return h
}

var _ Heap = (*RefHeap)(nil)

func (h *RefHeap) ClassIDOf(v value.Value) value.ClassID {
	if v.IsSmi() {
		return value.SmallIntClassID
	}
	if v == value.Null {
		panic("runtime: ClassIDOf(null)")
	}
	return h.arena.ReadHeader(uintptr(v)).ClassID
}

func (h *RefHeap) AllocateObject(cls *Class) value.Value {
	addr := h.arena.GrowAndAllocate(cls.ID, cls.InstanceSizeWords)
	for i := int32(0); i < cls.InstanceSizeWords; i++ {
		h.arena.WriteWord(addr+heap.HeaderSize+uintptr(i)*8, uint64(value.Uninitialized))
	}
	return value.Value(addr)
}

func (h *RefHeap) AllocateArray(length int) value.Value {
	addr := h.arena.GrowAndAllocate(ArrayClassID, int32(length))
	for i := 0; i < length; i++ {
		h.arena.WriteWord(addr+heap.HeaderSize+uintptr(i)*8, uint64(value.Null))
	}
	return value.Value(addr)
}

func (h *RefHeap) AllocateContext(numVars int) value.Value {
	addr := h.arena.GrowAndAllocate(ContextClassID, int32(numVars))
	for i := 0; i < numVars; i++ {
		h.arena.WriteWord(addr+heap.HeaderSize+uintptr(i)*8, uint64(value.Null))
	}
	return value.Value(addr)
}

func (h *RefHeap) CloneContext(ctx value.Value) value.Value {
	hdr := h.arena.ReadHeader(uintptr(ctx))
	addr := h.arena.GrowAndAllocate(ContextClassID, hdr.SizeWords)
	for i := int32(0); i < hdr.SizeWords; i++ {
		w := h.arena.ReadWord(uintptr(ctx) + heap.HeaderSize + uintptr(i)*8)
		h.arena.WriteWord(addr+heap.HeaderSize+uintptr(i)*8, w)
	}
	return value.Value(addr)
}

func (h *RefHeap) fieldAddr(obj value.Value, wordOffset int) uintptr {
	return uintptr(obj) + heap.HeaderSize + uintptr(wordOffset)*8
}

func (h *RefHeap) LoadField(obj value.Value, wordOffset int) value.Value {
	return value.Value(h.arena.ReadWord(h.fieldAddr(obj, wordOffset)))
}

// StoreField stores v into obj's field and runs the write barrier:
// if obj is old and v is a new heap pointer, obj is marked remembered
// (spec §5, §8 "any old-to-new pointer causes the containing object to
// be marked remembered").
func (h *RefHeap) StoreField(obj value.Value, wordOffset int, v value.Value) {
	h.arena.WriteWord(h.fieldAddr(obj, wordOffset), uint64(v))
	h.writeBarrier(obj, v)
}

func (h *RefHeap) writeBarrier(container value.Value, v value.Value) {
	if v == value.Null || v.IsSmi() {
		return
	}
	containerHdr := h.arena.ReadHeader(uintptr(container))
	if containerHdr.Young {
		return
	}
	valueHdr := h.arena.ReadHeader(uintptr(v))
	if valueHdr.Young {
		h.arena.SetRemembered(uintptr(container), true)
	}
}

func (h *RefHeap) LoadElement(arr value.Value, index int) value.Value {
	return h.LoadField(arr, index)
}

func (h *RefHeap) StoreElement(arr value.Value, index int, v value.Value) {
	h.StoreField(arr, index, v)
}

func (h *RefHeap) ArrayLength(arr value.Value) int {
	return int(h.arena.ReadHeader(uintptr(arr)).SizeWords)
}

func (h *RefHeap) BoxInt64(n int64) value.Value {
	if value.FitsSmi(n) {
		return value.MakeSmi(n)
	}
	addr := h.arena.GrowAndAllocate(MintClassID, 1)
	h.arena.WriteWord(addr+heap.HeaderSize, uint64(n))
	return value.Value(addr)
}

func (h *RefHeap) UnboxInt64(v value.Value) (int64, bool) {
	if v.IsSmi() {
		return v.SmiValue(), true
	}
	if v == value.Null {
		return 0, false
	}
	if h.arena.ReadHeader(uintptr(v)).ClassID != MintClassID {
		return 0, false
	}
	return int64(h.arena.ReadWord(uintptr(v) + heap.HeaderSize)), true
}

func (h *RefHeap) BoxDouble(f float64) value.Value {
	addr := h.arena.GrowAndAllocate(DoubleClassID, 1)
	h.arena.WriteWord(addr+heap.HeaderSize, value.DoubleToBits(f))
	return value.Value(addr)
}

func (h *RefHeap) UnboxDouble(v value.Value) (float64, bool) {
	if v == value.Null || v.IsSmi() {
		return 0, false
	}
	if h.arena.ReadHeader(uintptr(v)).ClassID != DoubleClassID {
		return 0, false
	}
	return value.DoubleBits(h.arena.ReadWord(uintptr(v) + heap.HeaderSize)), true
}

func (h *RefHeap) IsNull(v value.Value) bool { return v == value.Null }

func (h *RefHeap) TrueValue() value.Value  { return h.trueAddr }
func (h *RefHeap) FalseValue() value.Value { return h.falseAddr }

func (h *RefHeap) IsTrue(v value.Value) bool { return v == h.trueAddr }

// TryBumpAllocate is the inline allocation fast path the dispatch
// loop's Allocate/AllocateT/CreateArrayTOS/AllocateContext/
// AllocateClosure opcodes try first (spec §4.2, §4.11).
func (h *RefHeap) TryBumpAllocate(cid value.ClassID, sizeWords int32) (value.Value, bool) {
	addr, ok := h.arena.TryAllocate(cid, sizeWords)
	if !ok {
		return 0, false
	}
	for i := int32(0); i < sizeWords; i++ {
		h.arena.WriteWord(addr+heap.HeaderSize+uintptr(i)*8, uint64(value.Null))
	}
	return value.Value(addr), true
}

// PromoteOld marks v's header as old-generation (spec §4.3, §9
// young-generation cache key precondition). The interpreter's
// instance-call path does not call it: its LookupCache keys are
// interned handles (intern.go, RegisterFunctionHandle), not heap
// addresses.
func (h *RefHeap) PromoteOld(v value.Value) {
	if v == value.Null || v.IsSmi() {
		return
	}
	h.arena.SetYoung(uintptr(v), false)
}
