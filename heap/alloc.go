// Package heap implements the thread-local bump allocator fast path
// (spec §4.2) used by the dispatch loop's inline allocation opcodes
// (Allocate, AllocateT, CreateArrayTOS, AllocateContext, AllocateClosure).
//
// This mirrors backend_vm.go's VM.alloc/ensureMemory: a flat byte region
// with a bump pointer, grown on demand, with per-tag accounting behind a
// debug flag. Unlike the teacher's VM (which owns a whole language
// runtime's memory), this allocator only owns the interpreter's inline
// allocation arena; the question of when it is safe to grow it (i.e.
// when the real GC would run a scavenge) belongs to the external heap
// (spec §1 OUT OF SCOPE) — see runtime.RefHeap for how TryAllocate's
// fast path and a slow path that always succeeds are composed.
package heap

import "j5.nz/kbcvm/value"

// HeaderSize is the fixed number of bytes every object's header
// occupies, ahead of its payload words (spec §3: "Heap objects begin
// with a header word containing class-id and size bits").
const HeaderSize = 8

// ObjectHeader is the header word every heap object begins with
// (spec §3): a class-id and a size, plus generational bits.
type ObjectHeader struct {
	ClassID    value.ClassID
	SizeWords  int32
	Young      bool
	Marked     bool
	Remembered bool
}

// BumpAllocator is a single thread's allocation arena: [Top, End) is
// free space. It is not safe for concurrent use; each interpreter
// instance owns exactly one (spec §5: "no data sharing between
// interpreter instances").
type BumpAllocator struct {
	Top uintptr
	End uintptr

	region []byte
	base   uintptr
}

// NewBumpAllocator creates an arena of the given size in bytes,
// starting at address base. base must be nonzero: address zero is
// reserved to mean "no object" (value.Null).
func NewBumpAllocator(base uintptr, size int) *BumpAllocator {
	if base == 0 {
		panic("heap: bump allocator base must be nonzero")
	}
	return &BumpAllocator{
		Top:    base,
		End:    base + uintptr(size),
		region: make([]byte, size),
		base:   base,
	}
}

// TryAllocate is the inline fast path: advance the bump pointer if the
// arena has room, writing a header that marks the object
// young/unmarked/unremembered. On failure it returns false and the
// caller must fall back to a runtime allocation helper that may
// trigger GC (spec §4.2).
func (a *BumpAllocator) TryAllocate(classID value.ClassID, sizeWords int32) (addr uintptr, ok bool) {
	size := uintptr(HeaderSize) + uintptr(sizeWords)*8
	if a.End-a.Top < size {
		return 0, false
	}
	addr = a.Top
	a.Top += size
	a.writeHeader(addr, ObjectHeader{ClassID: classID, SizeWords: sizeWords, Young: true})
	return addr, true
}

// GrowAndAllocate is the slow path a runtime allocation helper takes
// when TryAllocate's inline fast path fails: it grows the arena (the
// stand-in for "the real GC either scavenges or expands the heap",
// both out of scope per §1) and always succeeds, mirroring
// backend_vm.go's ensureMemory, which doubles the backing slice rather
// than ever failing an allocation.
func (a *BumpAllocator) GrowAndAllocate(classID value.ClassID, sizeWords int32) uintptr {
	size := uintptr(HeaderSize) + uintptr(sizeWords)*8
	if a.End-a.Top < size {
		needed := int(a.Top-a.base) + int(size)
		a.ensureCapacity(needed)
	}
	addr, ok := a.TryAllocate(classID, sizeWords)
	if !ok {
		panic("heap: GrowAndAllocate failed to make room after growing")
	}
	return addr
}

func (a *BumpAllocator) ensureCapacity(needed int) {
	if needed <= len(a.region) {
		return
	}
	newSize := len(a.region) * 2
	if newSize < needed {
		newSize = needed + 64*1024
	}
	grown := make([]byte, newSize)
	copy(grown, a.region)
	a.region = grown
	a.End = a.base + uintptr(newSize)
}

// Reset rewinds the bump pointer to the start of the arena. Used by
// the reference runtime to emulate a scavenge for tests that need to
// observe GC-safepoint discipline without a real collector.
func (a *BumpAllocator) Reset() {
	a.Top = a.base
}

func (a *BumpAllocator) offset(addr uintptr) uintptr {
	return addr - a.base
}

func (a *BumpAllocator) writeHeader(addr uintptr, h ObjectHeader) {
	off := a.offset(addr)
	a.region[off] = byte(h.ClassID)
	a.region[off+1] = byte(h.ClassID >> 8)
	a.region[off+2] = byte(h.SizeWords)
	a.region[off+3] = byte(h.SizeWords >> 8)
	var bits byte
	if h.Young {
		bits |= 1
	}
	if h.Marked {
		bits |= 2
	}
	if h.Remembered {
		bits |= 4
	}
	a.region[off+4] = bits
}

// ReadHeader reads back the header written by TryAllocate.
func (a *BumpAllocator) ReadHeader(addr uintptr) ObjectHeader {
	off := a.offset(addr)
	cid := value.ClassID(uint16(a.region[off]) | uint16(a.region[off+1])<<8)
	size := int32(uint16(a.region[off+2]) | uint16(a.region[off+3])<<8)
	bits := a.region[off+4]
	return ObjectHeader{
		ClassID:    cid,
		SizeWords:  size,
		Young:      bits&1 != 0,
		Marked:     bits&2 != 0,
		Remembered: bits&4 != 0,
	}
}

// SetRemembered flips an object's remembered-set bit, used when a
// write barrier records an old-to-new pointer store (spec §5, §8).
func (a *BumpAllocator) SetRemembered(addr uintptr, remembered bool) {
	h := a.ReadHeader(addr)
	h.Remembered = remembered
	a.writeHeader(addr, h)
}

// SetYoung flips an object's generation bit, used by the reference
// heap's PromoteOld to mark an object old-generation (spec §9
// young-generation cache key precondition).
func (a *BumpAllocator) SetYoung(addr uintptr, young bool) {
	h := a.ReadHeader(addr)
	h.Young = young
	a.writeHeader(addr, h)
}

// ReadWord reads the 8-byte payload word at addr (header-exclusive
// absolute address, i.e. obj+HeaderSize+8*index).
func (a *BumpAllocator) ReadWord(addr uintptr) uint64 {
	off := a.offset(addr)
	b := a.region[off : off+8]
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// WriteWord writes an 8-byte payload word at addr.
func (a *BumpAllocator) WriteWord(addr uintptr, v uint64) {
	off := a.offset(addr)
	b := a.region[off : off+8]
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}

// Base returns the lowest valid address in this arena.
func (a *BumpAllocator) Base() uintptr { return a.base }

// Contains reports whether addr was handed out by this arena.
func (a *BumpAllocator) Contains(addr uintptr) bool {
	return addr >= a.base && addr < a.Top
}
