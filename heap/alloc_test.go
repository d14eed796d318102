package heap

import (
	"testing"

	"j5.nz/kbcvm/value"
)

func TestTryAllocateWritesHeader(t *testing.T) {
	a := NewBumpAllocator(8, 256)
	addr, ok := a.TryAllocate(value.ClassID(42), 3)
	if !ok {
		t.Fatalf("TryAllocate failed in a fresh arena")
	}
	hdr := a.ReadHeader(addr)
	if hdr.ClassID != 42 || hdr.SizeWords != 3 || !hdr.Young {
		t.Fatalf("unexpected header: %+v", hdr)
	}
}

func TestTryAllocateFailsWhenFull(t *testing.T) {
	a := NewBumpAllocator(8, 16)
	if _, ok := a.TryAllocate(value.ClassID(1), 100); ok {
		t.Fatalf("TryAllocate should fail when the request exceeds the arena")
	}
}

func TestGrowAndAllocateAlwaysSucceeds(t *testing.T) {
	a := NewBumpAllocator(8, 16)
	addr := a.GrowAndAllocate(value.ClassID(1), 100)
	hdr := a.ReadHeader(addr)
	if hdr.SizeWords != 100 {
		t.Fatalf("GrowAndAllocate did not grow the arena: %+v", hdr)
	}
}

func TestReadWriteWordRoundTrip(t *testing.T) {
	a := NewBumpAllocator(8, 256)
	addr, _ := a.TryAllocate(value.ClassID(1), 2)
	a.WriteWord(addr+HeaderSize, 0xdeadbeef)
	a.WriteWord(addr+HeaderSize+8, 12345)
	if got := a.ReadWord(addr + HeaderSize); got != 0xdeadbeef {
		t.Fatalf("ReadWord(0) = %x", got)
	}
	if got := a.ReadWord(addr + HeaderSize + 8); got != 12345 {
		t.Fatalf("ReadWord(1) = %d", got)
	}
}

func TestSetRememberedAndSetYoung(t *testing.T) {
	a := NewBumpAllocator(8, 64)
	addr, _ := a.TryAllocate(value.ClassID(1), 0)

	a.SetRemembered(addr, true)
	if !a.ReadHeader(addr).Remembered {
		t.Fatalf("SetRemembered(true) did not stick")
	}
	a.SetRemembered(addr, false)
	if a.ReadHeader(addr).Remembered {
		t.Fatalf("SetRemembered(false) did not stick")
	}

	a.SetYoung(addr, false)
	if a.ReadHeader(addr).Young {
		t.Fatalf("SetYoung(false) did not stick")
	}
	a.SetYoung(addr, true)
	if !a.ReadHeader(addr).Young {
		t.Fatalf("SetYoung(true) did not stick")
	}
}

func TestContains(t *testing.T) {
	a := NewBumpAllocator(8, 64)
	addr, _ := a.TryAllocate(value.ClassID(1), 0)
	if !a.Contains(addr) {
		t.Fatalf("Contains should report addresses handed out by the arena")
	}
	if a.Contains(a.Base() + 10000) {
		t.Fatalf("Contains should reject addresses past Top")
	}
}
