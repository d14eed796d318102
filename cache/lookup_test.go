package cache

import (
	"testing"

	"j5.nz/kbcvm/value"
)

func TestLookupCacheMissThenHit(t *testing.T) {
	c := NewLookupCache()
	key := Key{ReceiverClassID: value.ClassID(10), Selector: 1, ArgDesc: 1}

	if _, ok := c.Lookup(key); ok {
		t.Fatalf("fresh cache should miss")
	}

	c.Insert(key, 0xabc)
	got, ok := c.Lookup(key)
	if !ok {
		t.Fatalf("expected a hit after Insert")
	}
	if got != 0xabc {
		t.Fatalf("Lookup returned %x, want 0xabc", got)
	}
}

func TestLookupCacheDistinguishesShape(t *testing.T) {
	c := NewLookupCache()
	a := Key{ReceiverClassID: 1, Selector: 5, ArgDesc: 1}
	b := Key{ReceiverClassID: 2, Selector: 5, ArgDesc: 1}

	c.Insert(a, 11)
	c.Insert(b, 22)

	if got, ok := c.Lookup(a); !ok || got != 11 {
		t.Fatalf("Lookup(a) = %v, %v", got, ok)
	}
	if got, ok := c.Lookup(b); !ok || got != 22 {
		t.Fatalf("Lookup(b) = %v, %v", got, ok)
	}
}

func TestLookupCacheClear(t *testing.T) {
	c := NewLookupCache()
	key := Key{ReceiverClassID: 1, Selector: 1, ArgDesc: 1}
	c.Insert(key, 99)
	c.Clear()
	if _, ok := c.Lookup(key); ok {
		t.Fatalf("Clear should empty every slot")
	}
}

func TestLookupCacheIllegalReceiverPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Lookup with an illegal receiver class id should panic")
		}
	}()
	c := NewLookupCache()
	c.Lookup(Key{ReceiverClassID: value.IllegalClassID})
}
