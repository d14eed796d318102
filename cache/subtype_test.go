package cache

import "testing"

func TestSubtypeTestCacheMissThenHit(t *testing.T) {
	c := NewSubtypeTestCache()
	shape := SubtypeShape{InstanceCidOrSignature: 7, InstantiatorTypeArgs: 1}

	if _, found := c.Lookup(shape); found {
		t.Fatalf("fresh cache should miss")
	}

	c.Append(shape, true)
	result, found := c.Lookup(shape)
	if !found || !result {
		t.Fatalf("Lookup(shape) = %v, %v, want true, true", result, found)
	}
}

func TestSubtypeTestCacheLinearScanFindsEarlierEntry(t *testing.T) {
	c := NewSubtypeTestCache()
	first := SubtypeShape{InstanceCidOrSignature: 1}
	second := SubtypeShape{InstanceCidOrSignature: 2}

	c.Append(first, false)
	c.Append(second, true)

	if result, found := c.Lookup(first); !found || result {
		t.Fatalf("Lookup(first) = %v, %v, want false, true", result, found)
	}
	if result, found := c.Lookup(second); !found || !result {
		t.Fatalf("Lookup(second) = %v, %v, want true, true", result, found)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}

func TestSubtypeTestCacheDistinguishesAllSixKeys(t *testing.T) {
	c := NewSubtypeTestCache()
	base := SubtypeShape{1, 2, 3, 4, 5, 6}
	c.Append(base, true)

	variant := base
	variant.InstanceDelayedFunctionTypeArgs = 7
	if _, found := c.Lookup(variant); found {
		t.Fatalf("a shape differing only in its sixth key should miss")
	}
}
