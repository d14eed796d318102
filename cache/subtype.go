package cache

// SubtypeShape is the six-tuple identity key for one subtype-test cache
// entry (spec §3/§4.10). InstantiatorTypeArgs and FunctionTypeArgs are
// the type arguments supplied to the check. For closures,
// InstanceCidOrSignature is the closure's function identity and
// InstanceParentFunctionTypeArgs/InstanceDelayedFunctionTypeArgs hold
// the closure's own extra type-argument shapes; for non-closures,
// InstanceCidOrSignature is the class id, InstanceTypeArgs comes from
// the class-declared type-arguments field, and those two closure fields
// are the zero value.
type SubtypeShape struct {
	InstanceCidOrSignature          uintptr
	InstanceTypeArgs                uintptr
	InstantiatorTypeArgs            uintptr
	FunctionTypeArgs                uintptr
	InstanceParentFunctionTypeArgs  uintptr
	InstanceDelayedFunctionTypeArgs uintptr
}

type subtypeEntry struct {
	shape  SubtypeShape
	result bool
}

// SubtypeTestCache is a linearly scanned slice of six-tuples; the
// slice length, not a sentinel entry, ends the scan (spec §4.10,
// "Lookup is linear scan; match requires
// identity equality on all six shape keys"). A miss is the runtime's
// job: it may allocate a fresh cache and call Append to grow it.
type SubtypeTestCache struct {
	entries []subtypeEntry
}

// NewSubtypeTestCache returns an empty cache, as allocated by the
// runtime helper allocate_subtype_test_cache (spec §6).
func NewSubtypeTestCache() *SubtypeTestCache {
	return &SubtypeTestCache{}
}

// Lookup performs the linear scan described in inter.cc's
// AssertAssignable: iterate entries, compare all six shape keys by
// identity, and on a match return the stored boolean result.
func (c *SubtypeTestCache) Lookup(shape SubtypeShape) (result bool, found bool) {
	for i := range c.entries {
		if c.entries[i].shape == shape {
			return c.entries[i].result, true
		}
	}
	return false, false
}

// Append installs a new entry after a cache miss has been resolved by
// the runtime's type_check helper.
func (c *SubtypeTestCache) Append(shape SubtypeShape, result bool) {
	c.entries = append(c.entries, subtypeEntry{shape: shape, result: result})
}

// Len reports the number of live entries, for tests.
func (c *SubtypeTestCache) Len() int { return len(c.entries) }
