package runtime

import "sync"

// internTable canonicalizes values by their string form so that two
// logically-equal selectors or arguments descriptors share one
// identity, the way Dart's Symbols table and canonicalized Array
// descriptors do. This is what lets cache.Key comparisons use plain
// identity equality instead of deep structural comparison on every
// probe, and it is also the mechanism that satisfies the lookup
// cache's "keys must be old-generation" precondition (spec §4.3, §9):
// interned entries live for the lifetime of the process, never move,
// and are therefore always safe to cache across a young GC.
type internTable[K comparable] struct {
	mu      sync.Mutex
	ids     map[K]int
	nextID  int
}

func newInternTable[K comparable]() *internTable[K] {
	return &internTable[K]{ids: make(map[K]int)}
}

func (t *internTable[K]) intern(k K) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[k]; ok {
		return id
	}
	t.nextID++
	id := t.nextID
	t.ids[k] = id
	return id
}

var selectorTable = newInternTable[string]()

// InternSelector returns a stable identity for a selector name, used
// as the Selector component of a cache.Key.
func InternSelector(name string) uintptr {
	return uintptr(selectorTable.intern(name))
}

// argDescTable interns *ArgumentsDescriptor by value so structurally
// identical descriptors share one identity.
type argDescKey struct {
	typeArgsLen, count, positionalCount int
	named                               string
}

func keyOf(a *ArgumentsDescriptor) argDescKey {
	s := ""
	for _, n := range a.Named {
		s += n.Name + "\x00"
	}
	return argDescKey{a.TypeArgsLen, a.Count, a.PositionalCount, s}
}

var argDescInternTable = newInternTable[argDescKey]()

type argDescInterner struct{}

func (argDescInterner) intern(a *ArgumentsDescriptor) int {
	return argDescInternTable.intern(keyOf(a))
}

var argDescTable argDescInterner
