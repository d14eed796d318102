package interp

import (
	"j5.nz/kbcvm/cache"
	"j5.nz/kbcvm/runtime"
	"j5.nz/kbcvm/value"
)

// DirectCallSite is a constant-pool entry for Op(Unchecked)DirectCall
// and OpNativeCall: the callee is already resolved at compile time, so
// the call never consults a lookup cache (spec §4.11's direct-call
// family).
type DirectCallSite struct {
	Target  runtime.Function
	ArgDesc *runtime.ArgumentsDescriptor
}

// InstanceCallSite is a constant-pool entry for Op(Unchecked)
// InterfaceCall, OpInstantiatedInterfaceCall, and OpDynamicCall: the
// callee depends on the receiver's runtime class and is resolved
// through this call site's own LookupCache (spec §4.3, §4.8).
type InstanceCallSite struct {
	Selector string
	ArgDesc  *runtime.ArgumentsDescriptor
	Cache    *cache.LookupCache
}

// NewInstanceCallSite builds a call site with a freshly cleared cache,
// as a bytecode loader would when materializing a pool entry for an
// instance call.
func NewInstanceCallSite(selector string, argdesc *runtime.ArgumentsDescriptor) *InstanceCallSite {
	return &InstanceCallSite{Selector: selector, ArgDesc: argdesc, Cache: cache.NewLookupCache()}
}

// TypeTestSite is the constant-pool entry OpAssertAssignable's T
// operand indexes: the target type plus this call site's own
// SubtypeTestCache (spec §4.10). Type is left opaque (any) since this
// repository's CORE does not implement a guest type system (spec §1);
// Helpers.TypeCheck is the only consumer that needs to interpret it.
type TypeTestSite struct {
	Type  any
	Name  string
	Cache *cache.SubtypeTestCache
}

// NewTypeTestSite builds a type test site with a fresh cache.
func NewTypeTestSite(typ any, name string) *TypeTestSite {
	return &TypeTestSite{Type: typ, Name: name, Cache: cache.NewSubtypeTestCache()}
}

// instantiationEntry is one (instantiator, function, instantiated)
// triple of an InstantiationCache.
type instantiationEntry struct {
	instantiator value.Value
	function     value.Value
	instantiated value.Value
}

// InstantiationCache is a per-call-site cache of previously-computed
// instantiations, consulted by OpInstantiateType and
// OpInstantiateTypeArgumentsTOS before falling back to the runtime
// helper (spec §4.11; inter.cc's per-type-arguments instantiations_
// array, terminated by a "no instantiator" sentinel instead of a
// length, walked linearly and matched by identity on the instantiator
// and function type argument vectors).
type InstantiationCache struct {
	entries []instantiationEntry
}

// NewInstantiationCache returns an empty cache.
func NewInstantiationCache() *InstantiationCache {
	return &InstantiationCache{}
}

// Lookup scans entries for one matching instantiator and function by
// identity, as inter.cc's cache walk does.
func (c *InstantiationCache) Lookup(instantiator, function value.Value) (value.Value, bool) {
	for _, e := range c.entries {
		if e.instantiator == instantiator && e.function == function {
			return e.instantiated, true
		}
	}
	return value.Null, false
}

// Append installs a new entry after a cache miss has been resolved by
// the runtime helper.
func (c *InstantiationCache) Append(instantiator, function, instantiated value.Value) {
	c.entries = append(c.entries, instantiationEntry{instantiator, function, instantiated})
}

// InstantiateTypeSite is a constant-pool entry for OpInstantiateType:
// the uninstantiated type plus this call site's own InstantiationCache.
type InstantiateTypeSite struct {
	Type  any
	Cache *InstantiationCache
}

// NewInstantiateTypeSite builds a type-instantiation site with a fresh
// cache.
func NewInstantiateTypeSite(typ any) *InstantiateTypeSite {
	return &InstantiateTypeSite{Type: typ, Cache: NewInstantiationCache()}
}

// InstantiateTypeArgumentsSite is a constant-pool entry for
// OpInstantiateTypeArgumentsTOS: the uninstantiated type arguments
// plus this call site's own InstantiationCache.
type InstantiateTypeArgumentsSite struct {
	TypeArgs any
	Cache    *InstantiationCache
}

// NewInstantiateTypeArgumentsSite builds a type-arguments-instantiation
// site with a fresh cache.
func NewInstantiateTypeArgumentsSite(typeArgs any) *InstantiateTypeArgumentsSite {
	return &InstantiateTypeArgumentsSite{TypeArgs: typeArgs, Cache: NewInstantiationCache()}
}
