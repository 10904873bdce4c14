package sqlbuild

import "fmt"

// AliasAllocator hands out unique table aliases within one planning pass:
// name, name_1, name_2, .... Owned by a single Planner pass; never shared
// across requests (spec §3.3, §4.4.2, §9 "Ownership").
type AliasAllocator struct {
	counts map[string]int
}

// NewAliasAllocator creates an empty allocator.
func NewAliasAllocator() *AliasAllocator {
	return &AliasAllocator{counts: make(map[string]int)}
}

// Alloc returns a fresh alias derived from base, guaranteed unique within
// this allocator's lifetime.
func (a *AliasAllocator) Alloc(base string) string {
	n := a.counts[base]
	a.counts[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}
