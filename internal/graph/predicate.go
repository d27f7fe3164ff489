package graph

import (
	"sort"
	"strings"
)

// Flags is the configuration snapshot edge predicates are evaluated against.
// A missing flag is false.
type Flags map[string]bool

// Set returns the names of the flags that are true, sorted.
func (f Flags) Set() []string {
	var names []string
	for name, on := range f {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// String renders the set flags as a comma list.
func (f Flags) String() string {
	return strings.Join(f.Set(), ",")
}

// Predicate decides whether an edge is enabled. Predicates must be pure.
type Predicate func(Flags) bool

// Always enables an edge unconditionally.
func Always() Predicate {
	return func(Flags) bool { return true }
}

// FlagSet enables an edge when the named flag is true.
func FlagSet(name string) Predicate {
	return func(f Flags) bool { return f[name] }
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(f Flags) bool { return !p(f) }
}

// All holds when every predicate holds. All() is always true.
func All(ps ...Predicate) Predicate {
	return func(f Flags) bool {
		for _, p := range ps {
			if !p(f) {
				return false
			}
		}
		return true
	}
}

// Any holds when at least one predicate holds. Any() is always false.
func Any(ps ...Predicate) Predicate {
	return func(f Flags) bool {
		for _, p := range ps {
			if p(f) {
				return true
			}
		}
		return false
	}
}
