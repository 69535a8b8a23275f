package field

import (
	"fmt"
	"sort"
)

// Aliases maps alternative names onto keys. An alias may point at another
// alias; Resolve follows the chain. The zero value is an empty set.
type Aliases struct {
	m map[string]string
}

// Set makes alias refer to target, replacing any earlier target.
func (a *Aliases) Set(alias, target string) {
	if a.m == nil {
		a.m = map[string]string{}
	}
	a.m[alias] = target
}

// Delete removes alias. It returns false if alias wasn't set.
func (a *Aliases) Delete(alias string) bool {
	_, ok := a.m[alias]
	delete(a.m, alias)
	return ok
}

// Target returns the direct target of alias, without following chains.
func (a *Aliases) Target(alias string) (string, bool) {
	target, ok := a.m[alias]
	return target, ok
}

// Resolve follows key through the alias chain until it reaches a name that
// isn't an alias. Keys that aren't aliases resolve to themselves.
func (a *Aliases) Resolve(key string) (string, error) {
	var seen map[string]bool
	for {
		target, ok := a.m[key]
		if !ok {
			return key, nil
		}
		if seen == nil {
			seen = map[string]bool{}
		}
		if seen[key] {
			return "", fmt.Errorf("%w: through '%s'", ErrAliasCycle, key)
		}
		seen[key] = true
		key = target
	}
}

// Len returns the number of aliases.
func (a *Aliases) Len() int { return len(a.m) }

// Names returns every alias, sorted.
func (a *Aliases) Names() []string {
	out := make([]string, 0, len(a.m))
	for alias := range a.m {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the alias table.
func (a *Aliases) Map() map[string]string {
	out := make(map[string]string, len(a.m))
	for alias, target := range a.m {
		out[alias] = target
	}
	return out
}

// Clone returns an independent copy of a.
func (a *Aliases) Clone() *Aliases {
	return &Aliases{m: a.Map()}
}

// Intersect keeps only the aliases that b maps to the same target.
func (a *Aliases) Intersect(b *Aliases) {
	for alias, target := range a.m {
		if t, ok := b.m[alias]; !ok || t != target {
			delete(a.m, alias)
		}
	}
}
