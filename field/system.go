/*package field implements a lazy, memoizing registry of named values.

A System maps keys onto Producers. The first Get of a key runs its Producer
and caches the result; later calls return the cached value until the cache
entry is dropped. Producers receive a Handle back into the registry that owns
them, so derived values can be built out of other registered values.
*/
package field

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrKeyNotFound = errors.New("field: key not found")
	ErrCycle       = errors.New("field: cyclic field dependency")
	ErrAliasCycle  = errors.New("field: alias cycle")
)

// Handle is the view of a registry that a Producer gets to see.
type Handle[V any] interface {
	Get(key string) (V, error)
	Contains(key string) bool
}

// Producer computes the value of one key.
type Producer[V any] interface {
	Produce(h Handle[V]) (V, error)
}

// ProducerFunc lets an ordinary function act as a Producer.
type ProducerFunc[V any] func(h Handle[V]) (V, error)

func (f ProducerFunc[V]) Produce(h Handle[V]) (V, error) { return f(h) }

// entry wraps a registered Producer. Entries are never modified after
// registration, so clones of a System share them and their identity tells
// whether two registries hold the same registration.
type entry[V any] struct {
	p Producer[V]
}

// System is a registry of Producers with a value cache. It is not safe for
// concurrent use.
type System[V any] struct {
	owner     Handle[V]
	keys      []string
	entries   map[string]*entry[V]
	cache     map[string]V
	resolving map[string]bool
}

// New returns an empty System. Producers are handed owner when they run; if
// owner is nil they are handed the System itself.
func New[V any](owner Handle[V]) *System[V] {
	return &System[V]{
		owner:     owner,
		entries:   map[string]*entry[V]{},
		cache:     map[string]V{},
		resolving: map[string]bool{},
	}
}

func (s *System[V]) handle() Handle[V] {
	if s.owner == nil {
		return s
	}
	return s.owner
}

// Register associates key with p. An earlier registration under key is
// replaced and its cached value, if any, is dropped.
func (s *System[V]) Register(key string, p Producer[V]) {
	if p == nil {
		panic(fmt.Sprintf("field: nil Producer registered under '%s'", key))
	}
	if _, ok := s.entries[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.entries[key] = &entry[V]{p}
	delete(s.cache, key)
}

// Unregister removes key from the registry and drops its cached value.
func (s *System[V]) Unregister(key string) error {
	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("%w: '%s'", ErrKeyNotFound, key)
	}
	s.remove(key)
	return nil
}

func (s *System[V]) remove(key string) {
	delete(s.entries, key)
	delete(s.cache, key)
	for i := range s.keys {
		if s.keys[i] == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Get returns the value of key, running its Producer if the value isn't
// cached. A failed Producer leaves nothing in the cache.
func (s *System[V]) Get(key string) (V, error) {
	if v, ok := s.cache[key]; ok {
		return v, nil
	}

	var zero V
	e, ok := s.entries[key]
	if !ok {
		return zero, fmt.Errorf("%w: '%s'", ErrKeyNotFound, key)
	}
	if s.resolving[key] {
		return zero, fmt.Errorf("%w: '%s' depends on itself", ErrCycle, key)
	}

	s.resolving[key] = true
	v, err := e.p.Produce(s.handle())
	delete(s.resolving, key)
	if err != nil {
		return zero, err
	}

	s.cache[key] = v
	return v, nil
}

// Contains returns true if key is registered. The cache isn't consulted.
func (s *System[V]) Contains(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// Lookup returns the Producer registered under key.
func (s *System[V]) Lookup(key string) (Producer[V], bool) {
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.p, true
}

// Keys returns the registered keys in registration order.
func (s *System[V]) Keys() []string {
	return append([]string{}, s.keys...)
}

// Len returns the number of registered keys.
func (s *System[V]) Len() int { return len(s.keys) }

// Cached returns true if key currently has a cached value.
func (s *System[V]) Cached(key string) bool {
	_, ok := s.cache[key]
	return ok
}

// CachedKeys returns the keys with cached values, in registration order.
func (s *System[V]) CachedKeys() []string {
	out := []string{}
	for _, key := range s.keys {
		if _, ok := s.cache[key]; ok {
			out = append(out, key)
		}
	}
	return out
}

// Drop removes the cached value of key, leaving its registration alone. It
// returns false if nothing was cached.
func (s *System[V]) Drop(key string) bool {
	_, ok := s.cache[key]
	delete(s.cache, key)
	return ok
}

// ClearCache drops every cached value.
func (s *System[V]) ClearCache() {
	s.cache = map[string]V{}
}

// Clone returns a System with the same registrations and an empty cache.
// The clone hands owner to its Producers.
func (s *System[V]) Clone(owner Handle[V]) *System[V] {
	out := New[V](owner)
	out.keys = append([]string{}, s.keys...)
	for key, e := range s.entries {
		out.entries[key] = e
	}
	return out
}

// Same returns true if key is registered in both s and other with the same
// registration.
func (s *System[V]) Same(other *System[V], key string) bool {
	e1, ok1 := s.entries[key]
	e2, ok2 := other.entries[key]
	return ok1 && ok2 && sameEntry(e1, e2)
}

// Intersect removes every registration of s that other doesn't share. The
// cached values of removed keys are dropped.
func (s *System[V]) Intersect(other *System[V]) {
	for _, key := range s.Keys() {
		if !s.Same(other, key) {
			s.remove(key)
		}
	}
}

// sameEntry compares two registrations. Entries shared through Clone are
// the same; otherwise the Producers must be comparable and equal. Closures
// are never comparable, so only shared registrations of them match.
func sameEntry[V any](e1, e2 *entry[V]) bool {
	if e1 == e2 {
		return true
	}
	v1, v2 := reflect.ValueOf(e1.p), reflect.ValueOf(e2.p)
	return v1.Type() == v2.Type() && v1.Comparable() && v1.Equal(v2)
}
