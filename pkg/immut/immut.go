// Package immut provides persistent collections with structural sharing.
//
// Every update returns a new value and leaves the receiver untouched, so
// collections can be shared freely between goroutines without locking. The
// zero value of each type is an empty, ready to use collection.
package immut

import "github.com/benbjohnson/immutable"

// Key is the set of key types the default hashers and comparers support.
type Key interface {
	~string | ~int | ~int64 | ~uint | ~uint64
}

// Identity is a cheap handle for a collection's root. Equal identities imply
// equal contents; the converse does not hold.
type Identity struct {
	p any
}

// Map is a persistent hash map.
type Map[K Key, V any] struct {
	m *immutable.Map[K, V]
}

// NewMap builds a map from a Go map.
func NewMap[K Key, V any](entries map[K]V) Map[K, V] {
	var out Map[K, V]
	for k, v := range entries {
		out = out.Set(k, v)
	}
	return out
}

func (m Map[K, V]) root() *immutable.Map[K, V] {
	if m.m == nil {
		return immutable.NewMap[K, V](nil)
	}
	return m.m
}

// Len returns the number of entries.
func (m Map[K, V]) Len() int {
	if m.m == nil {
		return 0
	}
	return m.m.Len()
}

// Get returns the value for k. The second result reports presence.
func (m Map[K, V]) Get(k K) (V, bool) {
	if m.m == nil {
		var zero V
		return zero, false
	}
	return m.m.Get(k)
}

// Has reports whether k is present.
func (m Map[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Set returns a map with k bound to v.
func (m Map[K, V]) Set(k K, v V) Map[K, V] {
	return Map[K, V]{m: m.root().Set(k, v)}
}

// Delete returns a map without k. Deleting an absent key returns m.
func (m Map[K, V]) Delete(k K) Map[K, V] {
	if !m.Has(k) {
		return m
	}
	return Map[K, V]{m: m.m.Delete(k)}
}

// Update applies fn to the value bound to k if present.
func (m Map[K, V]) Update(k K, fn func(V) V) Map[K, V] {
	v, ok := m.Get(k)
	if !ok {
		return m
	}
	return m.Set(k, fn(v))
}

// Merge returns m with every entry of other set on top of it.
func (m Map[K, V]) Merge(other Map[K, V]) Map[K, V] {
	if m.Len() == 0 {
		return other
	}
	out := m
	other.Range(func(k K, v V) bool {
		out = out.Set(k, v)
		return true
	})
	return out
}

// Range calls fn for each entry until fn returns false. Order is unspecified.
func (m Map[K, V]) Range(fn func(K, V) bool) {
	if m.m == nil {
		return
	}
	it := m.m.Iterator()
	for !it.Done() {
		k, v, ok := it.Next()
		if !ok {
			return
		}
		if !fn(k, v) {
			return
		}
	}
}

// Keys returns the keys in unspecified order.
func (m Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// ToMap copies the entries into a Go map.
func (m Map[K, V]) ToMap() map[K]V {
	out := make(map[K]V, m.Len())
	m.Range(func(k K, v V) bool {
		out[k] = v
		return true
	})
	return out
}

// Equal compares both maps entry by entry using eq for values.
func (m Map[K, V]) Equal(other Map[K, V], eq func(a, b V) bool) bool {
	if m.Identity() == other.Identity() {
		return true
	}
	if m.Len() != other.Len() {
		return false
	}
	equal := true
	m.Range(func(k K, v V) bool {
		ov, ok := other.Get(k)
		if !ok || !eq(v, ov) {
			equal = false
		}
		return equal
	})
	return equal
}

// Identity returns the root handle of m.
func (m Map[K, V]) Identity() Identity {
	if m.m == nil {
		return Identity{}
	}
	return Identity{p: m.m}
}

// Set is a persistent set.
type Set[K Key] struct {
	m Map[K, struct{}]
}

// NewSet builds a set from the given members.
func NewSet[K Key](members ...K) Set[K] {
	var s Set[K]
	for _, k := range members {
		s = s.Insert(k)
	}
	return s
}

func (s Set[K]) Insert(k K) Set[K] { return Set[K]{m: s.m.Set(k, struct{}{})} }
func (s Set[K]) Erase(k K) Set[K]  { return Set[K]{m: s.m.Delete(k)} }
func (s Set[K]) Has(k K) bool      { return s.m.Has(k) }
func (s Set[K]) Len() int          { return s.m.Len() }

// Range calls fn for each member until fn returns false.
func (s Set[K]) Range(fn func(K) bool) {
	s.m.Range(func(k K, _ struct{}) bool { return fn(k) })
}

// Equal reports whether both sets hold the same members.
func (s Set[K]) Equal(other Set[K]) bool {
	return s.m.Equal(other.m, func(struct{}, struct{}) bool { return true })
}

// Identity returns the root handle of s.
func (s Set[K]) Identity() Identity { return s.m.Identity() }
