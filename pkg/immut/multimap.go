package immut

import "github.com/benbjohnson/immutable"

// Multimap is a persistent map holding an ordered list of values per key.
// Keys iterate in sorted order, values in insertion order.
type Multimap[K Key, V any] struct {
	m     *immutable.SortedMap[K, Vector[V]]
	count int
}

// Pair is one key/value entry of a Multimap.
type Pair[K Key, V any] struct {
	Key   K
	Value V
}

// NewMultimap builds a multimap from pairs, keeping their order per key.
func NewMultimap[K Key, V any](pairs ...Pair[K, V]) Multimap[K, V] {
	var mm Multimap[K, V]
	for _, p := range pairs {
		mm = mm.Insert(p.Key, p.Value)
	}
	return mm
}

func (mm Multimap[K, V]) root() *immutable.SortedMap[K, Vector[V]] {
	if mm.m == nil {
		return immutable.NewSortedMap[K, Vector[V]](nil)
	}
	return mm.m
}

func (mm Multimap[K, V]) values(k K) Vector[V] {
	if mm.m == nil {
		return Vector[V]{}
	}
	vs, _ := mm.m.Get(k)
	return vs
}

func (mm Multimap[K, V]) with(k K, old, vs Vector[V]) Multimap[K, V] {
	count := mm.count - old.Len() + vs.Len()
	if vs.Len() == 0 {
		if old.Len() == 0 {
			return mm
		}
		return Multimap[K, V]{m: mm.m.Delete(k), count: count}
	}
	return Multimap[K, V]{m: mm.root().Set(k, vs), count: count}
}

// Len returns the total number of values.
func (mm Multimap[K, V]) Len() int { return mm.count }

// Count returns the number of values held under k.
func (mm Multimap[K, V]) Count(k K) int { return mm.values(k).Len() }

// Find returns the first inserted value for k.
func (mm Multimap[K, V]) Find(k K) (V, bool) {
	vs := mm.values(k)
	if vs.Len() == 0 {
		var zero V
		return zero, false
	}
	return vs.Get(0), true
}

// Values returns every value held under k in insertion order.
func (mm Multimap[K, V]) Values(k K) []V { return mm.values(k).Slice() }

// Insert appends v to the values of k.
func (mm Multimap[K, V]) Insert(k K, v V) Multimap[K, V] {
	old := mm.values(k)
	return mm.with(k, old, old.Append(v))
}

// Prepend places v in front of the existing values of k.
func (mm Multimap[K, V]) Prepend(k K, v V) Multimap[K, V] {
	old := mm.values(k)
	return mm.with(k, old, old.Prepend(v))
}

// Replace drops every value of k and stores v alone.
func (mm Multimap[K, V]) Replace(k K, v V) Multimap[K, V] {
	return mm.with(k, mm.values(k), NewVector(v))
}

// Erase removes every value of k.
func (mm Multimap[K, V]) Erase(k K) Multimap[K, V] {
	return mm.with(k, mm.values(k), Vector[V]{})
}

// UpdateFirst stores initial when k is absent, otherwise replaces the first
// value of k with fn applied to it.
func (mm Multimap[K, V]) UpdateFirst(k K, initial V, fn func(V) V) Multimap[K, V] {
	old := mm.values(k)
	if old.Len() == 0 {
		return mm.with(k, old, NewVector(initial))
	}
	return mm.with(k, old, old.Set(0, fn(old.Get(0))))
}

// Range calls fn for each key/value pair until fn returns false.
func (mm Multimap[K, V]) Range(fn func(K, V) bool) {
	if mm.m == nil {
		return
	}
	it := mm.m.Iterator()
	for !it.Done() {
		k, vs, ok := it.Next()
		if !ok {
			return
		}
		stop := false
		vs.Range(func(_ int, v V) bool {
			if !fn(k, v) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// Pairs flattens the multimap in iteration order.
func (mm Multimap[K, V]) Pairs() []Pair[K, V] {
	out := make([]Pair[K, V], 0, mm.count)
	mm.Range(func(k K, v V) bool {
		out = append(out, Pair[K, V]{Key: k, Value: v})
		return true
	})
	return out
}

// Equal compares keys and value lists using eq.
func (mm Multimap[K, V]) Equal(other Multimap[K, V], eq func(a, b V) bool) bool {
	if mm.Identity() == other.Identity() {
		return true
	}
	if mm.count != other.count {
		return false
	}
	a, b := mm.Pairs(), other.Pairs()
	for i := range a {
		if a[i].Key != b[i].Key || !eq(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// Identity returns the root handle of mm.
func (mm Multimap[K, V]) Identity() Identity {
	if mm.m == nil {
		return Identity{}
	}
	return Identity{p: mm.m}
}
