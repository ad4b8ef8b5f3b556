package immut

import "github.com/benbjohnson/immutable"

// Vector is a persistent indexed sequence.
type Vector[T any] struct {
	l *immutable.List[T]
}

// NewVector builds a vector holding values in order.
func NewVector[T any](values ...T) Vector[T] {
	if len(values) == 0 {
		return Vector[T]{}
	}
	return Vector[T]{l: immutable.NewList[T](values...)}
}

func (v Vector[T]) root() *immutable.List[T] {
	if v.l == nil {
		return immutable.NewList[T]()
	}
	return v.l
}

// Len returns the number of elements.
func (v Vector[T]) Len() int {
	if v.l == nil {
		return 0
	}
	return v.l.Len()
}

// Get returns the element at i. It panics when i is out of range.
func (v Vector[T]) Get(i int) T {
	return v.root().Get(i)
}

// Set returns a vector with element i replaced.
func (v Vector[T]) Set(i int, x T) Vector[T] {
	return Vector[T]{l: v.root().Set(i, x)}
}

// Append returns a vector with x added at the end.
func (v Vector[T]) Append(x T) Vector[T] {
	return Vector[T]{l: v.root().Append(x)}
}

// Prepend returns a vector with x added at the front.
func (v Vector[T]) Prepend(x T) Vector[T] {
	return Vector[T]{l: v.root().Prepend(x)}
}

// Concat returns v followed by every element of other.
func (v Vector[T]) Concat(other Vector[T]) Vector[T] {
	out := v
	other.Range(func(_ int, x T) bool {
		out = out.Append(x)
		return true
	})
	return out
}

// Range calls fn for each element in order until fn returns false.
func (v Vector[T]) Range(fn func(int, T) bool) {
	if v.l == nil {
		return
	}
	it := v.l.Iterator()
	for !it.Done() {
		i, x := it.Next()
		if !fn(i, x) {
			return
		}
	}
}

// Slice copies the elements into a Go slice.
func (v Vector[T]) Slice() []T {
	out := make([]T, 0, v.Len())
	v.Range(func(_ int, x T) bool {
		out = append(out, x)
		return true
	})
	return out
}

// Equal compares both vectors element by element.
func (v Vector[T]) Equal(other Vector[T], eq func(a, b T) bool) bool {
	if v.Identity() == other.Identity() {
		return true
	}
	if v.Len() != other.Len() {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if !eq(v.Get(i), other.Get(i)) {
			return false
		}
	}
	return true
}

// Identity returns the root handle of v.
func (v Vector[T]) Identity() Identity {
	if v.l == nil {
		return Identity{}
	}
	return Identity{p: v.l}
}
