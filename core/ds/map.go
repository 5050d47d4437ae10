package ds

import "iter"

// Map holds pointers to values that are created on first access.
// It is not safe for concurrent use.
type Map[K comparable, V any] struct {
	d      map[K]*V
	create func(K) *V
}

func NewMap[K comparable, V any](create func(K) *V) *Map[K, V] {
	return &Map[K, V]{d: make(map[K]*V), create: create}
}

func (m *Map[K, V]) Len() int { return len(m.d) }

func (m *Map[K, V]) Get(k K) (*V, bool) {
	v, ok := m.d[k]
	return v, ok
}

func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.d[k]
	return ok
}

// Ensure returns the value for k, creating it if absent.
func (m *Map[K, V]) Ensure(k K) *V {
	v, ok := m.d[k]
	if !ok {
		v = m.create(k)
		m.d[k] = v
	}
	return v
}

func (m *Map[K, V]) Remove(k K) { delete(m.d, k) }

// All yields every entry. Entries may be removed while iterating.
func (m *Map[K, V]) All() iter.Seq2[K, *V] {
	return func(yield func(K, *V) bool) {
		for k, v := range m.d {
			if !yield(k, v) {
				return
			}
		}
	}
}
