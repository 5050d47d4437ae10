package ds

import (
	"fmt"
	"iter"
)

// Set is an unordered set. It is not safe for concurrent use.
type Set[T comparable] struct {
	items map[T]struct{}
}

func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[T]struct{}, len(items))}
	for _, v := range items {
		s.items[v] = struct{}{}
	}
	return s
}

func (s *Set[T]) String() string { return fmt.Sprintf("%v", s.Values()) }

func (s *Set[T]) Len() int { return len(s.items) }

// Add inserts v and reports whether it was new.
func (s *Set[T]) Add(v T) bool {
	if _, ok := s.items[v]; ok {
		return false
	}
	s.items[v] = struct{}{}
	return true
}

// Remove deletes v and reports whether it was present.
func (s *Set[T]) Remove(v T) bool {
	if _, ok := s.items[v]; !ok {
		return false
	}
	delete(s.items, v)
	return true
}

func (s *Set[T]) Contains(v T) bool {
	_, ok := s.items[v]
	return ok
}

func (s *Set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range s.items {
			if !yield(v) {
				return
			}
		}
	}
}

func (s *Set[T]) Values() []T {
	out := make([]T, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	return out
}

func (s *Set[T]) Clear() { clear(s.items) }
