package ds

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type entry struct {
	key  int
	hits int
}

func TestMap_Ensure(t *testing.T) {
	created := 0
	m := NewMap(func(k int) *entry {
		created++
		return &entry{key: k}
	})

	_, ok := m.Get(1)
	require.False(t, ok)

	m.Ensure(1).hits++
	m.Ensure(1).hits++
	require.Equal(t, 1, created)
	require.True(t, m.Has(1))

	e, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, &entry{key: 1, hits: 2}, e)

	m.Remove(1)
	require.False(t, m.Has(1))
	require.Equal(t, 0, m.Len())
}

func TestMap_RemoveWhileIterating(t *testing.T) {
	m := NewMap(func(k int) *entry { return &entry{key: k} })
	for i := range 10 {
		m.Ensure(i).hits = i
	}

	for k, e := range m.All() {
		if e.hits%2 == 0 {
			m.Remove(k)
		}
	}
	require.Equal(t, 5, m.Len())
	for k := range m.All() {
		require.Equal(t, 1, k%2)
	}
}
