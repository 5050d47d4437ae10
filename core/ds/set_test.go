package ds

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_AddRemove(t *testing.T) {
	s := NewSet[string]()
	require.Equal(t, 0, s.Len())

	require.True(t, s.Add("hello"))
	require.False(t, s.Add("hello"))
	require.True(t, s.Contains("hello"))
	require.Equal(t, 1, s.Len())

	require.True(t, s.Remove("hello"))
	require.False(t, s.Remove("hello"))
	require.False(t, s.Contains("hello"))
	require.Equal(t, 0, s.Len())
}

func TestSet_Values(t *testing.T) {
	s := NewSet(3, 1, 2, 1)
	require.Equal(t, 3, s.Len())

	v := s.Values()
	slices.Sort(v)
	require.Equal(t, []int{1, 2, 3}, v)

	var seen []int
	for x := range s.All() {
		seen = append(seen, x)
	}
	slices.Sort(seen)
	require.Equal(t, v, seen)

	s.Clear()
	require.Equal(t, 0, s.Len())
	require.Equal(t, "[]", s.String())
}
