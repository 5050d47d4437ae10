package sf

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleflight_Dedupes(t *testing.T) {
	s := New[int]()

	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Do("k", func() (int, error) {
				if calls.Add(1) == 1 {
					close(started)
				}
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}()
	}

	<-started
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		require.Equal(t, 42, v)
	}
}

func TestSingleflight_Error(t *testing.T) {
	s := New[*int]()
	boom := errors.New("boom")
	v, err := s.Do("k", func() (*int, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.Nil(t, v)

	// nil results do not panic
	v, err = s.Do("k", func() (*int, error) { return nil, nil })
	require.NoError(t, err)
	require.Nil(t, v)
}
