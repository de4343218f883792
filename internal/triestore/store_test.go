package triestore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_GetOnEmptyStoreIsAbsent(t *testing.T) {
	s := New()
	_, ok := Get[int](s, "k")
	require.False(t, ok)
}

func TestStore_PutThenGet(t *testing.T) {
	s := New()
	Put(s, "k", 7)

	g, ok := Get[int](s, "k")
	require.True(t, ok)
	require.Equal(t, 7, g.Value())
}

func TestStore_RemoveThenGetIsAbsent(t *testing.T) {
	s := New()
	Put(s, "k", 7)
	s.Remove("k")

	_, ok := Get[int](s, "k")
	require.False(t, ok)
}

func TestStore_GuardOutlivesSubsequentWrites(t *testing.T) {
	s := New()
	Put(s, "k", 1)

	g, ok := Get[int](s, "k")
	require.True(t, ok)

	Put(s, "k", 2)
	s.Remove("k")

	// The guard's snapshot predates both later writes.
	require.Equal(t, 1, g.Value())

	g2, ok := Get[int](s, "k")
	require.False(t, ok)
	_ = g2
}

func TestStore_ConcurrentReadersDoNotRace(t *testing.T) {
	s := New()
	Put(s, "k", 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Get[int](s, "k")
		}()
	}
	wg.Wait()
}

func TestStore_ConcurrentWritersSerializeWithoutLoss(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		key := string(rune('a' + i%26))
		go func(k string, v int) {
			defer wg.Done()
			Put(s, k, v)
		}(key+string(rune('0'+i/26)), i)
	}
	wg.Wait()

	count := 0
	for i := 0; i < 20; i++ {
		key := string(rune('a'+i%26)) + string(rune('0'+i/26))
		if _, ok := Get[int](s, key); ok {
			count++
		}
	}
	require.Equal(t, 20, count)
}
