package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_VisitedAddContains(t *testing.T) {
	vs := newVisitedSet(8)
	require.False(t, vs.Contains(42))
	require.True(t, vs.Add(42))
	require.True(t, vs.Contains(42))
	require.Equal(t, 1, vs.Len())
	// Idempotent add
	require.False(t, vs.Add(42))
	require.Equal(t, 1, vs.Len())
}

func Test_VisitedZeroRowId(t *testing.T) {
	// Zero must not collide with the empty sentinel
	vs := newVisitedSet(8)
	require.False(t, vs.Contains(0))
	require.True(t, vs.Add(0))
	require.True(t, vs.Contains(0))
}

func Test_VisitedGrowth(t *testing.T) {
	vs := newVisitedSet(4)
	rng := rand.New(rand.NewSource(42))
	ids := make([]uint64, 0, 10_000)
	for i := 0; i < 10_000; i++ {
		ids = append(ids, rng.Uint64()>>1)
	}
	for _, id := range ids {
		vs.Add(id)
	}
	for _, id := range ids {
		require.True(t, vs.Contains(id))
	}
	// Load factor stays below a half
	require.Less(t, vs.count*2, len(vs.slots))
}

func Test_VisitedClear(t *testing.T) {
	vs := newVisitedSet(8)
	for i := uint64(0); i < 100; i++ {
		vs.Add(i)
	}
	vs.Clear()
	require.Equal(t, 0, vs.Len())
	for i := uint64(0); i < 100; i++ {
		require.False(t, vs.Contains(i))
	}
}
