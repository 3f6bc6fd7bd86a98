package graph

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_CandidateSortedInsert(t *testing.T) {
	cb := newCandidateBuffer(4)
	for _, d := range []float32{3, 1, 2, 0.5} {
		require.True(t, cb.Insert(candidateElem{rowId: uint64(d * 10), distance: d}))
	}
	require.Equal(t, 4, cb.Len())
	for i := 1; i < cb.Len(); i++ {
		require.LessOrEqual(t, cb.items[i-1].distance, cb.items[i].distance)
	}
	// ---------------------------
	// Full buffer rejects a worse candidate and evicts for a better one
	require.False(t, cb.Insert(candidateElem{rowId: 99, distance: 5}))
	require.True(t, cb.Insert(candidateElem{rowId: 7, distance: 0.1}))
	require.Equal(t, 4, cb.Len())
	require.Equal(t, uint64(7), cb.items[0].rowId)
	require.Equal(t, float32(2), cb.items[3].distance)
}

func Test_CandidateTieBreakByRowId(t *testing.T) {
	cb := newCandidateBuffer(4)
	cb.Insert(candidateElem{rowId: 9, distance: 1})
	cb.Insert(candidateElem{rowId: 3, distance: 1})
	cb.Insert(candidateElem{rowId: 6, distance: 1})
	require.Equal(t, uint64(3), cb.items[0].rowId)
	require.Equal(t, uint64(6), cb.items[1].rowId)
	require.Equal(t, uint64(9), cb.items[2].rowId)
}

func Test_CandidateNearestUnexpanded(t *testing.T) {
	cb := newCandidateBuffer(4)
	cb.Insert(candidateElem{rowId: 1, distance: 1})
	cb.Insert(candidateElem{rowId: 2, distance: 2})
	require.Equal(t, 0, cb.NearestUnexpanded())
	cb.items[0].expanded = true
	require.Equal(t, 1, cb.NearestUnexpanded())
	cb.items[1].expanded = true
	require.Equal(t, -1, cb.NearestUnexpanded())
}

func Test_CandidateRandomisedOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cb := newCandidateBuffer(32)
	for i := 0; i < 500; i++ {
		cb.Insert(candidateElem{rowId: rng.Uint64() >> 1, distance: rng.Float32()})
	}
	require.Equal(t, 32, cb.Len())
	for i := 1; i < cb.Len(); i++ {
		prev, cur := cb.items[i-1], cb.items[i]
		require.False(t, cur.less(prev))
	}
}
