package block

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLayout(t *testing.T, dimension, maxDegree int) Layout {
	layout, err := NewLayout(dimension, 0, maxDegree)
	require.NoError(t, err)
	return layout
}

func randVector(rng *rand.Rand, size int) []float32 {
	v := make([]float32, size)
	for i := range v {
		v[i] = rng.Float32()
	}
	return v
}

func Test_AutoBlockSize(t *testing.T) {
	// node_overhead = 16 + 4*3 = 28, edge_overhead = 12 + 16 = 28
	// 28 + 4*28 = 140 -> rounded up to 192
	require.Equal(t, 192, AutoBlockSize(3, 4))
	require.Equal(t, 0, AutoBlockSize(3, 4)%64)
}

func Test_LayoutCapacity(t *testing.T) {
	layout := testLayout(t, 3, 4)
	require.GreaterOrEqual(t, layout.EdgeCapacity, 4)
	// ---------------------------
	// A block too small for the degree must be rejected
	_, err := NewLayout(128, 256, 32)
	require.Error(t, err)
}

func Test_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	layout := testLayout(t, 5, 8)
	buf := make([]byte, layout.BlockSize)
	b := New(layout, buf)
	// ---------------------------
	vec := randVector(rng, 5)
	b.Init(7, vec)
	require.Equal(t, uint64(7), b.RowId())
	require.Equal(t, 0, b.NumEdges())
	require.Equal(t, vec, b.Vector())
	// ---------------------------
	type edge struct {
		rowId uint64
		dist  float32
		vec   []float32
	}
	edges := make([]edge, 0, 8)
	for i := 0; i < 8; i++ {
		e := edge{rowId: uint64(100 + i), dist: rng.Float32(), vec: randVector(rng, 5)}
		edges = append(edges, e)
		require.NoError(t, b.AppendEdge(e.rowId, e.dist, e.vec))
	}
	require.Equal(t, 8, b.NumEdges())
	for i, e := range edges {
		got := b.Edge(i)
		require.Equal(t, e.rowId, got.RowId)
		require.Equal(t, e.dist, got.Distance)
		require.Equal(t, e.vec, got.Vector)
	}
}

func Test_AppendBeyondCapacity(t *testing.T) {
	layout := testLayout(t, 3, 2)
	// Layout rounds up so fill to the actual capacity
	b := New(layout, make([]byte, layout.BlockSize))
	b.Init(1, []float32{1, 2, 3})
	for i := 0; i < layout.EdgeCapacity; i++ {
		require.NoError(t, b.AppendEdge(uint64(i+2), 1, []float32{0, 0, 0}))
	}
	require.Error(t, b.AppendEdge(99, 1, []float32{0, 0, 0}))
}

func Test_FindReplaceDelete(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	layout := testLayout(t, 4, 8)
	b := New(layout, make([]byte, layout.BlockSize))
	b.Init(1, randVector(rng, 4))
	for i := 0; i < 5; i++ {
		require.NoError(t, b.AppendEdge(uint64(10+i), float32(i), randVector(rng, 4)))
	}
	// ---------------------------
	require.Equal(t, 2, b.FindEdge(12))
	require.Equal(t, -1, b.FindEdge(99))
	// ---------------------------
	newVec := randVector(rng, 4)
	b.ReplaceEdge(2, 42, 0.5, newVec)
	require.Equal(t, -1, b.FindEdge(12))
	got := b.Edge(2)
	require.Equal(t, uint64(42), got.RowId)
	require.Equal(t, float32(0.5), got.Distance)
	require.Equal(t, newVec, got.Vector)
	// ---------------------------
	// Swap-with-last delete: edge 14 (last) moves into slot 0
	first := b.Edge(0)
	last := b.Edge(4)
	b.DeleteEdge(0)
	require.Equal(t, 4, b.NumEdges())
	require.Equal(t, last.RowId, b.Edge(0).RowId)
	require.Equal(t, last.Vector, b.Edge(0).Vector)
	require.Equal(t, -1, b.FindEdge(first.RowId))
}

func Test_PruneTo(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	layout := testLayout(t, 4, 8)
	b := New(layout, make([]byte, layout.BlockSize))
	b.Init(1, randVector(rng, 4))
	kept := make([]Edge, 0, 3)
	for i := 0; i < 6; i++ {
		vec := randVector(rng, 4)
		require.NoError(t, b.AppendEdge(uint64(10+i), float32(i), vec))
	}
	for i := 0; i < 3; i++ {
		kept = append(kept, b.Edge(i))
	}
	b.PruneTo(3)
	require.Equal(t, 3, b.NumEdges())
	for i, e := range kept {
		require.Equal(t, e.RowId, b.Edge(i).RowId)
		require.Equal(t, e.Vector, b.Edge(i).Vector)
	}
	// Growing via PruneTo is a no-op
	b.PruneTo(5)
	require.Equal(t, 3, b.NumEdges())
}
