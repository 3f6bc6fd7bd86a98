package conversion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFloat32RoundTrip(t *testing.T) {
	vec := []float32{0, 1, -1, 0.5, math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(1))}
	b := Float32ToBytes(vec)
	require.Len(t, b, len(vec)*4)
	require.Equal(t, vec, BytesToFloat32(b))
}

func TestFloat32LittleEndianLayout(t *testing.T) {
	// 1.0 is 0x3f800000, stored little-endian
	b := Float32ToBytes([]float32{1.0})
	require.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, b)
}

func TestUint64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 42, math.MaxUint64} {
		require.Equal(t, v, BytesToUint64(Uint64ToBytes(v)))
	}
}

func TestBlockKey(t *testing.T) {
	key := BlockKey(4242)
	id, ok := RowIdFromKey(key)
	require.True(t, ok)
	require.Equal(t, uint64(4242), id)
	// ---------------------------
	_, ok = RowIdFromKey([]byte("short"))
	require.False(t, ok)
}
