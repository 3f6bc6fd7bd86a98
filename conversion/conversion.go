package conversion

import (
	"encoding/binary"
	"math"
	"unsafe"
)

/* All scalar fields on disk are little-endian, all floats are IEEE-754
 * binary32. On little-endian machines the float conversions below reduce to a
 * byte copy; the explicit bit shuffling keeps big-endian machines correct
 * rather than fast, which is fine because none run this in production. */

func Uint64ToBytes(i uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, i)
	return b
}

func BytesToUint64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// ---------------------------

func Float32ToBytes(f []float32) []byte {
	b := make([]byte, len(f)*4)
	PutFloat32(b, f)
	return b
}

func BytesToFloat32(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	ReadFloat32(b, f)
	return f
}

// PutFloat32 writes the vector into a pre-sized byte slice.
func PutFloat32(dst []byte, f []float32) {
	if isLittleEndian {
		copy(dst, unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4))
		return
	}
	for i, v := range f {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// ReadFloat32 fills the vector from a byte slice without allocating.
func ReadFloat32(src []byte, f []float32) {
	if isLittleEndian {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4), src)
		return
	}
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

var isLittleEndian = func() bool {
	var x uint16 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 1
}()
