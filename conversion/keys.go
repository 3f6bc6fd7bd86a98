package conversion

import "encoding/binary"

// Converts a rowid to the byte slice key of its block in the blocks shadow
// table. The key is the fixed-width little-endian rowid, so the store's
// byte-lexicographic key order is a permutation of numeric rowid order, not
// the order itself. Nothing iterates blocks numerically: enumeration is
// unordered and entry sampling only needs seeks to land on some live rowid.
func BlockKey(rowId uint64) []byte {
	key := [8]byte{}
	binary.LittleEndian.PutUint64(key[:], rowId)
	return key[:]
}

// Checks if a given key is a valid block key and returns the rowid.
func RowIdFromKey(key []byte) (uint64, bool) {
	if len(key) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(key), true
}
