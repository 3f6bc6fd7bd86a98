package block

import (
	"fmt"

	"github.com/vectile/vectile/conversion"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/models"
)

// Per-index I/O counters. They live on the index handle and accumulate across
// operations; plain ints because the handle is single-threaded.
type Counters struct {
	NumReads    int64
	NumWrites   int64
	CacheHits   int64
	CacheMisses int64
}

// Store reads and writes node blocks inside one host transaction. It is
// cheap to construct and is re-created per operation with the transaction's
// bucket; the counters outlive it.
type Store struct {
	layout   Layout
	bucket   diskstore.Bucket
	counters *Counters
}

func NewStore(layout Layout, bucket diskstore.Bucket, counters *Counters) *Store {
	return &Store{layout: layout, bucket: bucket, counters: counters}
}

func (s *Store) Layout() Layout {
	return s.layout
}

// Exists reports whether a block for the rowid is stored.
func (s *Store) Exists(rowId uint64) bool {
	return s.bucket.Get(conversion.BlockKey(rowId)) != nil
}

// Read pins the block of a rowid. The caller owns one reference.
func (s *Store) Read(rowId uint64, writable bool) (*Handle, error) {
	val := s.bucket.Get(conversion.BlockKey(rowId))
	if val == nil {
		return nil, fmt.Errorf("%w: block %d", models.ErrNotFound, rowId)
	}
	if len(val) != s.layout.BlockSize {
		return nil, fmt.Errorf("%w: block %d has size %d, want %d", models.ErrCorrupt, rowId, len(val), s.layout.BlockSize)
	}
	s.counters.NumReads++
	buf := make([]byte, s.layout.BlockSize)
	copy(buf, val)
	return newHandle(s.layout, rowId, buf, writable), nil
}

// Create allocates a zero-filled block for a new node and pins it writable.
// The block is not stored until the handle is flushed.
func (s *Store) Create(rowId uint64, vector []float32) (*Handle, error) {
	if s.Exists(rowId) {
		return nil, fmt.Errorf("%w: block %d", models.ErrExists, rowId)
	}
	buf := make([]byte, s.layout.BlockSize)
	h := newHandle(s.layout, rowId, buf, true)
	h.Block().Init(rowId, vector)
	h.MarkDirty()
	return h, nil
}

// Flush writes the handle back when it is writable and dirty. Clean handles,
// read-only ones included, are a no-op so the cache can flush indiscriminately
// on eviction.
func (s *Store) Flush(h *Handle) error {
	if !h.dirty {
		return nil
	}
	if !h.writable {
		return fmt.Errorf("cannot flush read-only block handle %d", h.rowId)
	}
	if err := s.bucket.Put(conversion.BlockKey(h.rowId), h.buf); err != nil {
		return fmt.Errorf("%w: could not write block %d: %v", models.ErrIO, h.rowId, err)
	}
	s.counters.NumWrites++
	h.dirty = false
	return nil
}

// Reload points the handle at another rowid, reusing the pinned buffer. When
// the target is the block already pinned the stored bytes are re-read in
// place and no re-open happens.
func (s *Store) Reload(h *Handle, rowId uint64) error {
	val := s.bucket.Get(conversion.BlockKey(rowId))
	if val == nil {
		return fmt.Errorf("%w: block %d", models.ErrNotFound, rowId)
	}
	if len(val) != s.layout.BlockSize {
		return fmt.Errorf("%w: block %d has size %d, want %d", models.ErrCorrupt, rowId, len(val), s.layout.BlockSize)
	}
	copy(h.buf, val)
	h.rowId = rowId
	h.dirty = false
	return nil
}

// Delete removes the block of a rowid from storage. Held handles keep their
// pinned bytes.
func (s *Store) Delete(rowId uint64) error {
	if err := s.bucket.Delete(conversion.BlockKey(rowId)); err != nil {
		return fmt.Errorf("%w: could not delete block %d: %v", models.ErrIO, rowId, err)
	}
	s.counters.NumWrites++
	return nil
}

// ForEachRowId walks every stored rowid in key order.
func (s *Store) ForEachRowId(f func(rowId uint64) error) error {
	return s.bucket.RangeScan(nil, nil, true, func(k, v []byte) error {
		rowId, ok := conversion.RowIdFromKey(k)
		if !ok {
			return fmt.Errorf("%w: malformed block key %x", models.ErrCorrupt, k)
		}
		return f(rowId)
	})
}

// NextRowIdFrom returns the first stored rowid at or after the given one in
// key order, wrapping to the front of the table when nothing follows. Key
// order permutes numeric rowid order (little-endian keys compared
// byte-lexicographically), which is fine for its one caller: entry point
// sampling needs a live rowid per seek, not numeric succession. ok is false
// only when the table is empty.
func (s *Store) NextRowIdFrom(rowId uint64) (found uint64, ok bool) {
	stop := fmt.Errorf("stop")
	err := s.bucket.RangeScan(conversion.BlockKey(rowId), nil, true, func(k, v []byte) error {
		if id, valid := conversion.RowIdFromKey(k); valid {
			found, ok = id, true
			return stop
		}
		return nil
	})
	if err != nil && err != stop {
		return 0, false
	}
	if !ok {
		// Wrap around to the start of the table
		err = s.bucket.RangeScan(nil, nil, true, func(k, v []byte) error {
			if id, valid := conversion.RowIdFromKey(k); valid {
				found, ok = id, true
				return stop
			}
			return nil
		})
		if err != nil && err != stop {
			return 0, false
		}
	}
	return found, ok
}
