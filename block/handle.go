package block

import "fmt"

/* A handle is a pinned window over one node's bytes. The buffer is a private
 * copy of the stored value, so a handle stays valid after its originating
 * transaction closes; Flush writes the bytes back through whichever store the
 * current operation holds.
 *
 * Lifetime rules: the creator holds one reference, every additional strong
 * holder (a cache slot, a traversal frame) takes one more via Retain and
 * gives it back via Release. The buffer is freed exactly when the count hits
 * zero. The count is a plain int because index handles are single-threaded
 * by contract. */
type Handle struct {
	layout   Layout
	rowId    uint64
	buf      []byte
	writable bool
	dirty    bool
	refs     int
}

func newHandle(layout Layout, rowId uint64, buf []byte, writable bool) *Handle {
	return &Handle{
		layout:   layout,
		rowId:    rowId,
		buf:      buf,
		writable: writable,
		refs:     1,
	}
}

func (h *Handle) RowId() uint64 {
	return h.rowId
}

func (h *Handle) IsWritable() bool {
	return h.writable
}

func (h *Handle) IsDirty() bool {
	return h.dirty
}

// MarkDirty records that the buffer diverged from storage. Every mutation
// through Writable must be followed by it or a Flush will be skipped.
func (h *Handle) MarkDirty() {
	h.dirty = true
}

// Block returns the codec view over the pinned bytes.
func (h *Handle) Block() Block {
	return New(h.layout, h.buf)
}

// Refs exposes the current reference count for accounting tests.
func (h *Handle) Refs() int {
	return h.refs
}

func (h *Handle) Retain() *Handle {
	if h.buf == nil {
		panic("retain of freed block handle")
	}
	h.refs++
	return h
}

func (h *Handle) Release() {
	if h.refs <= 0 {
		panic(fmt.Sprintf("release of block handle %d with %d refs", h.rowId, h.refs))
	}
	h.refs--
	if h.refs == 0 {
		h.buf = nil
	}
}
