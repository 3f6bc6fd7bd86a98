package block

import (
	"encoding/binary"
	"fmt"

	"github.com/vectile/vectile/conversion"
)

// An edge as the codec hands it out. The vector is copied out of the block
// so it stays valid after the handle is released.
type Edge struct {
	RowId    uint64
	Distance float32
	Vector   []float32
}

// Block is the codec view over one node's bytes. It never owns the buffer,
// the handle does.
type Block struct {
	layout Layout
	buf    []byte
}

func New(layout Layout, buf []byte) Block {
	return Block{layout: layout, buf: buf}
}

// Init writes a fresh node with zero edges over the buffer.
func (b Block) Init(rowId uint64, vector []float32) {
	clear(b.buf)
	binary.LittleEndian.PutUint64(b.buf[0:8], rowId)
	// n_edges, padding and reserved stay zero
	conversion.PutFloat32(b.buf[headerSize:headerSize+b.layout.VectorSize], vector)
}

func (b Block) RowId() uint64 {
	return binary.LittleEndian.Uint64(b.buf[0:8])
}

func (b Block) NumEdges() int {
	return int(binary.LittleEndian.Uint16(b.buf[8:10]))
}

func (b Block) setNumEdges(n int) {
	binary.LittleEndian.PutUint16(b.buf[8:10], uint16(n))
}

func (b Block) SetVector(vector []float32) {
	conversion.PutFloat32(b.buf[headerSize:headerSize+b.layout.VectorSize], vector)
}

// Vector returns a copy of the node vector.
func (b Block) Vector() []float32 {
	out := make([]float32, b.layout.Dimension)
	conversion.ReadFloat32(b.buf[headerSize:headerSize+b.layout.VectorSize], out)
	return out
}

// Edge decodes edge i. The vector is freshly allocated so it survives the
// handle being released.
func (b Block) Edge(i int) Edge {
	vec := make([]float32, b.layout.Dimension)
	off := b.layout.edgeVectorOffset(i)
	conversion.ReadFloat32(b.buf[off:off+b.layout.VectorSize], vec)
	meta := b.layout.edgeMetaOffset(b.NumEdges(), i)
	return Edge{
		RowId:    binary.LittleEndian.Uint64(b.buf[meta : meta+8]),
		Distance: bytesToFloat32(b.buf[meta+8 : meta+12]),
		Vector:   vec,
	}
}

// EdgeRowId decodes only the rowid of edge i, avoiding the vector copy.
func (b Block) EdgeRowId(i int) uint64 {
	meta := b.layout.edgeMetaOffset(b.NumEdges(), i)
	return binary.LittleEndian.Uint64(b.buf[meta : meta+8])
}

// EdgeDistance decodes only the cached distance of edge i.
func (b Block) EdgeDistance(i int) float32 {
	meta := b.layout.edgeMetaOffset(b.NumEdges(), i)
	return bytesToFloat32(b.buf[meta+8 : meta+12])
}

// FindEdge returns the position of the edge to target, or -1.
func (b Block) FindEdge(target uint64) int {
	n := b.NumEdges()
	for i := 0; i < n; i++ {
		if b.EdgeRowId(i) == target {
			return i
		}
	}
	return -1
}

// AppendEdge adds an edge at the end. The metadata region shifts up by one
// vector width to stay packed against the vector region.
func (b Block) AppendEdge(rowId uint64, dist float32, vector []float32) error {
	n := b.NumEdges()
	if n >= b.layout.EdgeCapacity {
		return fmt.Errorf("block %d is at edge capacity %d", b.RowId(), b.layout.EdgeCapacity)
	}
	oldMeta := b.layout.edgeMetaOffset(n, 0)
	newMeta := b.layout.edgeMetaOffset(n+1, 0)
	copy(b.buf[newMeta:newMeta+n*edgeMetaSize], b.buf[oldMeta:oldMeta+n*edgeMetaSize])
	// ---------------------------
	off := b.layout.edgeVectorOffset(n)
	conversion.PutFloat32(b.buf[off:off+b.layout.VectorSize], vector)
	b.setNumEdges(n + 1)
	b.writeEdgeMeta(n+1, n, rowId, dist)
	return nil
}

// ReplaceEdge overwrites edge i in place.
func (b Block) ReplaceEdge(i int, rowId uint64, dist float32, vector []float32) {
	off := b.layout.edgeVectorOffset(i)
	conversion.PutFloat32(b.buf[off:off+b.layout.VectorSize], vector)
	b.writeEdgeMeta(b.NumEdges(), i, rowId, dist)
}

// DeleteEdge removes edge i by swapping with the last edge and shrinking.
func (b Block) DeleteEdge(i int) {
	n := b.NumEdges()
	last := n - 1
	if i != last {
		vi, vl := b.layout.edgeVectorOffset(i), b.layout.edgeVectorOffset(last)
		copy(b.buf[vi:vi+b.layout.VectorSize], b.buf[vl:vl+b.layout.VectorSize])
		mi, ml := b.layout.edgeMetaOffset(n, i), b.layout.edgeMetaOffset(n, last)
		copy(b.buf[mi:mi+edgeMetaSize], b.buf[ml:ml+edgeMetaSize])
	}
	b.shrinkTo(n, last)
}

// PruneTo keeps the first n edges and drops the rest.
func (b Block) PruneTo(n int) {
	current := b.NumEdges()
	if n >= current {
		return
	}
	b.shrinkTo(current, n)
}

// ClearEdges drops every edge.
func (b Block) ClearEdges() {
	b.shrinkTo(b.NumEdges(), 0)
}

// shrinkTo moves the metadata region down to its position for the new edge
// count and updates the header.
func (b Block) shrinkTo(oldCount, newCount int) {
	oldMeta := b.layout.edgeMetaOffset(oldCount, 0)
	newMeta := b.layout.edgeMetaOffset(newCount, 0)
	copy(b.buf[newMeta:newMeta+newCount*edgeMetaSize], b.buf[oldMeta:oldMeta+newCount*edgeMetaSize])
	b.setNumEdges(newCount)
	// Zero the tail so identical graphs produce identical block bytes
	tail := newMeta + newCount*edgeMetaSize
	oldEnd := oldMeta + oldCount*edgeMetaSize
	clear(b.buf[tail:oldEnd])
}

func (b Block) writeEdgeMeta(numEdges, i int, rowId uint64, dist float32) {
	meta := b.layout.edgeMetaOffset(numEdges, i)
	binary.LittleEndian.PutUint64(b.buf[meta:meta+8], rowId)
	putFloat32(b.buf[meta+8:meta+12], dist)
	clear(b.buf[meta+12 : meta+16])
}
