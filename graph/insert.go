package graph

import (
	"errors"
	"fmt"

	"github.com/vectile/vectile/block"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/models"
)

/* Insert is two-phase. Phase 1 searches the graph for the new node's
 * neighbourhood, prunes it and writes the forward edges. Phase 2 inserts the
 * reciprocal edge into every chosen neighbour, re-pruning any neighbour that
 * would exceed the degree bound. Both phases run inside the caller's host
 * transaction, so a failure anywhere rolls the whole statement back and no
 * partial forward edges survive. In batch mode with deferred back-edges
 * phase 2 is replaced by an append to the deferred list. */

func (idx *Index) Insert(bucket diskstore.Bucket, rowId uint64, vector []float32) error {
	if err := idx.validateVector(vector); err != nil {
		return err
	}
	if rowId == visitedEmpty {
		// The all-ones rowid is the visited set's empty sentinel
		return fmt.Errorf("%w: rowid %d is reserved", models.ErrInvalid, rowId)
	}
	// ---------------------------
	store := idx.newStore(bucket)
	if store.Exists(rowId) {
		return fmt.Errorf("%w: rowid %d", models.ErrExists, rowId)
	}
	// ---------------------------
	// First node of an empty index has no neighbours to find
	if _, ok := store.NextRowIdFrom(0); !ok {
		h, err := store.Create(rowId, vector)
		if err != nil {
			return err
		}
		err = store.Flush(h)
		h.Release()
		return err
	}
	// ---------------------------
	cache, perOp := idx.opCache()
	if perOp {
		defer cache.Clear()
	}
	h, err := store.Create(rowId, vector)
	if err != nil {
		return err
	}
	defer h.Release()
	// ---------------------------
	// Collect the candidate pool with a build-width beam search
	cb, err := idx.beamSearch(store, cache, vector, idx.parameters.BuildSearchList)
	if err != nil {
		return fmt.Errorf("could not search for neighbours: %w", err)
	}
	edges := robustPrune(cb.items, rowId, idx.parameters.PruneAlpha, idx.parameters.MaxDegree, idx.distFn)
	edges = dropDeadCandidates(store, edges)
	// ---------------------------
	b := h.Block()
	for _, e := range edges {
		if err := b.AppendEdge(e.rowId, e.distance, e.vector); err != nil {
			return fmt.Errorf("could not write forward edge: %w", err)
		}
	}
	h.MarkDirty()
	if err := store.Flush(h); err != nil {
		return err
	}
	// ---------------------------
	// Phase 2: reciprocal edges
	if idx.batch != nil && idx.batch.deferred != nil {
		for _, e := range edges {
			entry := deferredEdge{
				Target:   e.rowId,
				RowId:    rowId,
				Distance: e.distance,
				Vector:   vector,
			}
			if err := idx.batch.deferred.Append(entry); err != nil {
				return fmt.Errorf("could not defer back-edge: %w", err)
			}
		}
		return nil
	}
	for _, e := range edges {
		if err := idx.addBackEdge(store, cache, e.rowId, rowId, e.distance, vector); err != nil {
			return fmt.Errorf("could not add back-edge to %d: %w", e.rowId, err)
		}
	}
	return nil
}

// dropDeadCandidates removes pool survivors the search never verified
// against storage. A candidate that was only ever scored from a neighbour's
// inlined vector copy can outlive its node when the frontier terminates
// early; writing it as a forward edge would point a brand-new edge at a
// nonexistent block. Expanded candidates were read during the search, so
// only unexpanded ones need the existence check, the same filter the query
// path applies before returning results.
func dropDeadCandidates(store *block.Store, edges []candidateElem) []candidateElem {
	live := edges[:0]
	for _, e := range edges {
		if !e.expanded && !store.Exists(e.rowId) {
			continue
		}
		live = append(live, e)
	}
	return live
}

// addBackEdge inserts the edge target -> newRowId, re-pruning the target's
// adjacency when it would exceed the degree bound.
func (idx *Index) addBackEdge(store *block.Store, cache *block.LRUCache, target, newRowId uint64, dist float32, newVector []float32) error {
	h, err := idx.getBlock(store, cache, target, true)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// The neighbour vanished mid-batch, its back-edge is moot
			return nil
		}
		return err
	}
	defer h.Release()
	b := h.Block()
	// ---------------------------
	if b.FindEdge(newRowId) >= 0 {
		return nil
	}
	if b.NumEdges() < idx.parameters.MaxDegree {
		if err := b.AppendEdge(newRowId, dist, newVector); err != nil {
			return err
		}
		h.MarkDirty()
		return store.Flush(h)
	}
	// ---------------------------
	/* The target is full: pool its current edges plus the new one and re-run
	 * robust pruning. The cached edge distances make the pool free to build,
	 * no block read beyond the one already pinned. */
	pool := newCandidateBuffer(b.NumEdges() + 1)
	for i := 0; i < b.NumEdges(); i++ {
		e := b.Edge(i)
		pool.Insert(candidateElem{rowId: e.RowId, distance: e.Distance, vector: e.Vector})
	}
	pool.Insert(candidateElem{rowId: newRowId, distance: dist, vector: newVector})
	edges := robustPrune(pool.items, target, idx.parameters.PruneAlpha, idx.parameters.MaxDegree, idx.distFn)
	// ---------------------------
	b.ClearEdges()
	for _, e := range edges {
		if err := b.AppendEdge(e.rowId, e.distance, e.vector); err != nil {
			return err
		}
	}
	h.MarkDirty()
	return store.Flush(h)
}
