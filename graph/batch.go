package graph

import (
	"fmt"

	"github.com/vectile/vectile/block"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/models"
)

type BatchFlags uint8

const (
	// Hold every block read of the batch in an owning cache so hub nodes
	// are not re-fetched on every insert.
	BatchOwningCache BatchFlags = 1 << iota
	// Skip phase 2 of insert and collect back-edges for a repair pass at
	// EndBatch.
	BatchDeferredBackEdges
)

type batchState struct {
	flags    BatchFlags
	cache    *block.LRUCache
	deferred *deferredList
}

func (bs *batchState) discard() {
	if bs.cache != nil {
		bs.cache.Clear()
	}
	if bs.deferred != nil {
		bs.deferred.discard()
	}
}

// ---------------------------

// BeginBatch opens a bulk-load bracket on the index. Nested batches are
// rejected.
func (idx *Index) BeginBatch(flags BatchFlags) error {
	if idx.batch != nil {
		return fmt.Errorf("%w: batch already open", models.ErrInvalid)
	}
	bs := &batchState{flags: flags}
	if flags&BatchOwningCache != 0 {
		bs.cache = block.NewLRUCache(models.DefaultBatchCacheSize, &idx.counters)
	}
	if flags&BatchDeferredBackEdges != 0 {
		bs.deferred = newDeferredList(idx.scratchDir(), idx.logger)
	}
	idx.batch = bs
	idx.logger.Debug().Uint8("flags", uint8(flags)).Msg("BeginBatch")
	return nil
}

// InBatch reports whether a batch bracket is open.
func (idx *Index) InBatch() bool {
	return idx.batch != nil
}

// BatchCache exposes the owning cache so tests and tools can tighten its
// capacity.
func (idx *Index) BatchCache() *block.LRUCache {
	if idx.batch == nil {
		return nil
	}
	return idx.batch.cache
}

// EndBatch runs the repair pass over the deferred back-edge list and
// releases the batch resources. The caller provides the blocks bucket of an
// open write transaction.
func (idx *Index) EndBatch(bucket diskstore.Bucket) error {
	if idx.batch == nil {
		return fmt.Errorf("%w: no batch open", models.ErrInvalid)
	}
	bs := idx.batch
	defer func() {
		bs.discard()
		idx.batch = nil
	}()
	// ---------------------------
	store := idx.newStore(bucket)
	if bs.cache != nil {
		bs.cache.OnEvict = func(h *block.Handle) error { return store.Flush(h) }
		defer func() { bs.cache.OnEvict = nil }()
	}
	if bs.deferred != nil {
		/* The repair pass drains the deferred list in chunks, groups each
		 * chunk by target node and applies every back-edge of a target in a
		 * single open/prune/write cycle. */
		applied := 0
		err := bs.deferred.Drain(func(groups map[uint64][]deferredEdge) error {
			for target, entries := range groups {
				if err := idx.applyBackEdgeGroup(store, bs.cache, target, entries); err != nil {
					return err
				}
				applied += len(entries)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("could not repair deferred back-edges: %w", err)
		}
		idx.logger.Debug().Int("backEdges", applied).Msg("EndBatch - Repair")
	}
	// ---------------------------
	if bs.cache != nil {
		if err := bs.cache.FlushDirty(store.Flush); err != nil {
			return fmt.Errorf("could not flush batch cache: %w", err)
		}
	}
	return nil
}

// applyBackEdgeGroup adds every deferred edge of one target node in a single
// cycle, pruning once if the result would exceed the degree bound.
func (idx *Index) applyBackEdgeGroup(store *block.Store, cache *block.LRUCache, target uint64, entries []deferredEdge) error {
	h, err := idx.getBlock(store, cache, target, true)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			// Target deleted mid-batch, its back-edges are moot
			return nil
		}
		return err
	}
	defer h.Release()
	b := h.Block()
	// ---------------------------
	fresh := make([]deferredEdge, 0, len(entries))
	seen := make(map[uint64]struct{}, len(entries))
	for _, e := range entries {
		if e.RowId == target || b.FindEdge(e.RowId) >= 0 {
			continue
		}
		if _, ok := seen[e.RowId]; ok {
			continue
		}
		if !store.Exists(e.RowId) {
			// The source node was deleted mid-batch
			continue
		}
		seen[e.RowId] = struct{}{}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return nil
	}
	// ---------------------------
	if b.NumEdges()+len(fresh) <= idx.parameters.MaxDegree {
		for _, e := range fresh {
			if err := b.AppendEdge(e.RowId, e.Distance, e.Vector); err != nil {
				return err
			}
		}
		h.MarkDirty()
		return store.Flush(h)
	}
	// ---------------------------
	pool := newCandidateBuffer(b.NumEdges() + len(fresh))
	for i := 0; i < b.NumEdges(); i++ {
		e := b.Edge(i)
		pool.Insert(candidateElem{rowId: e.RowId, distance: e.Distance, vector: e.Vector})
	}
	for _, e := range fresh {
		pool.Insert(candidateElem{rowId: e.RowId, distance: e.Distance, vector: e.Vector})
	}
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
