package graph

import (
	"errors"
	"fmt"

	"github.com/vectile/vectile/block"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/models"
)

/* Greedy best-first traversal with a bounded frontier. Each loop iteration
 * expands the nearest unexpanded candidate with a single block read; the
 * neighbours are scored from the inlined edge vector copies, so the cost per
 * expansion is one read regardless of degree. */

// sampleEntryPoints seeds the frontier with up to entryPointCount live
// rowids, drawn by seeking the block table from seeded random keys.
func (idx *Index) sampleEntryPoints(store *block.Store, visited *visitedSet, cb *candidateBuffer, query []float32, cache *block.LRUCache) error {
	for i := 0; i < entryPointCount; i++ {
		rowId, ok := store.NextRowIdFrom(idx.entropy.Uint64())
		if !ok {
			// Empty table, nothing to seed
			return nil
		}
		if !visited.Add(rowId) {
			continue
		}
		h, err := idx.getBlock(store, cache, rowId, false)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return err
		}
		vec := h.Block().Vector()
		h.Release()
		cb.Insert(candidateElem{
			rowId:    rowId,
			distance: idx.distFn(query, vec),
			vector:   vec,
		})
	}
	return nil
}

// beamSearch runs the traversal and returns the frontier sorted ascending by
// (distance, rowid). It only ever pins blocks for reading.
func (idx *Index) beamSearch(store *block.Store, cache *block.LRUCache, query []float32, beamWidth int) (*candidateBuffer, error) {
	visited := newVisitedSet(beamWidth * 2)
	cb := newCandidateBuffer(beamWidth)
	if err := idx.sampleEntryPoints(store, visited, cb, query, cache); err != nil {
		return nil, fmt.Errorf("could not sample entry points: %w", err)
	}
	// ---------------------------
	/* The stall counter implements the "frontier stops improving" cutoff: an
	 * expansion that admits no new candidate into the frontier counts as a
	 * stall, beamWidth stalls in a row terminate the search. With a bounded
	 * sorted frontier this triggers rarely because exhaustion usually wins. */
	stalls := 0
	for stalls < beamWidth {
		i := cb.NearestUnexpanded()
		if i < 0 {
			break
		}
		cb.items[i].expanded = true
		current := cb.items[i].rowId
		// ---------------------------
		h, err := idx.getBlock(store, cache, current, false)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				// Zombie edge target, drop it from the frontier
				cb.items[i].removed = true
				continue
			}
			return nil, fmt.Errorf("could not read block %d: %w", current, err)
		}
		b := h.Block()
		improved := false
		for e := 0; e < b.NumEdges(); e++ {
			edge := b.Edge(e)
			if !visited.Add(edge.RowId) {
				continue
			}
			admitted := cb.Insert(candidateElem{
				rowId:    edge.RowId,
				distance: idx.distFn(query, edge.Vector),
				vector:   edge.Vector,
			})
			improved = improved || admitted
		}
		h.Release()
		if improved {
			stalls = 0
		} else {
			stalls++
		}
	}
	return cb, nil
}

// Search answers a top-k query. Results are non-decreasing by distance with
// ties broken by rowid ascending. A zero searchListSize uses the configured
// search list.
func (idx *Index) Search(bucket diskstore.Bucket, query []float32, k, searchListSize int) ([]models.SearchResult, error) {
	if err := idx.validateVector(query); err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1", models.ErrInvalid)
	}
	if searchListSize == 0 {
		searchListSize = idx.parameters.SearchList
	}
	// The frontier must be able to hold the requested k
	beamWidth := max(searchListSize, k)
	// ---------------------------
	store := idx.newStore(bucket)
	cache, perOp := idx.opCache()
	if perOp {
		defer cache.Clear()
	}
	cb, err := idx.beamSearch(store, cache, query, beamWidth)
	if err != nil {
		return nil, fmt.Errorf("could not perform graph search: %w", err)
	}
	// ---------------------------
	results := make([]models.SearchResult, 0, min(k, cb.Len()))
	for _, elem := range cb.items {
		if len(results) >= k {
			break
		}
		if elem.removed {
			continue
		}
		// An unexpanded candidate was never verified against storage; it may
		// be a zombie edge target
		if !elem.expanded && !store.Exists(elem.rowId) {
			continue
		}
		results = append(results, models.SearchResult{
			RowId:    elem.rowId,
			Distance: elem.distance,
		})
	}
	return results, nil
}
