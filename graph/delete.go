package graph

import (
	"errors"
	"fmt"

	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/models"
)

// Delete removes a node and strips the reciprocal edge from every
// out-neighbour. In-edges from nodes the target never pointed back at become
// zombie edges; traversal skips those. A later prune of the owner does not
// check edge targets for existence, so it drops a zombie edge only when the
// pruning rule or the degree bound happens to exclude it.
func (idx *Index) Delete(bucket diskstore.Bucket, rowId uint64) error {
	store := idx.newStore(bucket)
	h, err := store.Read(rowId, false)
	if err != nil {
		return err
	}
	// ---------------------------
	b := h.Block()
	for i := 0; i < b.NumEdges(); i++ {
		neighbour := b.EdgeRowId(i)
		hn, err := store.Read(neighbour, true)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				// Zombie edge, the neighbour is already gone
				continue
			}
			h.Release()
			return fmt.Errorf("could not read neighbour %d: %w", neighbour, err)
		}
		bn := hn.Block()
		if j := bn.FindEdge(rowId); j >= 0 {
			bn.DeleteEdge(j)
			hn.MarkDirty()
			if err := store.Flush(hn); err != nil {
				hn.Release()
				h.Release()
				return err
			}
		}
		hn.Release()
	}
	h.Release()
	// ---------------------------
	return store.Delete(rowId)
}
