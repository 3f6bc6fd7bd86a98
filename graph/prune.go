package graph

import "github.com/vectile/vectile/models"

/* Alpha-relaxed robust pruning. Given a candidate pool sorted ascending by
 * distance to the node being pruned, repeatedly admit the nearest remaining
 * candidate and eliminate every q it dominates:
 *
 *     alpha * d(p*, q) <= d(node, q)
 *
 * A larger alpha keeps longer-range edges and makes the graph navigable; the
 * minimum-degree floor stops the rule from isolating nodes on clustered
 * data, which shows up at scale as unreachable islands. */

// robustPrune selects at most maxDegree edges from the pool. The pool must
// be sorted ascending; elements whose rowId equals self are skipped. The
// returned slice aliases pool entries, not the pool itself.
func robustPrune(pool []candidateElem, self uint64, alpha float32, maxDegree int, distFn func(x, y []float32) float32) []candidateElem {
	/* Entries already flagged removed (zombie targets dropped by the search)
	 * stay excluded. */
	edges := make([]candidateElem, 0, maxDegree)
	// ---------------------------
	for i := 0; i < len(pool) && len(edges) < maxDegree; i++ {
		closest := pool[i]
		if closest.removed || closest.rowId == self {
			continue
		}
		edges = append(edges, closest)
		// ---------------------------
		/* Minimum-degree floor: while the edge set is still below the floor,
		 * admit candidates unconditionally instead of eliminating them. */
		if len(edges) < models.DefaultMinDegree {
			continue
		}
		for j := i + 1; j < len(pool); j++ {
			next := &pool[j]
			if next.removed {
				continue
			}
			if alpha*distFn(closest.vector, next.vector) <= next.distance {
				next.removed = true
			}
		}
	}
	return edges
}
