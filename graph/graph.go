// Package graph implements the Vamana-style graph index: beam search over
// node blocks, alpha-relaxed robust pruning, two-phase insert with back-edge
// maintenance, delete, and the bulk-load batch mode.
package graph

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cespare/xxhash"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vectile/vectile/block"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/distance"
	"github.com/vectile/vectile/models"
)

// Number of live rowids sampled as search entry points.
const entryPointCount = 4

// Index is a single graph index handle. It is single-threaded by contract:
// the host engine serialises every call, so no internal locking exists and
// the block handle refcounts are plain ints.
type Index struct {
	name       string
	instanceId uuid.UUID
	parameters models.IndexParameters
	layout     block.Layout
	distFn     distance.FloatDistFunc
	counters   block.Counters
	/* Entry points are sampled from this generator. It is seeded from the
	 * index name so a fixed name and a fixed insert sequence rebuild a
	 * bitwise identical graph, which the random-entry design would otherwise
	 * lose. */
	entropy *rand.Rand
	logger  zerolog.Logger
	batch   *batchState
	// Root directory for batch spill scratch space, defaults to the
	// process temp directory.
	ScratchRoot string
}

func NewIndex(name string, parameters models.IndexParameters) (*Index, error) {
	if err := parameters.Validate(); err != nil {
		return nil, err
	}
	distFn, err := distance.GetFloatDistanceFn(parameters.Metric)
	if err != nil {
		return nil, fmt.Errorf("could not get distance function: %w", err)
	}
	layout, err := block.NewLayout(parameters.Dimension, parameters.BlockSize, parameters.MaxDegree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalid, err)
	}
	idx := &Index{
		name:       name,
		instanceId: uuid.New(),
		parameters: parameters,
		layout:     layout,
		distFn:     distFn,
		entropy:    rand.New(rand.NewSource(int64(xxhash.Sum64String(name)))),
		logger:     log.With().Str("component", "graph").Str("index", name).Logger(),
	}
	return idx, nil
}

func (idx *Index) Name() string {
	return idx.name
}

func (idx *Index) Parameters() models.IndexParameters {
	return idx.parameters
}

func (idx *Index) Layout() block.Layout {
	return idx.layout
}

// Counters returns a snapshot of the per-index I/O counters.
func (idx *Index) Counters() block.Counters {
	return idx.counters
}

// Close releases any batch resources. Closing mid-batch discards the
// deferred back-edge list: forward edges stay consistent, the dropped
// back-edges cost recall until the affected nodes are re-inserted.
func (idx *Index) Close() error {
	if idx.batch != nil {
		idx.logger.Warn().Msg("closing index with open batch, deferred back-edges discarded")
		idx.batch.discard()
		idx.batch = nil
	}
	return nil
}

// ---------------------------

func (idx *Index) newStore(bucket diskstore.Bucket) *block.Store {
	return block.NewStore(idx.layout, bucket, &idx.counters)
}

// opCache returns the cache for the current operation: the owning batch
// cache when one is open, otherwise a fresh per-operation LRU which the
// caller must Clear.
func (idx *Index) opCache() (cache *block.LRUCache, perOp bool) {
	if idx.batch != nil && idx.batch.cache != nil {
		return idx.batch.cache, false
	}
	return block.NewLRUCache(models.DefaultLRUCapacity, &idx.counters), true
}

// getBlock pins a block, serving reads from the cache when possible. The
// caller owns one reference on the returned handle. Writable requests always
// re-read storage so the freshest bytes are mutated, and refresh the cache
// slot.
func (idx *Index) getBlock(store *block.Store, cache *block.LRUCache, rowId uint64, writable bool) (*block.Handle, error) {
	if cache != nil && !writable {
		if h := cache.Get(rowId); h != nil {
			return h, nil
		}
	}
	h, err := store.Read(rowId, writable)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		if err := cache.Put(rowId, h); err != nil {
			h.Release()
			return nil, err
		}
	}
	return h, nil
}

// validateVector rejects dimension mismatches and non-finite components.
func (idx *Index) validateVector(vector []float32) error {
	if len(vector) != idx.parameters.Dimension {
		return fmt.Errorf("%w: got %d, index has %d", models.ErrDimension, len(vector), idx.parameters.Dimension)
	}
	for _, v := range vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: vector components must be finite", models.ErrInvalid)
		}
	}
	return nil
}
