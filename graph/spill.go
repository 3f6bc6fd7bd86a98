package graph

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

/* The deferred back-edge list lives in memory until it crosses the bound,
 * then overflows into a badger scratch store under the host-owned scratch
 * directory. The scratch is deliberately outside the host transaction: if
 * the process dies mid-batch the list is simply lost, forward edges stay
 * durable and recall degrades until the affected nodes are re-inserted. */

const (
	maxDeferredInMemory = 1 << 14
	drainChunkSize      = 1 << 13
)

// A back-edge that phase 2 would have written: Target gains an edge to
// RowId.
type deferredEdge struct {
	Target   uint64    `msgpack:"target"`
	RowId    uint64    `msgpack:"rowId"`
	Distance float32   `msgpack:"distance"`
	Vector   []float32 `msgpack:"vector"`
}

type deferredList struct {
	entries  []deferredEdge
	spill    *badger.DB
	spillDir string
	seq      uint64
	logger   zerolog.Logger
}

func newDeferredList(scratchDir string, logger zerolog.Logger) *deferredList {
	return &deferredList{
		entries:  make([]deferredEdge, 0, 1024),
		spillDir: scratchDir,
		logger:   logger,
	}
}

// scratchDir is where this index spills, unique per instance so concurrent
// processes never collide.
func (idx *Index) scratchDir() string {
	root := idx.ScratchRoot
	if root == "" {
		root = os.TempDir()
	}
	return filepath.Join(root, "vectile-spill-"+idx.instanceId.String())
}

func (dl *deferredList) Append(e deferredEdge) error {
	if len(dl.entries) < maxDeferredInMemory {
		dl.entries = append(dl.entries, e)
		return nil
	}
	// ---------------------------
	if dl.spill == nil {
		opts := badger.DefaultOptions(dl.spillDir).WithLogger(nil)
		db, err := badger.Open(opts)
		if err != nil {
			return fmt.Errorf("could not open spill store %s: %w", dl.spillDir, err)
		}
		dl.spill = db
		dl.logger.Debug().Str("dir", dl.spillDir).Msg("Deferred list spilling to scratch")
	}
	// ---------------------------
	val, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("could not encode deferred edge: %w", err)
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, dl.seq)
	dl.seq++
	return dl.spill.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// Drain feeds the whole list, grouped by target, to f in bounded chunks. A
// target whose entries span a chunk boundary gets more than one cycle, which
// is correct because back-edge application is idempotent.
func (dl *deferredList) Drain(f func(groups map[uint64][]deferredEdge) error) error {
	groups := make(map[uint64][]deferredEdge)
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		if err := f(groups); err != nil {
			return err
		}
		clear(groups)
		pending = 0
		return nil
	}
	add := func(e deferredEdge) error {
		groups[e.Target] = append(groups[e.Target], e)
		pending++
		if pending >= drainChunkSize {
			return flush()
		}
		return nil
	}
	// ---------------------------
	for _, e := range dl.entries {
		if err := add(e); err != nil {
			return err
		}
	}
	if dl.spill != nil {
		err := dl.spill.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Rewind(); it.Valid(); it.Next() {
				var e deferredEdge
				err := it.Item().Value(func(val []byte) error {
					return msgpack.Unmarshal(val, &e)
				})
				if err != nil {
					return fmt.Errorf("could not decode deferred edge: %w", err)
				}
				if err := add(e); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return flush()
}

// discard drops the list and its scratch without applying anything.
func (dl *deferredList) discard() {
	dl.entries = nil
	if dl.spill != nil {
		if err := dl.spill.Close(); err != nil {
			dl.logger.Error().Err(err).Msg("could not close spill store")
		}
		if err := os.RemoveAll(dl.spillDir); err != nil {
			dl.logger.Error().Err(err).Msg("could not remove spill scratch")
		}
		dl.spill = nil
	}
}
