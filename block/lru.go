package block

/* Bounded LRU over block handles. The cache is exclusively a reference
 * holder, never the sole owner: every slot holds one reference taken with
 * Retain and given back on eviction or Clear, so an eviction can never free a
 * handle a traversal still uses.
 *
 * Lookup is a linear scan. At the default capacity of 100 the scan is a few
 * cache lines and beats maintaining a map plus a list, the same trade the
 * rest of the index makes for small fixed-size structures. */

type lruEntry struct {
	rowId    uint64
	handle   *Handle
	lastUsed uint64
}

type LRUCache struct {
	entries  []lruEntry
	capacity int
	tick     uint64
	counters *Counters
	// Called with the evicted handle before its reference is released, while
	// the cache still holds it. Batch mode uses it to flush dirty handles.
	OnEvict func(h *Handle) error
}

func NewLRUCache(capacity int, counters *Counters) *LRUCache {
	return &LRUCache{
		entries:  make([]lruEntry, 0, capacity),
		capacity: capacity,
		counters: counters,
	}
}

func (c *LRUCache) Len() int {
	return len(c.entries)
}

// Resize changes the capacity, evicting oldest entries if shrinking.
func (c *LRUCache) Resize(capacity int) error {
	c.capacity = capacity
	for len(c.entries) > capacity {
		if err := c.evictOldest(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the cached handle with a fresh reference for the caller, or
// nil on miss.
func (c *LRUCache) Get(rowId uint64) *Handle {
	for i := range c.entries {
		if c.entries[i].rowId == rowId {
			c.tick++
			c.entries[i].lastUsed = c.tick
			c.counters.CacheHits++
			return c.entries[i].handle.Retain()
		}
	}
	c.counters.CacheMisses++
	return nil
}

// Put inserts or refreshes a cache slot. The cache takes its own reference;
// the caller keeps theirs.
func (c *LRUCache) Put(rowId uint64, h *Handle) error {
	c.tick++
	for i := range c.entries {
		if c.entries[i].rowId == rowId {
			if c.entries[i].handle == h {
				c.entries[i].lastUsed = c.tick
				return nil
			}
			// Same rowid, different handle: swap the held reference
			c.entries[i].handle.Release()
			c.entries[i].handle = h.Retain()
			c.entries[i].lastUsed = c.tick
			return nil
		}
	}
	if len(c.entries) >= c.capacity {
		if err := c.evictOldest(); err != nil {
			return err
		}
	}
	c.entries = append(c.entries, lruEntry{rowId: rowId, handle: h.Retain(), lastUsed: c.tick})
	return nil
}

func (c *LRUCache) evictOldest() error {
	oldest := 0
	for i := 1; i < len(c.entries); i++ {
		if c.entries[i].lastUsed < c.entries[oldest].lastUsed {
			oldest = i
		}
	}
	victim := c.entries[oldest]
	if c.OnEvict != nil {
		if err := c.OnEvict(victim.handle); err != nil {
			return err
		}
	}
	c.entries[oldest] = c.entries[len(c.entries)-1]
	c.entries = c.entries[:len(c.entries)-1]
	victim.handle.Release()
	return nil
}

// FlushDirty runs the callback for every dirty handle in the cache. EndBatch
// calls it once after the repair pass so dirty blocks held by the owning
// cache land in that transaction.
func (c *LRUCache) FlushDirty(f func(h *Handle) error) error {
	for i := range c.entries {
		if c.entries[i].handle.IsDirty() {
			if err := f(c.entries[i].handle); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clear releases every held reference.
func (c *LRUCache) Clear() {
	for i := range c.entries {
		c.entries[i].handle.Release()
	}
	c.entries = c.entries[:0]
}
