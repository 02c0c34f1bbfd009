package patch

import "sync"

// DefaultCacheSize is the 50 MiB bound spec.md §5 names for the puff
// cache's default capacity.
const DefaultCacheSize = 50 * 1024 * 1024

// Cache bounds the in-memory materialization of a puff stream described
// in spec.md §5. Adapted from the teacher's cache.FifoCache
// (cache/cache.go): same FIFO linked-list eviction shape, but keyed by
// puff byte offset instead of content hash, and bounded by cumulative
// buffered byte size instead of entry count, since puff segments vary
// wildly in size and an entry-count cap says nothing about memory use.
type Cache struct {
	head, tail *cacheEntry
	data       map[int64][]byte
	size       int64
	capacity   int64
	mutex      sync.RWMutex
}

type cacheEntry struct {
	Offset int64
	Next   *cacheEntry
}

// NewCache returns a Cache that evicts its oldest entries once the sum of
// buffered byte lengths would exceed capacity. capacity <= 0 means
// DefaultCacheSize.
func NewCache(capacity int64) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{data: make(map[int64][]byte), capacity: capacity}
}

// Get returns the cached puff bytes starting at offset, if present.
func (c *Cache) Get(offset int64) (value []byte, exists bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	value, exists = c.data[offset]
	return
}

// Set caches value under offset, evicting the oldest entries first until
// the total buffered size (including value) fits within capacity. A
// single entry larger than capacity is still stored, since refusing it
// would make it permanently uncachable, but eviction empties everything
// else out first.
func (c *Cache) Set(offset int64, value []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if old, exists := c.data[offset]; exists {
		c.size -= int64(len(old))
	} else {
		entry := &cacheEntry{Offset: offset}
		if c.head == nil {
			c.head = entry
		}
		if c.tail == nil {
			c.tail = entry
		} else {
			c.tail.Next = entry
			c.tail = entry
		}
	}
	c.data[offset] = value
	c.size += int64(len(value))

	for c.size > c.capacity && c.head != nil {
		if c.head.Offset == offset {
			if c.head == c.tail {
				break
			}
			// Keep the entry just set: move it behind the others so they
			// are evicted first.
			kept := c.head
			c.head = kept.Next
			kept.Next = nil
			c.tail.Next = kept
			c.tail = kept
			continue
		}
		evicted := c.head
		c.head = evicted.Next
		if c.head == nil {
			c.tail = nil
		}
		if old, ok := c.data[evicted.Offset]; ok {
			c.size -= int64(len(old))
			delete(c.data, evicted.Offset)
		}
	}
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Size returns the total number of bytes currently buffered.
func (c *Cache) Size() int64 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.size
}
