// Package cache provides an LRU cache of clustering results keyed by a
// digest of the input batch, so that resubmitting an identical batch (a
// common occurrence when an upstream client retries after a network blip)
// returns the previous result without recomputing it.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"
)

// BatchKey uniquely identifies a clustering batch: the layer name plus a
// digest of every point's coordinates, auxiliary coordinate and weight.
type BatchKey string

// NewBatchKey digests every point's coordinates, auxiliary coordinate and
// weight, prefixed with the target layer name so that two layers never
// collide on the same point data.
func NewBatchKey(layer string, coords [][]float32, addCoord, weight []float32) BatchKey {
	h := sha256.New()
	h.Write([]byte(layer))

	for i, c := range coords {
		for _, v := range c {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			h.Write(buf[:])
		}
		var buf [8]byte
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(addCoord[i]))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(weight[i]))
		h.Write(buf[:])
	}

	return BatchKey(fmt.Sprintf("batch:%x", h.Sum(nil)))
}

// Result is the cached clustering outcome for one batch.
type Result struct {
	ClusterIndex []int
	IsSeed       []bool
	NumClusters  int
	NumOutliers  int
}

// entry is a single slot in the LRU's backing list.
type entry struct {
	key       BatchKey
	value     Result
	expiresAt time.Time
}

// LRUCache is a thread-safe, capacity-bounded, optionally time-limited
// cache of clustering Results. Hits move the entry to the front; inserts
// past capacity evict the oldest entry.
type LRUCache struct {
	capacity int
	ttl      time.Duration

	mu    sync.RWMutex
	index map[BatchKey]*list.Element
	order *list.List

	hits   int64
	misses int64
}

// NewLRUCache creates a cache holding up to capacity entries. ttl == 0
// means entries never expire on their own (only LRU eviction removes them).
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		index:    make(map[BatchKey]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached Result for key, if present and unexpired.
func (c *LRUCache) Get(key BatchKey) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		c.misses++
		return Result{}, false
	}

	e := elem.Value.(*entry)
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.removeLocked(elem)
		c.misses++
		return Result{}, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Put stores result under key, evicting the least-recently-used entry if
// the cache is over capacity.
func (c *LRUCache) Put(key BatchKey, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if elem, ok := c.index[key]; ok {
		e := elem.Value.(*entry)
		e.value = result
		e.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&entry{key: key, value: result, expiresAt: expiresAt})
	c.index[key] = elem

	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeLocked(oldest)
		}
	}
}

// Clear empties the cache and resets its hit/miss counters.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[BatchKey]*list.Element, c.capacity)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}

// Size returns the number of entries currently cached.
func (c *LRUCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}

// Stats reports hit/miss counters and the current size.
type Stats struct {
	Hits    int64
	Misses  int64
	Size    int
	HitRate float64
}

// Stats returns a snapshot of the cache's hit/miss counters.
func (c *LRUCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	var rate float64
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{Hits: c.hits, Misses: c.misses, Size: c.order.Len(), HitRate: rate}
}

func (c *LRUCache) removeLocked(elem *list.Element) {
	c.order.Remove(elem)
	e := elem.Value.(*entry)
	delete(c.index, e.key)
}
