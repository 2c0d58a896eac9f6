package cache

import (
	"testing"
	"time"
)

func TestLRUCache_Basic(t *testing.T) {
	c := NewLRUCache(2, 0)

	c.Put("key1", Result{ClusterIndex: []int{0, 0, -1}, NumClusters: 1, NumOutliers: 1})
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1", c.Size())
	}

	res, found := c.Get("key1")
	if !found {
		t.Fatal("Get() didn't find existing key")
	}
	if res.NumClusters != 1 || res.NumOutliers != 1 {
		t.Errorf("Get() = %+v, want NumClusters=1 NumOutliers=1", res)
	}

	if _, found := c.Get("key2"); found {
		t.Error("Get() found non-existent key")
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache(2, 0)

	c.Put("key1", Result{NumClusters: 1})
	c.Put("key2", Result{NumClusters: 2})
	c.Put("key3", Result{NumClusters: 3}) // evicts key1 (least recently used)

	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
	if _, found := c.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	if _, found := c.Get("key2"); !found {
		t.Error("key2 should still be cached")
	}
}

func TestLRUCache_RecencyProtectsFromEviction(t *testing.T) {
	c := NewLRUCache(2, 0)

	c.Put("key1", Result{NumClusters: 1})
	c.Put("key2", Result{NumClusters: 2})
	c.Get("key1") // touch key1, making key2 the LRU entry
	c.Put("key3", Result{NumClusters: 3})

	if _, found := c.Get("key2"); found {
		t.Error("key2 should have been evicted, not key1")
	}
	if _, found := c.Get("key1"); !found {
		t.Error("key1 should still be cached after being touched")
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)
	c.Put("key1", Result{NumClusters: 1})

	if _, found := c.Get("key1"); !found {
		t.Fatal("expected fresh entry to be found")
	}

	time.Sleep(20 * time.Millisecond)
	if _, found := c.Get("key1"); found {
		t.Error("expected expired entry to be evicted on access")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	c := NewLRUCache(10, 0)
	c.Put("key1", Result{})

	c.Get("key1") // hit
	c.Get("key2") // miss

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit and 1 miss", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
}

func TestLRUCache_Clear(t *testing.T) {
	c := NewLRUCache(10, 0)
	c.Put("key1", Result{})
	c.Get("key1")
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Size() after Clear() = %d, want 0", c.Size())
	}
	stats := c.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("Stats() after Clear() = %+v, want zeroed counters", stats)
	}
}

func TestNewBatchKey_Deterministic(t *testing.T) {
	coords := [][]float32{{1, 2}, {3, 4}}
	addCoord := []float32{0, 0}
	weight := []float32{1, 1}

	k1 := NewBatchKey("CLD-Barrel", coords, addCoord, weight)
	k2 := NewBatchKey("CLD-Barrel", coords, addCoord, weight)
	if k1 != k2 {
		t.Errorf("NewBatchKey not deterministic: %v != %v", k1, k2)
	}

	k3 := NewBatchKey("CLD-Endcap", coords, addCoord, weight)
	if k1 == k3 {
		t.Error("NewBatchKey should differ across layer names")
	}

	coords[1][0] = 999
	k4 := NewBatchKey("CLD-Barrel", coords, addCoord, weight)
	if k1 == k4 {
		t.Error("NewBatchKey should differ when point coordinates differ")
	}
}
