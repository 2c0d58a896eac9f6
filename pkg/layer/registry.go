// Package layer manages one clustering engine per named detector layer
// (e.g. "CLD-Barrel", "CLD-Endcap"), letting a long-running service reuse
// each engine batch after batch instead of reallocating its tile index and
// point buffer per request.
package layer

import (
	"fmt"
	"sync"
	"time"

	"github.com/hep-clue/clue/pkg/clue"
)

// Quota bounds the batch sizes a layer will accept.
type Quota struct {
	MaxPointsPerBatch int
}

// Usage tracks how much work a layer has done since it was registered.
type Usage struct {
	mu              sync.RWMutex
	BatchesRun      int64
	PointsProcessed int64
	LastBatchAt     time.Time
}

func (u *Usage) record(nPoints int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.BatchesRun++
	u.PointsProcessed += int64(nPoints)
	u.LastBatchAt = time.Now()
}

// Snapshot returns a copy of the current usage counters, safe to read
// concurrently with updates.
func (u *Usage) Snapshot() Usage {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return Usage{
		BatchesRun:      u.BatchesRun,
		PointsProcessed: u.PointsProcessed,
		LastBatchAt:     u.LastBatchAt,
	}
}

// layerEntry pairs one engine with its quota and usage counters. run
// serializes batches: the engine's tiles, point buffer, seed list and
// follower vectors are shared mutable state, so only one batch may be in
// flight per layer at a time.
type layerEntry struct {
	run    sync.Mutex
	engine *clue.Engine
	quota  Quota
	usage  *Usage
}

// Registry owns one *clue.Engine per named detector layer and enforces a
// per-layer batch-size quota.
type Registry struct {
	mu     sync.RWMutex
	layers map[string]*layerEntry
}

// NewRegistry creates an empty layer registry.
func NewRegistry() *Registry {
	return &Registry{layers: make(map[string]*layerEntry)}
}

// Register builds and stores an Engine for the named detector preset. name
// doubles as the geometry.Presets key the engine is built over.
func (r *Registry) Register(name string, params clue.Params, quota Quota, maxPoints, maxSeeds, maxFollowers, maxTileDepth int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.layers[name]; exists {
		return fmt.Errorf("layer: %q already registered", name)
	}

	engine, err := clue.NewEngine(name, params, maxPoints, maxSeeds, maxFollowers, maxTileDepth)
	if err != nil {
		return fmt.Errorf("layer: building engine for %q: %w", name, err)
	}

	if quota.MaxPointsPerBatch <= 0 || quota.MaxPointsPerBatch > maxPoints {
		quota.MaxPointsPerBatch = maxPoints
	}

	r.layers[name] = &layerEntry{engine: engine, quota: quota, usage: &Usage{}}
	return nil
}

// Engine returns the registered engine for name, or an error if no layer
// with that name has been registered.
func (r *Registry) Engine(name string) (*clue.Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.layers[name]
	if !ok {
		return nil, fmt.Errorf("layer: %q not registered", name)
	}
	return entry.engine, nil
}

// Usage returns a snapshot of the usage counters for name.
func (r *Registry) Usage(name string) (Usage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.layers[name]
	if !ok {
		return Usage{}, fmt.Errorf("layer: %q not registered", name)
	}
	return entry.usage.Snapshot(), nil
}

// Names returns the registered layer names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.layers))
	for name := range r.layers {
		names = append(names, name)
	}
	return names
}

// Cluster runs a full clustering batch (clearAndSetPoints, makeClusters,
// getClusters) against the named layer's engine, rejecting batches over
// the layer's quota.
func (r *Registry) Cluster(name string, coords [][]float32, addCoord, weight []float32) (map[int][]int, error) {
	_, _, clusters, err := r.RunBatch(name, coords, addCoord, weight)
	return clusters, err
}

// RunBatch runs a full clustering batch against the named layer's engine
// and returns both the flat per-point labeling (clusterIndex, isSeed) and
// the host-side cluster-id -> point-id-list regrouping, so HTTP handlers
// need not re-walk the engine's point buffer themselves. Batches against
// the same layer are serialized on the entry's run lock; concurrent
// requests for different layers proceed independently.
func (r *Registry) RunBatch(name string, coords [][]float32, addCoord, weight []float32) (clusterIndex []int, isSeed []bool, clusters map[int][]int, err error) {
	r.mu.RLock()
	entry, ok := r.layers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, nil, fmt.Errorf("layer: %q not registered", name)
	}

	n := len(coords)
	if n > entry.quota.MaxPointsPerBatch {
		return nil, nil, nil, fmt.Errorf("layer: %q batch of %d points exceeds quota of %d",
			name, n, entry.quota.MaxPointsPerBatch)
	}

	entry.run.Lock()
	defer entry.run.Unlock()

	if !entry.engine.ClearAndSetPoints(coords, addCoord, weight) {
		return nil, nil, nil, fmt.Errorf("layer: %q received an empty batch", name)
	}
	clusterIndex, isSeed = entry.engine.MakeClusters()
	clusters = entry.engine.GetClusters()

	entry.usage.record(n)
	return clusterIndex, isSeed, clusters, nil
}

// QuotaFraction returns the fraction of name's quota the given batch size
// represents, for metrics reporting.
func (r *Registry) QuotaFraction(name string, nPoints int) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.layers[name]
	if !ok || entry.quota.MaxPointsPerBatch == 0 {
		return 0
	}
	return float64(nPoints) / float64(entry.quota.MaxPointsPerBatch)
}
