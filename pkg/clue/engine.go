// Package clue implements the CLUster-of-Energy density-peak clustering
// algorithm: tile fill, local density, nearest-higher search,
// seed/outlier classification and cluster assignment, orchestrated over a
// reusable tile index and point buffer.
package clue

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hep-clue/clue/pkg/bvec"
	"github.com/hep-clue/clue/pkg/geometry"
	"github.com/hep-clue/clue/pkg/kernel"
	"github.com/hep-clue/clue/pkg/observability"
	"github.com/hep-clue/clue/pkg/points"
	"github.com/hep-clue/clue/pkg/tiling"
)

// ExecutionMode selects how stages F through I are dispatched across the
// live point range.
type ExecutionMode int

const (
	// Parallel runs each stage over a worker pool sized off BlockSize.
	Parallel ExecutionMode = iota
	// Sequential runs each stage on a single goroutine, for deterministic
	// tests and for reproducing property tests bit-exactly.
	Sequential
)

// Params are the algorithm's tunable construction parameters.
type Params struct {
	DC            float32 // critical distance
	RhoC          float32 // critical density
	OutlierFactor float32 // multiplier applied to DC for the outlier/nh radius
	BlockSize     int     // worker-pool granularity under Parallel
	Mode          ExecutionMode
	Kernel        kernel.Kernel
	Verbose       bool
}

// Validate rejects parameter combinations the algorithm cannot run with.
func (p Params) Validate() error {
	if p.DC <= 0 {
		return fmt.Errorf("clue: dc must be > 0, got %v", p.DC)
	}
	if p.RhoC <= 0 {
		return fmt.Errorf("clue: rhoc must be > 0, got %v", p.RhoC)
	}
	if p.OutlierFactor < 1 {
		return fmt.Errorf("clue: outlier_factor must be >= 1, got %v", p.OutlierFactor)
	}
	if p.BlockSize <= 0 {
		return fmt.Errorf("clue: block_size must be > 0, got %v", p.BlockSize)
	}
	if p.Kernel == nil {
		return fmt.Errorf("clue: kernel must not be nil")
	}
	return nil
}

// Saturation counts how many times each bounded container overflowed
// during one batch. It is never an error; it is a diagnostic surfaced to
// pkg/observability and logged at WARN.
type Saturation struct {
	Tiles      uint64
	Seeds      uint64
	Followers  uint64
	DFSStack   uint64
}

// StageTiming records how long one pipeline stage took during the most
// recent MakeClusters call.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Engine is the per-layer orchestrator: it owns a tile index, a point
// buffer and the follower/seed bounded vectors, and sequences stages F
// through J over them. One Engine is built per detector-layer geometry and
// reused across batches (clearAndSetPoints/clearLayerTiles reset state
// in place without reallocating).
type Engine struct {
	params Params
	preset geometry.Preset

	tiles     *tiling.Index
	buf       *points.Buffer
	seeds     *bvec.Bounded[int32]
	followers []*bvec.Bounded[int32]

	timings [5]StageTiming
	sat     Saturation
}

// NewEngine builds an Engine over the named detector preset. maxPoints
// bounds the point buffer capacity (1,000,000 for a production layer,
// much smaller for tests).
func NewEngine(presetName string, params Params, maxPoints, maxSeeds, maxFollowers, maxTileDepth int) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	preset, ok := geometry.Presets[presetName]
	if !ok {
		return nil, fmt.Errorf("clue: unknown detector preset %q", presetName)
	}

	e := &Engine{
		params:    params,
		preset:    preset,
		tiles:     tiling.NewIndex(preset.Grid, maxTileDepth),
		buf:       points.NewBuffer(preset.Grid.NDim(), maxPoints),
		seeds:     bvec.New[int32](maxSeeds),
		followers: make([]*bvec.Bounded[int32], maxPoints),
	}
	for i := range e.followers {
		e.followers[i] = bvec.New[int32](maxFollowers)
	}

	if params.Verbose {
		logger := observability.GetGlobalLogger()
		for d := 0; d < preset.Grid.NDim(); d++ {
			a := preset.Grid.Axis(d)
			logger.Info("tile grid axis", map[string]interface{}{
				"preset":  preset.Name,
				"axis":    d,
				"min":     a.Min,
				"max":     a.Max,
				"size":    a.TileSize,
				"bins":    preset.Grid.NTilesPerDim(d),
				"wrapped": a.Wrapped,
			})
		}
		logger.Info("tile grid built", map[string]interface{}{
			"preset": preset.Name, "tiles": preset.Grid.NTiles(),
		})
	}
	return e, nil
}

// Preset returns the detector-layer geometry this engine was built for.
func (e *Engine) Preset() geometry.Preset { return e.preset }

// Saturations returns a snapshot of the container-overflow counters for
// the most recent batch. The counters reset on ClearAndSetPoints, so
// callers may add them straight into cumulative metrics without
// re-counting earlier batches.
func (e *Engine) Saturations() Saturation { return e.sat }

// Buffer exposes the underlying point buffer, primarily for tests that
// need to inspect intermediate per-stage state.
func (e *Engine) Buffer() *points.Buffer { return e.buf }

// ClearAndSetPoints resets tiles and follower lists, clears the seed
// list, and copies the input batch into the point buffer. Returns false
// iff the batch is empty, in which case no work follows.
func (e *Engine) ClearAndSetPoints(coords [][]float32, addCoord, weight []float32) bool {
	n := len(coords)
	if n == 0 {
		return false
	}
	if n > e.buf.Cap() {
		n = e.buf.Cap()
	}

	e.tiles.Clear()
	for i := 0; i < n; i++ {
		e.followers[i].Reset()
	}
	e.seeds.Reset()
	e.sat = Saturation{}

	e.buf.Reset(n)
	for i := 0; i < n; i++ {
		e.buf.SetPoint(i, coords[i], addCoord[i], weight[i])
	}
	return true
}

// ClearLayerTiles resets only the tile index, for reuse across layers
// without reallocating.
func (e *Engine) ClearLayerTiles() {
	e.tiles.Clear()
}

// MakeClusters runs all five stages over the currently loaded batch and
// returns the per-point cluster index and seed flag.
func (e *Engine) MakeClusters() (clusterIndex []int, isSeed []bool) {
	n := e.buf.N()

	e.timed(0, "fill", func() { e.stageFill(n) })
	e.timed(1, "density", func() { e.stageDensity(n) })
	e.timed(2, "nearest_higher", func() { e.stageNearestHigher(n) })
	e.timed(3, "classify", func() { e.stageClassify(n) })
	e.timed(4, "assign", e.stageAssign)

	clusterIndex = make([]int, n)
	isSeed = make([]bool, n)
	for i := 0; i < n; i++ {
		clusterIndex[i] = e.buf.ClusterIndex(i)
		isSeed[i] = e.buf.IsSeed(i)
	}
	return clusterIndex, isSeed
}

func (e *Engine) timed(slot int, stage string, fn func()) {
	start := time.Now()
	fn()
	e.timings[slot] = StageTiming{Stage: stage, Duration: time.Since(start)}
}

// StageTimings returns the per-stage wall-clock durations of the most
// recent MakeClusters call, in pipeline order.
func (e *Engine) StageTimings() []StageTiming {
	return e.timings[:]
}

// GetClusters regroups the current cluster_index labeling into a
// cluster-id -> point-id-list map. Outliers land under key -1.
func (e *Engine) GetClusters() map[int][]int {
	n := e.buf.N()
	clusters := make(map[int][]int)
	for i := 0; i < n; i++ {
		c := e.buf.ClusterIndex(i)
		clusters[c] = append(clusters[c], i)
	}
	return clusters
}

// dispatch runs fn(i) for i in [0, n) either sequentially or over a
// BlockSize-granular worker pool, per the Parallel/Sequential
// ExecutionMode switch.
func (e *Engine) dispatch(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if e.params.Mode == Sequential {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	block := e.params.BlockSize
	if block <= 0 || block > n {
		block = n
	}
	var wg sync.WaitGroup
	for start := 0; start < n; start += block {
		end := start + block
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// positiveInfinity is the delta sentinel for points with no qualifying
// nearest-higher neighbor.
var positiveInfinity = float32(math.Inf(1))
