// Package points implements the Structure-of-Arrays point buffer shared by
// every CLUE stage: parallel arrays of coordinates, weight and per-point
// results, indexed by a common point id.
package points

import "math"

// NH is the nearest-higher sentinel meaning "no higher-density neighbor
// found within the search radius".
const NH = -1

// ClusterNone is the cluster_index value assigned to outliers.
const ClusterNone = -1

// Buffer owns the fixed-capacity SoA arrays for up to capacity points in
// an nDim-dimensional clustering space. Arrays are never resized after
// construction; only the live prefix length n changes between batches.
type Buffer struct {
	nDim     int
	capacity int
	n        int

	coords   []float32 // flattened, row-major: coords[i*nDim+d]
	addCoord []float32
	weight   []float32
	rho      []float32
	delta    []float32
	nh       []int32
	cluster  []int32
	isSeed   []bool
}

// NewBuffer allocates a Buffer able to hold up to capacity points of
// dimension nDim. The backing arrays are allocated exactly once.
func NewBuffer(nDim, capacity int) *Buffer {
	return &Buffer{
		nDim:     nDim,
		capacity: capacity,
		coords:   make([]float32, capacity*nDim),
		addCoord: make([]float32, capacity),
		weight:   make([]float32, capacity),
		rho:      make([]float32, capacity),
		delta:    make([]float32, capacity),
		nh:       make([]int32, capacity),
		cluster:  make([]int32, capacity),
		isSeed:   make([]bool, capacity),
	}
}

// NDim returns the configured coordinate dimensionality.
func (b *Buffer) NDim() int { return b.nDim }

// Cap returns the fixed point capacity.
func (b *Buffer) Cap() int { return b.capacity }

// N returns the number of live points in the current batch.
func (b *Buffer) N() int { return b.n }

// Reset clears the buffer for a new batch of n points, n must not exceed
// Cap(). Result arrays (rho, delta, nh, cluster, isSeed) are reinitialized
// to their per-point defaults for the live prefix; coords/weight/addCoord
// are left for the caller to fill via Set*.
func (b *Buffer) Reset(n int) {
	if n > b.capacity {
		n = b.capacity
	}
	b.n = n
	for i := 0; i < n; i++ {
		b.rho[i] = 0
		b.delta[i] = float32(math.Inf(1))
		b.nh[i] = NH
		b.cluster[i] = ClusterNone
		b.isSeed[i] = false
	}
}

// SetPoint writes the coordinates, auxiliary coordinate and weight of
// point i. Coordinates outside a non-wrapped axis range are not clamped
// here; clamping happens at bin-lookup time in pkg/geometry.
func (b *Buffer) SetPoint(i int, coords []float32, addCoord, weight float32) {
	copy(b.coords[i*b.nDim:(i+1)*b.nDim], coords)
	b.addCoord[i] = addCoord
	b.weight[i] = weight
}

// Coords returns the coordinate slice of point i. The returned slice
// aliases internal storage.
func (b *Buffer) Coords(i int) []float32 {
	return b.coords[i*b.nDim : (i+1)*b.nDim]
}

func (b *Buffer) AddCoord(i int) float32 { return b.addCoord[i] }
func (b *Buffer) Weight(i int) float32   { return b.weight[i] }

func (b *Buffer) Rho(i int) float32     { return b.rho[i] }
func (b *Buffer) SetRho(i int, v float32) { b.rho[i] = v }

func (b *Buffer) Delta(i int) float32      { return b.delta[i] }
func (b *Buffer) SetDelta(i int, v float32) { b.delta[i] = v }

func (b *Buffer) NearestHigher(i int) int { return int(b.nh[i]) }
func (b *Buffer) SetNearestHigher(i, j int) { b.nh[i] = int32(j) }

func (b *Buffer) ClusterIndex(i int) int       { return int(b.cluster[i]) }
func (b *Buffer) SetClusterIndex(i, c int)     { b.cluster[i] = int32(c) }

func (b *Buffer) IsSeed(i int) bool      { return b.isSeed[i] }
func (b *Buffer) SetIsSeed(i int, v bool) { b.isSeed[i] = v }

// View is a read-write capability over a Buffer's live prefix, handed to
// kernels so they can operate without holding ownership of the buffer
// itself. It is valid only for the lifetime of the batch it was taken for.
type View struct {
	buf *Buffer
}

// View returns a View over the buffer's current live batch.
func (b *Buffer) View() View { return View{buf: b} }

func (v View) N() int                  { return v.buf.n }
func (v View) NDim() int                { return v.buf.nDim }
func (v View) Coords(i int) []float32   { return v.buf.Coords(i) }
func (v View) Weight(i int) float32     { return v.buf.Weight(i) }
func (v View) Rho(i int) float32        { return v.buf.Rho(i) }
func (v View) SetRho(i int, r float32)  { v.buf.SetRho(i, r) }
func (v View) Delta(i int) float32      { return v.buf.Delta(i) }
func (v View) SetDelta(i int, d float32) { v.buf.SetDelta(i, d) }
func (v View) NearestHigher(i int) int  { return v.buf.NearestHigher(i) }
func (v View) SetNearestHigher(i, j int) { v.buf.SetNearestHigher(i, j) }
func (v View) ClusterIndex(i int) int   { return v.buf.ClusterIndex(i) }
func (v View) SetClusterIndex(i, c int) { v.buf.SetClusterIndex(i, c) }
func (v View) IsSeed(i int) bool        { return v.buf.IsSeed(i) }
func (v View) SetIsSeed(i int, s bool)  { v.buf.SetIsSeed(i, s) }
