// Package geometry describes the fixed-resolution uniform grid that CLUE
// bins points into before density and nearest-higher queries. A Grid is
// immutable once built: every axis's range, tile size and wrap flag are
// fixed at construction and shared by every batch run against it.
package geometry

import "fmt"

// Axis describes one dimension of the clustering space.
type Axis struct {
	Min, Max float32 // half-open value range [Min, Max)
	TileSize float32 // bin width
	Wrapped  bool    // true for periodic axes (e.g. azimuth)
}

// Grid is an immutable per-configuration tile descriptor. Build one with
// NewGrid and reuse it across every batch and every layer that shares the
// same detector preset.
type Grid struct {
	axes         []Axis
	nTilesPerDim []int
	nTiles       int
}

// NewGrid derives nTilesPerDim and the total tile count from the supplied
// axes. It panics on a non-positive tile size: that is a construction-time
// programming error, not a runtime condition.
func NewGrid(axes []Axis) *Grid {
	g := &Grid{
		axes:         append([]Axis(nil), axes...),
		nTilesPerDim: make([]int, len(axes)),
	}
	g.nTiles = 1
	for d, a := range g.axes {
		if a.TileSize <= 0 {
			panic(fmt.Sprintf("geometry: axis %d has non-positive tile size %v", d, a.TileSize))
		}
		n := ceilDiv(a.Max-a.Min, a.TileSize)
		if n < 1 {
			n = 1
		}
		g.nTilesPerDim[d] = n
		g.nTiles *= n
	}
	return g
}

func ceilDiv(span, size float32) int {
	n := span / size
	i := int(n)
	if float32(i) < n {
		i++
	}
	return i
}

// NDim returns the dimensionality of the clustering space.
func (g *Grid) NDim() int { return len(g.axes) }

// NTiles returns the total number of tiles in the grid.
func (g *Grid) NTiles() int { return g.nTiles }

// NTilesPerDim returns the number of bins along axis d.
func (g *Grid) NTilesPerDim(d int) int { return g.nTilesPerDim[d] }

// Axis returns the descriptor for axis d.
func (g *Grid) Axis(d int) Axis { return g.axes[d] }

// normalize folds value into [min, max) on a periodic axis by adding or
// subtracting whole periods.
func normalize(value float32, a Axis) float32 {
	period := a.Max - a.Min
	for value < a.Min {
		value += period
	}
	for value >= a.Max {
		value -= period
	}
	return value
}

// BinOf returns the bin index of value along axis d. Wrapped axes are
// normalized into range first; non-wrapped axes are clamped to
// [0, nTilesPerDim-1] so out-of-range coordinates land in the edge tile
// instead of corrupting the global-bin encoding.
func (g *Grid) BinOf(value float32, d int) int {
	a := g.axes[d]
	var bin int
	if a.Wrapped {
		bin = int((normalize(value, a) - a.Min) / a.TileSize)
		// Rounding in the division can land a value just below Max in the
		// one-past-the-end bin.
		if max := g.nTilesPerDim[d] - 1; bin > max {
			bin = max
		}
	} else {
		bin = int((value - a.Min) / a.TileSize)
		if bin < 0 {
			bin = 0
		}
		if max := g.nTilesPerDim[d] - 1; bin > max {
			bin = max
		}
	}
	return bin
}

// GlobalBin row-major encodes a per-axis bin-index vector into a single
// tile id: globalBin = sum_d binIdx[d] * prod_{e<d} nTilesPerDim[e].
func (g *Grid) GlobalBin(coords []float32) int {
	global := 0
	stride := 1
	for d := range g.axes {
		global += g.BinOf(coords[d], d) * stride
		stride *= g.nTilesPerDim[d]
	}
	return global
}

// SquaredDistance returns the squared Euclidean distance between two
// coordinate vectors, taking the shorter way around the seam on wrapped
// axes. Both vectors must already be inside (or near) the axis ranges;
// only one period of wrap is corrected for.
func (g *Grid) SquaredDistance(a, b []float32) float32 {
	var sum float32
	for d, ax := range g.axes {
		diff := a[d] - b[d]
		if ax.Wrapped {
			period := ax.Max - ax.Min
			if diff > period/2 {
				diff -= period
			} else if diff < -period/2 {
				diff += period
			}
		}
		sum += diff * diff
	}
	return sum
}

// GlobalBinFromIndices encodes a bin-index vector directly, used once the
// per-axis indices are already known (e.g. while iterating a search box).
func (g *Grid) GlobalBinFromIndices(idx []int) int {
	global := 0
	stride := 1
	for d := range g.axes {
		global += idx[d] * stride
		stride *= g.nTilesPerDim[d]
	}
	return global
}

// Range is an inclusive [Lo, Hi] span of bin indices along one axis.
type Range struct {
	Lo, Hi int
}

// SearchBox computes, for each axis, the set of bin ranges covering the
// interval [coord-r, coord+r]. On a non-wrapped axis this is always a
// single range. On a wrapped axis whose interval crosses the seam (i.e.
// binOf(coord-r) > binOf(coord+r)), the box splits into two ranges,
// [lo, nTilesPerDim-1] and [0, hi], so the bins on the far side of the
// seam are still visited.
func (g *Grid) SearchBox(center []float32, r float32) [][]Range {
	perAxis := make([][]Range, len(g.axes))
	for d, a := range g.axes {
		lo := g.BinOf(center[d]-r, d)
		hi := g.BinOf(center[d]+r, d)
		if a.Wrapped && lo > hi {
			perAxis[d] = []Range{
				{Lo: lo, Hi: g.nTilesPerDim[d] - 1},
				{Lo: 0, Hi: hi},
			}
		} else {
			perAxis[d] = []Range{{Lo: lo, Hi: hi}}
		}
	}
	return perAxis
}

// VisitBins calls fn once for every global bin id inside the cartesian
// product of the per-axis ranges returned by SearchBox. The recursion
// depth equals the grid's dimensionality.
func (g *Grid) VisitBins(box [][]Range, fn func(globalBin int)) {
	idx := make([]int, len(g.axes))
	var recurse func(d int)
	recurse = func(d int) {
		if d == len(g.axes) {
			fn(g.GlobalBinFromIndices(idx))
			return
		}
		for _, seg := range box[d] {
			for v := seg.Lo; v <= seg.Hi; v++ {
				idx[d] = v
				recurse(d + 1)
			}
		}
	}
	recurse(0)
}
