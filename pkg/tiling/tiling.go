// Package tiling holds the point-id index over a geometry.Grid: one bounded
// vector of point ids per tile, filled concurrently during stage F and
// walked during stages G and H's neighbor search.
package tiling

import (
	"github.com/hep-clue/clue/pkg/bvec"
	"github.com/hep-clue/clue/pkg/geometry"
)

// Index is a flat array of bounded vectors, one per tile of grid. It is
// safe for concurrent Fill calls (the bounded vector's PushBack is
// atomic); Clear must not run concurrently with a Fill.
type Index struct {
	grid  *geometry.Grid
	tiles []*bvec.Bounded[uint32]
	depth int
}

// NewIndex allocates an Index over grid with every tile sized to hold up
// to maxTileDepth point ids.
func NewIndex(grid *geometry.Grid, maxTileDepth int) *Index {
	idx := &Index{grid: grid, tiles: make([]*bvec.Bounded[uint32], grid.NTiles()), depth: maxTileDepth}
	for i := range idx.tiles {
		idx.tiles[i] = bvec.New[uint32](maxTileDepth)
	}
	return idx
}

// Grid returns the geometry this index is built over.
func (idx *Index) Grid() *geometry.Grid { return idx.grid }

// Clear resets every tile to empty. Must not be called concurrently with
// Fill.
func (idx *Index) Clear() {
	for _, t := range idx.tiles {
		t.Reset()
	}
}

// Fill appends point id to the tile its coords hash to. Returns false if
// the destination tile was already saturated, in which case the caller
// should record a saturation event — the point itself is never lost from
// the point buffer, only omitted from that one tile's candidate list.
func (idx *Index) Fill(coords []float32, id uint32) bool {
	bin := idx.grid.GlobalBin(coords)
	return idx.tiles[bin].PushBack(id) != bvec.Overflow
}

// Bin returns the bounded vector of point ids stored in the tile with the
// given global bin id.
func (idx *Index) Bin(globalBin int) *bvec.Bounded[uint32] {
	return idx.tiles[globalBin]
}

// Visit calls fn once per point id found in every tile whose bin-index
// vector falls inside the search box of half-width r around center. It
// composes geometry.Grid.SearchBox/VisitBins with a per-bin point-id scan,
// correctly covering both segments of a wrap-seam split search box.
func (idx *Index) Visit(center []float32, r float32, fn func(pointID uint32)) {
	box := idx.grid.SearchBox(center, r)
	idx.grid.VisitBins(box, func(globalBin int) {
		tile := idx.tiles[globalBin]
		n := tile.Size()
		for i := 0; i < n; i++ {
			fn(tile.At(i))
		}
	})
}
