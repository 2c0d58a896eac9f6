package tiling

import (
	"sync"
	"testing"

	"github.com/hep-clue/clue/pkg/geometry"
)

func smallGrid() *geometry.Grid {
	return geometry.NewGrid([]geometry.Axis{
		{Min: 0, Max: 10, TileSize: 1, Wrapped: false},
		{Min: 0, Max: 10, TileSize: 1, Wrapped: false},
	})
}

func TestFillAndBin(t *testing.T) {
	idx := NewIndex(smallGrid(), 4)
	if ok := idx.Fill([]float32{3.5, 2.5}, 7); !ok {
		t.Fatal("Fill reported saturation on an empty tile")
	}
	bin := idx.Grid().GlobalBin([]float32{3.5, 2.5})
	tile := idx.Bin(bin)
	if tile.Size() != 1 || tile.At(0) != 7 {
		t.Fatalf("tile contents = %v, want [7]", tile.Slice())
	}
}

func TestFillSaturationReturnsFalse(t *testing.T) {
	idx := NewIndex(smallGrid(), 2)
	coords := []float32{0.5, 0.5}
	if !idx.Fill(coords, 1) || !idx.Fill(coords, 2) {
		t.Fatal("first two fills within capacity should succeed")
	}
	if idx.Fill(coords, 3) {
		t.Fatal("third fill should report saturation")
	}
}

func TestClearResetsAllTiles(t *testing.T) {
	idx := NewIndex(smallGrid(), 4)
	idx.Fill([]float32{1, 1}, 1)
	idx.Fill([]float32{9, 9}, 2)
	idx.Clear()
	for bin := 0; bin < idx.Grid().NTiles(); bin++ {
		if idx.Bin(bin).Size() != 0 {
			t.Fatalf("bin %d not cleared", bin)
		}
	}
}

func TestConcurrentFill(t *testing.T) {
	idx := NewIndex(smallGrid(), 1000)
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			idx.Fill([]float32{5, 5}, id)
		}(uint32(i))
	}
	wg.Wait()
	bin := idx.Grid().GlobalBin([]float32{5, 5})
	if got := idx.Bin(bin).Size(); got != 500 {
		t.Fatalf("tile size after concurrent fill = %d, want 500", got)
	}
}

func TestVisitCoversWrapSeam(t *testing.T) {
	g := geometry.NewGrid([]geometry.Axis{
		{Min: -3.14159265, Max: 3.14159265, TileSize: 0.1, Wrapped: true},
		{Min: -10, Max: 10, TileSize: 1, Wrapped: false},
	})
	idx := NewIndex(g, 4)
	idx.Fill([]float32{-3.13, 0}, 1) // just above -pi
	idx.Fill([]float32{3.13, 0}, 2)  // just below +pi

	center := []float32{3.14159265 - 0.005, 0}
	found := map[uint32]bool{}
	idx.Visit(center, 0.05, func(id uint32) { found[id] = true })

	if !found[1] || !found[2] {
		t.Fatalf("Visit across wrap seam missed neighbors, found=%v", found)
	}
}

func TestVisitNonWrapped(t *testing.T) {
	idx := NewIndex(smallGrid(), 4)
	idx.Fill([]float32{5, 5}, 42)
	found := false
	idx.Visit([]float32{5, 5}, 0.5, func(id uint32) {
		if id == 42 {
			found = true
		}
	})
	if !found {
		t.Fatal("Visit failed to find point in its own tile")
	}
}
