package geometry

import "math"

// MaxTileDepth bounds how many points a single tile may hold before new
// fills are dropped and counted as a saturation event. MaxSeeds,
// MaxFollowers, MaxDFSStack and MaxPointsHard are the default capacities
// of the remaining fixed containers. MaxNTiles is not applied anywhere:
// a grid's tile count comes from its axes, and every preset has more
// tiles than MaxNTiles.
const (
	MaxTileDepth  = 40
	MaxNTiles     = 1 << 10
	MaxSeeds      = 100
	MaxFollowers  = 100
	MaxDFSStack   = 256
	MaxPointsHard = 1_000_000
)

// Preset bundles a named Grid with the layer count of the detector
// geometry it describes.
type Preset struct {
	Name    string
	Grid    *Grid
	NLayers int
}

var pi = float32(math.Pi)

// Presets holds the five detector-layer geometries this module ships
// with. Barrel layers cluster in (z, phi) with a wrapped azimuth; endcap
// layers cluster in (x, y) with no wrapping.
var Presets = map[string]Preset{
	"CLD-Barrel": {
		Name: "CLD-Barrel",
		Grid: NewGrid([]Axis{
			{Min: -2210, Max: 2210, TileSize: 15, Wrapped: false},
			{Min: -pi, Max: pi, TileSize: 0.01, Wrapped: true},
		}),
		NLayers: 40,
	},
	"CLD-Endcap": {
		Name: "CLD-Endcap",
		Grid: NewGrid([]Axis{
			{Min: -2455, Max: 2455, TileSize: 15, Wrapped: false},
			{Min: -2455, Max: 2455, TileSize: 15, Wrapped: false},
		}),
		NLayers: 80,
	},
	"CLICdet-Barrel": {
		Name: "CLICdet-Barrel",
		Grid: NewGrid([]Axis{
			{Min: -2210, Max: 2210, TileSize: 35, Wrapped: false},
			{Min: -pi, Max: pi, TileSize: 0.15, Wrapped: true},
		}),
		NLayers: 40,
	},
	"CLICdet-Endcap": {
		Name: "CLICdet-Endcap",
		Grid: NewGrid([]Axis{
			{Min: -1701, Max: 1701, TileSize: 27, Wrapped: false},
			{Min: -1701, Max: 1701, TileSize: 27, Wrapped: false},
		}),
		NLayers: 80,
	},
	"LAr-Barrel": {
		Name: "LAr-Barrel",
		Grid: NewGrid([]Axis{
			{Min: -3110, Max: 3110, TileSize: 50, Wrapped: false},
			{Min: -pi, Max: pi, TileSize: 0.15, Wrapped: true},
		}),
		NLayers: 12,
	},
}

// PresetNames returns the sorted-by-declaration list of preset names
// accepted by pkg/config and pkg/layer.
func PresetNames() []string {
	return []string{"CLD-Barrel", "CLD-Endcap", "CLICdet-Barrel", "CLICdet-Endcap", "LAr-Barrel"}
}
