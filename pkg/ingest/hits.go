// Package ingest translates raw calorimeter hits into the coordinate and
// weight arrays the clustering engine expects, and reports timing
// statistics for repeated batch runs.
package ingest

import "math"

// CalorimeterHit is a single detector hit: a Cartesian position and a
// deposited energy, the minimum the coordinate mapping needs.
type CalorimeterHit struct {
	X, Y, Z float32
	Energy  float32
}

// phi returns the azimuthal angle of a hit in (-pi, pi], the convention
// geometry.Presets' wrapped axis expects.
func phi(h CalorimeterHit) float32 {
	return float32(math.Atan2(float64(h.Y), float64(h.X)))
}

// pseudorapidity returns the standard HEP pseudorapidity
// eta = -ln(tan(theta/2)), theta the polar angle from the beam (z) axis.
func pseudorapidity(h CalorimeterHit) float32 {
	r3 := math.Sqrt(float64(h.X)*float64(h.X) + float64(h.Y)*float64(h.Y) + float64(h.Z)*float64(h.Z))
	if r3 == 0 {
		return 0
	}
	theta := math.Acos(float64(h.Z) / r3)
	t := math.Tan(theta / 2)
	if t <= 0 {
		return float32(math.Inf(1))
	}
	return float32(-math.Log(t))
}

// FillBarrel maps barrel calorimeter hits onto the (z, phi) coordinate
// plane the wrapped-phi barrel presets (CLD-Barrel, CLICdet-Barrel,
// LAr-Barrel) tile — axis 0 is z, axis 1 is the wrapped azimuth, matching
// the preset axis order — carrying pseudorapidity as the auxiliary
// coordinate and deposited energy as the clustering weight.
func FillBarrel(hits []CalorimeterHit) (coords [][]float32, addCoord, weight []float32) {
	n := len(hits)
	coords = make([][]float32, n)
	addCoord = make([]float32, n)
	weight = make([]float32, n)
	for i, h := range hits {
		coords[i] = []float32{h.Z, phi(h)}
		addCoord[i] = pseudorapidity(h)
		weight[i] = h.Energy
	}
	return coords, addCoord, weight
}

// FillEndcap maps endcap calorimeter hits onto the (x, y) coordinate plane
// the non-wrapped endcap presets (CLD-Endcap, CLICdet-Endcap) tile,
// carrying z as the auxiliary coordinate and deposited energy as the
// clustering weight.
func FillEndcap(hits []CalorimeterHit) (coords [][]float32, addCoord, weight []float32) {
	n := len(hits)
	coords = make([][]float32, n)
	addCoord = make([]float32, n)
	weight = make([]float32, n)
	for i, h := range hits {
		coords[i] = []float32{h.X, h.Y}
		addCoord[i] = h.Z
		weight[i] = h.Energy
	}
	return coords, addCoord, weight
}
