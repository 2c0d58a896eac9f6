package ingest

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestFillBarrelMapsZPhiEta(t *testing.T) {
	hits := []CalorimeterHit{
		{X: 1, Y: 0, Z: 2, Energy: 5},
		{X: 0, Y: 1, Z: -1, Energy: 3},
	}

	coords, addCoord, weight := FillBarrel(hits)

	if len(coords) != 2 || len(addCoord) != 2 || len(weight) != 2 {
		t.Fatalf("expected length-2 outputs, got %d/%d/%d", len(coords), len(addCoord), len(weight))
	}

	// Axis order matches the barrel presets: axis 0 is z, axis 1 is phi.
	// Hit 0: z=2 carried through unchanged; x=1,y=0 => phi=0.
	if coords[0][0] != 2 {
		t.Errorf("expected z=2 on axis 0, got %v", coords[0][0])
	}
	if !approxEqual(coords[0][1], 0, 1e-5) {
		t.Errorf("expected phi=0 for (1,0), got %v", coords[0][1])
	}
	if weight[0] != 5 {
		t.Errorf("expected weight=5, got %v", weight[0])
	}

	// Hit 1: x=0,y=1 => phi=pi/2.
	if !approxEqual(coords[1][1], float32(math.Pi/2), 1e-5) {
		t.Errorf("expected phi=pi/2 for (0,1), got %v", coords[1][1])
	}
}

func TestFillEndcapMapsXYZ(t *testing.T) {
	hits := []CalorimeterHit{
		{X: 10, Y: 20, Z: 300, Energy: 7},
	}

	coords, addCoord, weight := FillEndcap(hits)

	if coords[0][0] != 10 || coords[0][1] != 20 {
		t.Errorf("expected (x,y)=(10,20), got %v", coords[0])
	}
	if addCoord[0] != 300 {
		t.Errorf("expected addCoord=z=300, got %v", addCoord[0])
	}
	if weight[0] != 7 {
		t.Errorf("expected weight=7, got %v", weight[0])
	}
}

func TestFillEmptyBatch(t *testing.T) {
	coords, addCoord, weight := FillBarrel(nil)
	if len(coords) != 0 || len(addCoord) != 0 || len(weight) != 0 {
		t.Error("expected empty outputs for empty input")
	}
}

func TestPseudorapidityOnAxisIsInfinite(t *testing.T) {
	// A hit directly on the beam axis (theta=0) has eta=+Inf.
	h := CalorimeterHit{X: 0, Y: 0, Z: 100, Energy: 1}
	eta := pseudorapidity(h)
	if !math.IsInf(float64(eta), 1) {
		t.Errorf("expected +Inf eta on-axis, got %v", eta)
	}
}

func TestPseudorapidityAtZeroZ(t *testing.T) {
	// A hit in the transverse plane (theta=pi/2) has eta=0.
	h := CalorimeterHit{X: 5, Y: 0, Z: 0, Energy: 1}
	eta := pseudorapidity(h)
	if !approxEqual(eta, 0, 1e-5) {
		t.Errorf("expected eta=0 in transverse plane, got %v", eta)
	}
}
