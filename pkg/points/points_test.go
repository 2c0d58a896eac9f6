package points

import (
	"math"
	"testing"
)

func TestResetDefaults(t *testing.T) {
	b := NewBuffer(2, 10)
	b.Reset(3)
	for i := 0; i < 3; i++ {
		if b.Rho(i) != 0 {
			t.Errorf("point %d rho = %v, want 0", i, b.Rho(i))
		}
		if !math.IsInf(float64(b.Delta(i)), 1) {
			t.Errorf("point %d delta = %v, want +Inf", i, b.Delta(i))
		}
		if b.NearestHigher(i) != NH {
			t.Errorf("point %d nh = %d, want %d", i, b.NearestHigher(i), NH)
		}
		if b.ClusterIndex(i) != ClusterNone {
			t.Errorf("point %d cluster = %d, want %d", i, b.ClusterIndex(i), ClusterNone)
		}
		if b.IsSeed(i) {
			t.Errorf("point %d isSeed = true, want false", i)
		}
	}
	if b.N() != 3 {
		t.Fatalf("N() = %d, want 3", b.N())
	}
}

func TestResetClampsToCapacity(t *testing.T) {
	b := NewBuffer(2, 5)
	b.Reset(100)
	if b.N() != 5 {
		t.Fatalf("N() = %d, want capacity 5", b.N())
	}
}

func TestSetPointAndCoords(t *testing.T) {
	b := NewBuffer(3, 4)
	b.Reset(1)
	b.SetPoint(0, []float32{1, 2, 3}, 9, 5)
	got := b.Coords(0)
	want := []float32{1, 2, 3}
	for d := range want {
		if got[d] != want[d] {
			t.Fatalf("Coords(0) = %v, want %v", got, want)
		}
	}
	if b.AddCoord(0) != 9 {
		t.Fatalf("AddCoord(0) = %v, want 9", b.AddCoord(0))
	}
	if b.Weight(0) != 5 {
		t.Fatalf("Weight(0) = %v, want 5", b.Weight(0))
	}
}

func TestViewMirrorsBuffer(t *testing.T) {
	b := NewBuffer(2, 4)
	b.Reset(2)
	b.SetPoint(0, []float32{1, 1}, 0, 2)
	v := b.View()
	v.SetRho(0, 4.5)
	v.SetNearestHigher(0, 1)
	v.SetClusterIndex(0, 7)
	v.SetIsSeed(0, true)
	if b.Rho(0) != 4.5 || b.NearestHigher(0) != 1 || b.ClusterIndex(0) != 7 || !b.IsSeed(0) {
		t.Fatal("View writes did not propagate to underlying Buffer")
	}
	if v.N() != 2 || v.NDim() != 2 {
		t.Fatalf("View().N()/NDim() = %d/%d, want 2/2", v.N(), v.NDim())
	}
}
