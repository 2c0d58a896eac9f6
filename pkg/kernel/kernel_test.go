package kernel

import "testing"

func approxEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestFlatIsConstant(t *testing.T) {
	f := Flat{C: 2.5}
	for _, d := range []float32{0, 1, 100} {
		if f.Weight(d) != 2.5 {
			t.Fatalf("Flat.Weight(%v) = %v, want 2.5", d, f.Weight(d))
		}
	}
}

func TestGaussianPeaksAtMu(t *testing.T) {
	g := Gaussian{A: 1, Mu: 0, Sigma: 1}
	peak := g.Weight(0)
	if !approxEqual(peak, 1, 1e-6) {
		t.Fatalf("Gaussian.Weight(mu) = %v, want 1 (A)", peak)
	}
	if g.Weight(5) >= peak {
		t.Fatal("Gaussian should decay away from mu")
	}
}

func TestGaussianSymmetric(t *testing.T) {
	g := Gaussian{A: 1, Mu: 2, Sigma: 1.5}
	if !approxEqual(g.Weight(2-0.7), g.Weight(2+0.7), 1e-5) {
		t.Fatal("Gaussian should be symmetric around Mu")
	}
}

func TestExponentialPeaksAtMu(t *testing.T) {
	e := Exponential{A: 3, Mu: 1, Sigma: 2}
	peak := e.Weight(1)
	if !approxEqual(peak, 3, 1e-6) {
		t.Fatalf("Exponential.Weight(mu) = %v, want 3 (A)", peak)
	}
	if e.Weight(10) >= peak {
		t.Fatal("Exponential should decay away from mu")
	}
}

func TestExponentialSymmetric(t *testing.T) {
	e := Exponential{A: 1, Mu: 0, Sigma: 1}
	if !approxEqual(e.Weight(-3), e.Weight(3), 1e-6) {
		t.Fatal("Exponential should be symmetric around Mu (absolute distance)")
	}
}
