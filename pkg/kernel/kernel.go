// Package kernel implements the convolution kernels used to weight a
// neighbor's contribution to local density by its distance.
package kernel

import "math"

// Kernel weights the contribution of a neighbor at the given distance.
// Implementations are pure and carry no state beyond their own
// parameters.
type Kernel interface {
	Weight(distance float32) float32
}

// Flat returns a constant weight for every distance, for use when density
// should reduce to a weighted neighbor count.
type Flat struct {
	C float32
}

func (f Flat) Weight(float32) float32 { return f.C }

// Gaussian weights by a standard Gaussian bump centered at Mu with spread
// Sigma. Sigma == 0 is a caller error and is not guarded against here.
type Gaussian struct {
	A, Mu, Sigma float32
}

func (g Gaussian) Weight(distance float32) float32 {
	d := distance - g.Mu
	return g.A * float32(math.Exp(float64(-(d*d)/(2*g.Sigma*g.Sigma))))
}

// Exponential weights by a two-sided exponential decay centered at Mu
// with scale Sigma. Sigma == 0 is a caller error and is not guarded
// against here.
type Exponential struct {
	A, Mu, Sigma float32
}

func (e Exponential) Weight(distance float32) float32 {
	d := distance - e.Mu
	if d < 0 {
		d = -d
	}
	return e.A * float32(math.Exp(float64(-d/e.Sigma)))
}
