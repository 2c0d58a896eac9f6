package clue

import "math"

func sqrtf32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
