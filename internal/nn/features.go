package nn

import "math"

// Log1pScale maps each component to sign(x)·log(1+|x|), compressing cash and
// share counts into the same range as prices.
func Log1pScale(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Copysign(math.Log1p(math.Abs(v)), v)
	}
	return out
}
