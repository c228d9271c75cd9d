package features

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RSI computes a Wilder relative strength index over closes.
// The first window values cannot be computed and are returned as NaN.
func RSI(closes []float64, window int) []float64 {
	out := make([]float64, len(closes))
	if window < 2 || len(closes) <= window {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	copy(out, talib.Rsi(closes, window))
	for i := 0; i < window; i++ {
		out[i] = math.NaN()
	}
	return out
}
