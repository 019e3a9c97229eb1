package fitting

import (
	"fmt"
	"math"
)

// RMSError is the root-mean-square error of f against targets t at x:
// sqrt(sum((f(x[n]) - t[n])^2) / N).
func RMSError(f Function, x, t []float64) (float64, error) {
	if len(x) != len(t) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(t))
	}
	if len(x) == 0 {
		return 0, ErrEmpty
	}

	sum := 0.0
	for n := range x {
		d := f.At(x[n]) - t[n]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(x))), nil
}
