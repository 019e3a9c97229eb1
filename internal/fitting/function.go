// Package fitting fits polynomials to sampled data by least squares and
// picks the degree that generalises best to held-out points.
package fitting

import (
	"math"
	"strconv"
	"strings"
)

// Function is a real function of one variable.
type Function interface {
	At(x float64) float64
	Name() string
}

// Apply evaluates f at every point of xs.
func Apply(f Function, xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = f.At(x)
	}
	return out
}

// Polynomial holds coefficients w where p(x) = sum(w[i] * x^i).
type Polynomial []float64

func (p Polynomial) At(x float64) float64 {
	result := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		result = result*x + p[i]
	}
	return result
}

// Degree is len(p)-1, or -1 for an empty polynomial.
func (p Polynomial) Degree() int { return len(p) - 1 }

func (Polynomial) Name() string { return "polynomial" }

func (p Polynomial) String() string {
	terms := make([]string, len(p))
	for i, w := range p {
		terms[i] = strconv.FormatFloat(w, 'g', -1, 64) + "*x^" + strconv.Itoa(i)
	}
	return "polynomial(x) = " + strings.Join(terms, " ")
}

// Sin is a*sin(b*x)+c.
type Sin struct {
	A, B, C float64
}

// NewSin returns sin(b*x).
func NewSin(b float64) Sin { return Sin{A: 1, B: b} }

func (s Sin) At(x float64) float64 { return s.A*math.Sin(s.B*x) + s.C }

func (Sin) Name() string { return "sin" }

func (s Sin) String() string {
	return "sin(x) = " + strconv.FormatFloat(s.A, 'g', -1, 64) +
		" * sin(" + strconv.FormatFloat(s.B, 'g', -1, 64) + " * x) + " +
		strconv.FormatFloat(s.C, 'g', -1, 64)
}

// Custom wraps an arbitrary func as a named Function.
type Custom struct {
	fn   func(float64) float64
	name string
}

// NewCustom names fn; an empty name becomes "custom function".
func NewCustom(fn func(float64) float64, name string) Custom {
	if name == "" {
		name = "custom function"
	}
	return Custom{fn: fn, name: name}
}

func (c Custom) At(x float64) float64 { return c.fn(x) }

func (c Custom) Name() string { return c.name }
