package fitting

import (
	"errors"
	"fmt"
	"math"

	logging "plotrunner/internal/infra/log"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultMaxDegree  = 50
	DefaultSplitRatio = 0.8
)

var errNoSolution = errors.New("least squares solution is not finite")

// Options controls model selection in LeastSquares.
type Options struct {
	MaxDegree  int     // highest polynomial degree tried
	SplitRatio float64 // leading fraction of the data used for training

	// ScoreOnAll ranks degrees by their error on all data instead of the
	// held-out tail only.
	ScoreOnAll bool
}

// DefaultOptions trains on the first 80% and ranks degrees on the rest.
func DefaultOptions() Options {
	return Options{MaxDegree: DefaultMaxDegree, SplitRatio: DefaultSplitRatio}
}

// BasicOptions trains on the first 90% and ranks degrees on all points.
func BasicOptions() Options {
	return Options{MaxDegree: DefaultMaxDegree, SplitRatio: 0.9, ScoreOnAll: true}
}

func (o Options) validate() error {
	if o.MaxDegree < 0 {
		return fmt.Errorf("max degree must not be negative, got %d", o.MaxDegree)
	}
	if !(o.SplitRatio > 0 && o.SplitRatio <= 1) {
		return fmt.Errorf("split ratio must be in (0, 1], got %v", o.SplitRatio)
	}
	return nil
}

// Fit is the outcome of LeastSquares.
type Fit struct {
	X, T         []float64
	Polynomial   Polynomial
	TrainingSize int

	// DegreeToRMS maps each tried degree to its ranking error. Degrees that
	// were not tried or had no solution are NaN.
	DegreeToRMS []float64
}

// Degree of the selected polynomial.
func (f *Fit) Degree() int { return f.Polynomial.Degree() }

// RMSError of the selected polynomial over all points.
func (f *Fit) RMSError() float64 {
	rms, _ := RMSError(f.Polynomial, f.X, f.T)
	return rms
}

// LeastSquares fits a polynomial for every degree up to opts.MaxDegree by
// minimising the sum of squared errors on the training points, and keeps
// the one with the lowest RMS error on the scoring points. On ties the
// higher degree wins. Degrees are capped at the training size minus one.
func LeastSquares(x, t []float64, opts Options) (*Fit, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(x) != len(t) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(t))
	}
	if len(x) == 0 {
		return nil, ErrEmpty
	}
	for n := range x {
		if !finite(x[n]) || !finite(t[n]) {
			return nil, fmt.Errorf("point %d is not finite: (%v, %v)", n, x[n], t[n])
		}
	}

	trainingSize := int(math.Round(float64(len(x)) * opts.SplitRatio))
	trainingSize = max(1, min(trainingSize, len(x)))
	trainX, trainT := x[:trainingSize], t[:trainingSize]

	scoreX, scoreT := x[trainingSize:], t[trainingSize:]
	if opts.ScoreOnAll || len(scoreX) == 0 {
		scoreX, scoreT = x, t
	}

	degreeToRMS := make([]float64, opts.MaxDegree+1)
	for i := range degreeToRMS {
		degreeToRMS[i] = math.NaN()
	}

	best := math.Inf(1)
	var selected Polynomial
	for degree := 0; degree <= min(opts.MaxDegree, trainingSize-1); degree++ {
		w, err := solve(trainX, trainT, degree)
		if err != nil {
			logging.LogDebug("Skipping polynomial degree", zap.Int("degree", degree), zap.Error(err))
			continue
		}
		rms, err := RMSError(w, scoreX, scoreT)
		if err != nil || !finite(rms) {
			continue
		}
		degreeToRMS[degree] = rms
		if rms <= best {
			best = rms
			selected = w
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("no polynomial degree up to %d could be fitted", opts.MaxDegree)
	}

	logging.LogDebug("Polynomial fitted",
		zap.Int("degree", selected.Degree()),
		zap.Float64("rms", best),
		zap.Int("training_size", trainingSize),
		zap.Int("points", len(x)))

	return &Fit{
		X:            x,
		T:            t,
		Polynomial:   selected,
		TrainingSize: trainingSize,
		DegreeToRMS:  degreeToRMS,
	}, nil
}

// solve returns the coefficients minimising sum((p(x[n]) - t[n])^2) for a
// polynomial of the given degree. len(x) must exceed degree.
func solve(x, t []float64, degree int) (Polynomial, error) {
	cols := degree + 1
	a := mat.NewDense(len(x), cols, nil)
	for i, xi := range x {
		p := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, p)
			p *= xi
		}
	}
	b := mat.NewVecDense(len(t), append([]float64(nil), t...))

	var w mat.VecDense
	if err := w.SolveVec(a, b); err != nil {
		// ill-conditioned systems still yield a usable solution
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 0) {
			return nil, err
		}
	}

	coeffs := make(Polynomial, cols)
	for j := range coeffs {
		coeffs[j] = w.AtVec(j)
		if !finite(coeffs[j]) {
			return nil, errNoSolution
		}
	}
	return coeffs, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
