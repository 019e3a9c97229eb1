package fitting

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"
)

var (
	ErrLengthMismatch = errors.New("x and t lengths differ")
	ErrEmpty          = errors.New("no data points")
)

// TrainingSet is a sample of inputs X with targets T drawn from [Min, Max].
type TrainingSet struct {
	X, T     []float64
	Min, Max float64
}

func NewTrainingSet(x, t []float64, domainMin, domainMax float64) (*TrainingSet, error) {
	if domainMin >= domainMax {
		return nil, fmt.Errorf("invalid domain [%v, %v]: min must be below max", domainMin, domainMax)
	}
	if len(x) != len(t) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(t))
	}
	return &TrainingSet{X: x, T: t, Min: domainMin, Max: domainMax}, nil
}

// Len is the number of samples.
func (s *TrainingSet) Len() int { return len(s.X) }

// RandomTrainingSet samples f at size uniform points of [domainMin, domainMax). A nil
// rng uses a time-seeded source.
func RandomTrainingSet(rng *rand.Rand, f Function, size int, domainMin, domainMax float64) (*TrainingSet, error) {
	if domainMin >= domainMax {
		return nil, fmt.Errorf("invalid domain [%v, %v]: min must be below max", domainMin, domainMax)
	}
	x := RandomVector(rng, size, domainMin, domainMax)
	return NewTrainingSet(x, Apply(f, x), domainMin, domainMax)
}

// RandomSortedTrainingSet is RandomTrainingSet with ascending X.
func RandomSortedTrainingSet(rng *rand.Rand, f Function, size int, domainMin, domainMax float64) (*TrainingSet, error) {
	if domainMin >= domainMax {
		return nil, fmt.Errorf("invalid domain [%v, %v]: min must be below max", domainMin, domainMax)
	}
	x := RandomSortedVector(rng, size, domainMin, domainMax)
	return NewTrainingSet(x, Apply(f, x), domainMin, domainMax)
}

// RandomVector returns size uniform values from [domainMin, domainMax).
func RandomVector(rng *rand.Rand, size int, domainMin, domainMax float64) []float64 {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if size < 0 {
		size = 0
	}
	x := make([]float64, size)
	for i := range x {
		x[i] = domainMin + rng.Float64()*(domainMax-domainMin)
	}
	return x
}

// RandomSortedVector is RandomVector in ascending order.
func RandomSortedVector(rng *rand.Rand, size int, domainMin, domainMax float64) []float64 {
	x := RandomVector(rng, size, domainMin, domainMax)
	sort.Float64s(x)
	return x
}
