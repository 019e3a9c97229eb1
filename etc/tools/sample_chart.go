package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"plotrunner/internal/fitting"
	"plotrunner/internal/plotter"
	"plotrunner/internal/render"
)

// go run etc/tools/sample_chart.go
// in etc/charts/sample.html and etc/charts/sample.png
func main() {
	fmt.Println("Generating sample charts...")

	figure, err := sampleFigure()
	if err != nil {
		fmt.Printf("Error building figure: %v\n", err)
		os.Exit(1)
	}
	raw, err := json.Marshal(figure)
	if err != nil {
		fmt.Printf("Error encoding figure: %v\n", err)
		os.Exit(1)
	}

	renderer := render.NewOffline(render.Options{PNGWidth: 800, PNGHeight: 600}, nil)
	for _, name := range []string{"sample.html", "sample.png"} {
		path := filepath.Join("etc", "charts", name)
		if err := renderer.Render(context.Background(), raw, path, false); err != nil {
			fmt.Printf("Error rendering %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Chart generated successfully: %s\n", path)
	}
	fmt.Println("Open the files to see the result!")
}

const (
	trainingSetSize = 30
	domainDensity   = 200
)

// sampleFigure fits a polynomial to noisy samples of sin(2πx) on [0, 1)
// and plots the function, the samples and the fitted curve.
func sampleFigure() (*plotter.Figure, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	target := fitting.Sin{A: 1, B: 2 * math.Pi}

	noisy := fitting.NewCustom(func(x float64) float64 {
		return target.At(x) + 0.1*rng.NormFloat64()
	}, "training set")
	set, err := fitting.RandomTrainingSet(rng, noisy, trainingSetSize, 0, 1)
	if err != nil {
		return nil, err
	}

	fit, err := fitting.LeastSquares(set.X, set.T, fitting.DefaultOptions())
	if err != nil {
		return nil, err
	}
	fmt.Printf("Selected degree %d, RMS error %.4f\n", fit.Degree(), fit.RMSError())

	domain := fitting.RandomSortedVector(rng, domainDensity, set.Min, set.Max)
	curve, err := plotter.NewScatter("sin(2πx)", domain, fitting.Apply(target, domain))
	if err != nil {
		return nil, err
	}
	samples, err := plotter.NewScatter(noisy.Name(), set.X, set.T)
	if err != nil {
		return nil, err
	}
	polynomial, err := plotter.NewScatter(fmt.Sprintf("polynomial, degree %d", fit.Degree()), domain, fitting.Apply(fit.Polynomial, domain))
	if err != nil {
		return nil, err
	}

	layout := plotter.Layout{
		Title: "Polynomial curve fitting",
		XAxis: &plotter.Axis{Title: "x"},
		YAxis: &plotter.Axis{Title: "t"},
	}
	return plotter.NewFigure(layout).Add(
		curve.WithMode("lines"),
		samples.WithMode("markers"),
		polynomial.WithMode("lines"),
	), nil
}
