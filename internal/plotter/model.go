package plotter

import (
	"fmt"
	"path/filepath"
)

// Scatter is one plotly scatter trace.
type Scatter struct {
	Type    string    `json:"type"`
	Visible bool      `json:"visible"`
	Name    string    `json:"name"`
	Mode    string    `json:"mode,omitempty"`
	X       []float64 `json:"x"`
	Y       []float64 `json:"y"`
}

// NewScatter returns a visible trace. x and y must have the same length.
func NewScatter(name string, x, y []float64) (Scatter, error) {
	if len(x) != len(y) {
		return Scatter{}, fmt.Errorf("x and y lengths differ: %d != %d", len(x), len(y))
	}
	return Scatter{Type: "scatter", Visible: true, Name: name, X: x, Y: y}, nil
}

// WithMode sets the plotly drawing mode ("lines", "markers", "lines+markers").
func (s Scatter) WithMode(mode string) Scatter {
	s.Mode = mode
	return s
}

type Axis struct {
	Title string `json:"title,omitempty"`
}

type Layout struct {
	Title string `json:"title,omitempty"`
	XAxis *Axis  `json:"xaxis,omitempty"`
	YAxis *Axis  `json:"yaxis,omitempty"`
}

type Figure struct {
	Data   []Scatter `json:"data"`
	Layout Layout    `json:"layout"`
}

func NewFigure(layout Layout) *Figure {
	return &Figure{Data: []Scatter{}, Layout: layout}
}

// Add appends traces and returns the figure for chaining.
func (f *Figure) Add(traces ...Scatter) *Figure {
	f.Data = append(f.Data, traces...)
	return f
}

// HasData reports whether the figure has at least one trace.
func (f *Figure) HasData() bool {
	return f != nil && len(f.Data) > 0
}

// Plot is the request document handed to the runner.
type Plot struct {
	Figure   *Figure `json:"figure"`
	Filename string  `json:"filename"`
	AutoOpen bool    `json:"auto_open"`
}

// NewPlot writes to <plotsDir>/<name>.html.
func NewPlot(figure *Figure, plotsDir, name string) *Plot {
	return &Plot{
		Figure:   figure,
		Filename: filepath.Join(plotsDir, name+".html"),
	}
}

// WithAutoOpen sets whether the viewer opens the chart once rendered.
func (p *Plot) WithAutoOpen(autoOpen bool) *Plot {
	p.AutoOpen = autoOpen
	return p
}

// Ready reports whether the plot has something to draw.
func (p *Plot) Ready() bool {
	return p != nil && p.Filename != "" && p.Figure.HasData()
}
