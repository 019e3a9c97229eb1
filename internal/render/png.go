package render

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	logging "plotrunner/internal/infra/log"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"
)

var nan = math.NaN()

const (
	marginLeft   = 90.0
	marginRight  = 40.0
	marginTop    = 70.0
	marginBottom = 70.0

	titleFontSize = 22.0
	axisFontSize  = 14.0

	tickCount      = 6
	maxTicksFactor = 4

	// ranges narrower than this fraction of their magnitude get padded
	minRelativeSpan = 1e-9

	markerRadius = 3.5
	lineWidth    = 2.0

	legendSwatch  = 18.0
	legendSpacing = 22.0

	// plotly shows markers by default on short traces only
	defaultMarkerThreshold = 20
)

// plotly's default trace colour cycle
var palette = []color.RGBA{
	{31, 119, 180, 255},
	{255, 127, 14, 255},
	{44, 160, 44, 255},
	{214, 39, 40, 255},
	{148, 103, 189, 255},
	{140, 86, 75, 255},
	{227, 119, 194, 255},
	{127, 127, 127, 255},
	{188, 189, 34, 255},
	{23, 190, 207, 255},
}

var (
	gridColor = color.RGBA{230, 230, 230, 255}
	axisColor = color.RGBA{68, 68, 68, 255}
	textColor = color.RGBA{42, 63, 95, 255}
)

// fontPaths are tried in order when no font is configured. gg falls back
// to its built-in bitmap face when none load.
var fontPaths = []string{
	"etc/fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/Library/Fonts/Arial.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
}

// fontLoader keeps one parsed face per point size of the first usable font.
type fontLoader struct {
	dc    *gg.Context
	path  string
	load  func(path string, points float64) (font.Face, error)
	faces map[float64]font.Face // nil entries mark sizes that failed to load
}

func newFontLoader(dc *gg.Context, configured string) *fontLoader {
	f := &fontLoader{dc: dc, load: gg.LoadFontFace, faces: make(map[float64]font.Face)}

	candidates := fontPaths
	if configured != "" {
		candidates = append([]string{configured}, fontPaths...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		face, err := f.load(p, axisFontSize)
		if err != nil {
			logging.LogWarn("Font file exists but failed to load", zap.String("path", p), zap.Error(err))
			continue
		}
		f.path = p
		f.faces[axisFontSize] = face
		dc.SetFontFace(face)
		logging.LogDebug("Loaded font", zap.String("path", filepath.Clean(p)))
		return f
	}
	logging.LogWarn("No TrueType font found, using built-in face", zap.Int("paths_checked", len(candidates)))
	return f
}

// size switches the context to the face for points. On a load failure the
// current face stays active.
func (f *fontLoader) size(points float64) {
	if f.path == "" {
		return
	}
	face, ok := f.faces[points]
	if !ok {
		var err error
		face, err = f.load(f.path, points)
		if err != nil {
			logging.LogWarn("Failed to load font size, keeping current face",
				zap.String("path", f.path),
				zap.Float64("points", points),
				zap.Error(err))
			face = nil
		}
		f.faces[points] = face
	}
	if face != nil {
		f.dc.SetFontFace(face)
	}
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func dataBounds(traces []traceModel) (bounds, bool) {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	found := false
	for _, t := range traces {
		if t.Hidden {
			continue
		}
		for i := range t.X {
			x, y := t.X[i], t.Y[i]
			if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
				continue
			}
			b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
			b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
			found = true
		}
	}
	if !found {
		return bounds{0, 1, 0, 1}, false
	}
	b.minX, b.maxX = widen(b.minX, b.maxX)
	b.minY, b.maxY = widen(b.minY, b.maxY)
	return b, true
}

// widen pads ranges that are empty or too narrow to be told apart at their
// magnitude, so every axis has room for distinct ticks.
func widen(lo, hi float64) (float64, float64) {
	mag := math.Max(math.Abs(lo), math.Abs(hi))
	if hi-lo > mag*minRelativeSpan {
		return lo, hi
	}
	pad := math.Max(1, mag*1e-6)
	mid := lo/2 + hi/2
	return mid - pad, mid + pad
}

// niceTicks returns evenly spaced round values covering [lo, hi]. It never
// returns more than maxTicksFactor*count values.
func niceTicks(lo, hi float64, count int) []float64 {
	span := hi - lo
	if !(span > 0) || math.IsInf(span, 0) || count < 2 {
		return []float64{lo}
	}
	raw := span / float64(count-1)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*mag >= raw {
			step = m * mag
			break
		}
	}
	if step == 0 || math.IsNaN(step) || math.IsInf(step, 0) || lo+step == lo {
		return []float64{lo}
	}

	start := math.Floor(lo/step) * step
	ticks := make([]float64, 0, count+1)
	for i := 0; i < count*maxTicksFactor; i++ {
		v := start + float64(i)*step
		if v > hi+step*1e-9 {
			break
		}
		if v >= lo-step*1e-9 {
			ticks = append(ticks, v)
		}
	}
	if len(ticks) == 0 {
		return []float64{lo}
	}
	return ticks
}

func formatTick(v float64) string {
	if math.Abs(v) < 1e-12 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func showMarkers(t traceModel) bool {
	if t.Mode == "" {
		return len(t.X) < defaultMarkerThreshold
	}
	return strings.Contains(t.Mode, "markers")
}

func showLines(t traceModel) bool {
	return t.Mode == "" || strings.Contains(t.Mode, "lines")
}

// writePNG rasterises the scatter traces of fig.
func (r *Offline) writePNG(w io.Writer, fig *figureModel) error {
	width, height := r.opts.PNGWidth, r.opts.PNGHeight
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()

	fonts := newFontLoader(dc, r.opts.FontPath)

	left, top := marginLeft, marginTop
	right, bottom := float64(width)-marginRight, float64(height)-marginBottom
	if right <= left || bottom <= top {
		return fmt.Errorf("image size %dx%d is too small for the plot area", width, height)
	}

	b, _ := dataBounds(fig.Traces)
	toX := func(x float64) float64 { return left + (x-b.minX)/(b.maxX-b.minX)*(right-left) }
	toY := func(y float64) float64 { return bottom - (y-b.minY)/(b.maxY-b.minY)*(bottom-top) }

	// grid and tick labels
	fonts.size(axisFontSize)
	dc.SetLineWidth(1)
	for _, v := range niceTicks(b.minY, b.maxY, tickCount) {
		y := toY(v)
		dc.SetColor(gridColor)
		dc.DrawLine(left, y, right, y)
		dc.Stroke()
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(formatTick(v), left-8, y, 1, 0.5)
	}
	for _, v := range niceTicks(b.minX, b.maxX, tickCount) {
		x := toX(v)
		dc.SetColor(gridColor)
		dc.DrawLine(x, top, x, bottom)
		dc.Stroke()
		dc.SetColor(axisColor)
		dc.DrawStringAnchored(formatTick(v), x, bottom+8, 0.5, 1)
	}

	// frame
	dc.SetColor(axisColor)
	dc.DrawRectangle(left, top, right-left, bottom-top)
	dc.Stroke()

	// traces, clipped to the plot area
	dc.Push()
	dc.DrawRectangle(left, top, right-left, bottom-top)
	dc.Clip()
	for i, t := range fig.Traces {
		if t.Hidden {
			continue
		}
		dc.SetColor(palette[i%len(palette)])

		if showLines(t) {
			dc.SetLineWidth(lineWidth)
			started := false
			for j := range t.X {
				if math.IsNaN(t.X[j]) || math.IsNaN(t.Y[j]) {
					if started {
						dc.Stroke()
					}
					started = false
					continue
				}
				if !started {
					dc.MoveTo(toX(t.X[j]), toY(t.Y[j]))
					started = true
				} else {
					dc.LineTo(toX(t.X[j]), toY(t.Y[j]))
				}
			}
			if started {
				dc.Stroke()
			}
		}

		if showMarkers(t) {
			for j := range t.X {
				if math.IsNaN(t.X[j]) || math.IsNaN(t.Y[j]) {
					continue
				}
				dc.DrawCircle(toX(t.X[j]), toY(t.Y[j]), markerRadius)
				dc.Fill()
			}
		}
	}
	dc.ResetClip()
	dc.Pop()

	// titles
	dc.SetColor(textColor)
	if fig.Title != "" {
		fonts.size(titleFontSize)
		dc.DrawStringAnchored(fig.Title, float64(width)/2, marginTop/2, 0.5, 0.5)
	}
	fonts.size(axisFontSize)
	if fig.XTitle != "" {
		dc.DrawStringAnchored(fig.XTitle, (left+right)/2, float64(height)-marginBottom/4, 0.5, 0)
	}
	if fig.YTitle != "" {
		dc.Push()
		dc.RotateAbout(gg.Radians(-90), marginLeft/4, (top+bottom)/2)
		dc.DrawStringAnchored(fig.YTitle, marginLeft/4, (top+bottom)/2, 0.5, 0.5)
		dc.Pop()
	}

	// legend, top right inside the plot area
	visible := 0
	for _, t := range fig.Traces {
		if !t.Hidden {
			visible++
		}
	}
	if visible > 1 {
		y := top + legendSpacing
		for i, t := range fig.Traces {
			if t.Hidden {
				continue
			}
			textWidth, _ := dc.MeasureString(t.Name)
			x := right - textWidth - legendSwatch - 20
			dc.SetColor(palette[i%len(palette)])
			dc.DrawRectangle(x, y-2, legendSwatch, 4)
			dc.Fill()
			dc.SetColor(textColor)
			dc.DrawStringAnchored(t.Name, x+legendSwatch+6, y, 0, 0.5)
			y += legendSpacing
		}
	}

	return dc.EncodePNG(w)
}
