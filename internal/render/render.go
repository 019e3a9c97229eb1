// Package render writes figures to standalone files without any network
// service: self-contained HTML pages driven by plotly.js, or PNG rasters.
package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"plotrunner/internal/infra/config"
	"plotrunner/internal/infra/fs"
	logging "plotrunner/internal/infra/log"

	"go.uber.org/zap"
)

// Renderer produces the output file for one figure.
type Renderer interface {
	Render(ctx context.Context, figure json.RawMessage, filename string, autoOpen bool) error
}

// Format is the kind of file written for a filename.
type Format string

const (
	FormatHTML Format = "html"
	FormatPNG  Format = "png"
)

// RenderError is returned for every failure to produce or open the output.
type RenderError struct {
	Filename string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s: %v", e.Filename, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Options configures Offline.
type Options struct {
	PlotlyJSPath string
	PlotlyCDNURL string
	PNGWidth     int
	PNGHeight    int
	FontPath     string
}

// OptionsFromConfig maps the render section of the configuration.
func OptionsFromConfig(cfg config.RenderConfig) Options {
	return Options{
		PlotlyJSPath: cfg.PlotlyJSPath,
		PlotlyCDNURL: cfg.PlotlyCDNURL,
		PNGWidth:     cfg.PNGWidth,
		PNGHeight:    cfg.PNGHeight,
		FontPath:     cfg.FontPath,
	}
}

// Offline is the production Renderer.
type Offline struct {
	opts   Options
	opener Opener
}

func NewOffline(opts Options, opener Opener) *Offline {
	if opts.PlotlyCDNURL == "" {
		opts.PlotlyCDNURL = config.DefaultPlotlyCDN
	}
	if opener == nil {
		opener = SystemOpener{}
	}
	return &Offline{opts: opts, opener: opener}
}

// OutputPath returns where filename is actually written and in which
// format. Anything that is not .png, .html or .htm gets .html appended,
// like plotly's own offline mode.
func OutputPath(filename string) (string, Format) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return filename, FormatPNG
	case ".html", ".htm":
		return filename, FormatHTML
	default:
		return filename + ".html", FormatHTML
	}
}

func (r *Offline) Render(ctx context.Context, figure json.RawMessage, filename string, autoOpen bool) error {
	if err := ctx.Err(); err != nil {
		return &RenderError{Filename: filename, Err: err}
	}
	if strings.TrimSpace(filename) == "" {
		return &RenderError{Filename: filename, Err: errors.New("filename is empty")}
	}

	startTime := time.Now()
	path, format := OutputPath(filename)

	var write func(w io.Writer) error
	switch format {
	case FormatPNG:
		model, err := parseFigure(figure)
		if err != nil {
			return &RenderError{Filename: filename, Err: err}
		}
		write = func(w io.Writer) error { return r.writePNG(w, model) }
	default:
		divID := logging.GenerateRequestID()
		write = func(w io.Writer) error { return r.writeHTML(w, figure, divID) }
	}

	if err := fs.WriteAtomic(path, write); err != nil {
		return &RenderError{Filename: filename, Err: err}
	}

	size, err := fs.CheckNonEmpty(path)
	if err != nil {
		return &RenderError{Filename: filename, Err: err}
	}

	logging.LogInfo("Chart rendered",
		zap.String("filename", path),
		zap.String("format", string(format)),
		zap.Int64("fileSize", size),
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()))

	if autoOpen {
		if err := r.opener.Open(path); err != nil {
			return &RenderError{Filename: filename, Err: fmt.Errorf("failed to open viewer: %w", err)}
		}
		logging.LogInfo("Opened chart in viewer", zap.String("filename", path))
	}
	return nil
}
