// Package runner executes one plot request: load it, render it, hand the
// result to an optional publisher and delete the request file.
package runner

import (
	"context"
	"time"

	"plotrunner/internal/infra/fs"
	logging "plotrunner/internal/infra/log"
	"plotrunner/internal/publish"
	"plotrunner/internal/render"
	"plotrunner/internal/request"

	"go.uber.org/zap"
)

// Runner processes plot request files with a renderer and an optional
// publisher.
type Runner struct {
	renderer  render.Renderer
	publisher publish.Publisher
}

// New returns a Runner. publisher may be nil.
func New(renderer render.Renderer, publisher publish.Publisher) *Runner {
	return &Runner{renderer: renderer, publisher: publisher}
}

// Run processes the request file at path. The steps run strictly in order
// and the first failure stops the pipeline, so the request file is only
// deleted after a successful render.
func (r *Runner) Run(ctx context.Context, path string) error {
	requestID := logging.GenerateRequestID()
	logger := logging.RequestLogger(requestID)
	startTime := time.Now()

	req, err := request.Load(path)
	if err != nil {
		logging.LogError("Failed to load plot request", zap.String("request_id", requestID), zap.String("path", path), zap.Error(err))
		return err
	}
	logger.Info("Plot request loaded",
		zap.String("path", path),
		zap.String("filename", req.Filename),
		zap.Bool("auto_open", req.AutoOpen),
		zap.Int("figure_bytes", len(req.Figure)))

	if err := r.renderer.Render(ctx, req.Figure, req.Filename, req.AutoOpen); err != nil {
		logging.LogError("Failed to render chart", zap.String("request_id", requestID), zap.String("filename", req.Filename), zap.Error(err))
		return err
	}

	if r.publisher != nil {
		output, _ := render.OutputPath(req.Filename)
		if err := r.publisher.Publish(ctx, output); err != nil {
			logging.LogWarn("Failed to publish chart", zap.String("request_id", requestID), zap.String("filename", output), zap.Error(err))
		}
	}

	if err := fs.Remove(path); err != nil {
		logging.LogError("Failed to delete plot request", zap.String("request_id", requestID), zap.String("path", path), zap.Error(err))
		return &request.IOError{Op: "delete", Path: path, Err: err}
	}

	logging.LogSuccess("Chart rendered",
		zap.String("request_id", requestID),
		zap.String("filename", req.Filename),
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()))
	return nil
}
