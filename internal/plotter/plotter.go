// Package plotter queues plot requests on disk and hands them to the
// plotrunner binary, the same way batch jobs that produce charts drive it.
package plotter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"plotrunner/internal/infra/config"
	"plotrunner/internal/infra/exec"
	"plotrunner/internal/infra/fs"
	logging "plotrunner/internal/infra/log"
	"plotrunner/internal/render"

	"go.uber.org/zap"
)

// QueueDirName is the queue directory inside the plots directory.
const QueueDirName = "queue"

// ErrNotReady is returned for plots without a filename or traces.
var ErrNotReady = errors.New("plot doesn't contain all necessary data")

// Plotter queues plots under its plots directory and runs the plotrunner
// binary on them.
type Plotter struct {
	plotsDir   string
	queueDir   string
	runnerPath string
	timeout    time.Duration
	now        func() time.Time
}

// Job is a queued plot request.
type Job struct {
	QueuePath  string // request file consumed by the runner
	OutputPath string // where the chart will be written
}

// Result is the outcome of a synchronous Plot.
type Result struct {
	Job
	Output []byte // combined runner output
}

// New returns a Plotter for cfg. Empty fields fall back to "plots",
// "plotrunner" on PATH and a 60s timeout.
func New(cfg config.PlotterConfig) *Plotter {
	plotsDir := cfg.PlotsDir
	if plotsDir == "" {
		plotsDir = "plots"
	}
	runnerPath := cfg.RunnerPath
	if runnerPath == "" {
		runnerPath = "plotrunner"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Plotter{
		plotsDir:   plotsDir,
		queueDir:   filepath.Join(plotsDir, QueueDirName),
		runnerPath: runnerPath,
		timeout:    timeout,
		now:        time.Now,
	}
}

// PlotsDir is where NewPlot output paths should live.
func (p *Plotter) PlotsDir() string { return p.plotsDir }

// NewPlot builds a plot writing to <plots dir>/<name>.html.
func (p *Plotter) NewPlot(figure *Figure, name string) *Plot {
	return NewPlot(figure, p.plotsDir, name)
}

// Enqueue writes plot as a one-line request file named after the current
// unix time in milliseconds.
func (p *Plotter) Enqueue(plot *Plot) (*Job, error) {
	if !plot.Ready() {
		return nil, ErrNotReady
	}
	if err := fs.EnsureDirs(p.plotsDir, p.queueDir); err != nil {
		return nil, err
	}

	path, err := p.reserve()
	if err != nil {
		return nil, err
	}
	if err := fs.WriteJSONLine(path, plot); err != nil {
		os.Remove(path)
		return nil, err
	}

	output, _ := render.OutputPath(plot.Filename)
	logging.LogDebug("Plot queued", zap.String("queue_path", path), zap.String("filename", output))
	return &Job{QueuePath: path, OutputPath: output}, nil
}

// reserve creates an empty queue file with a unique millisecond name.
func (p *Plotter) reserve() (string, error) {
	base := strconv.FormatInt(p.now().UnixMilli(), 10)
	for i := 0; i < 1000; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		path := filepath.Join(p.queueDir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create queue file: %w", err)
		}
		f.Close()
		return path, nil
	}
	return "", fmt.Errorf("failed to find a free queue name for %s", base)
}

// Plot queues plot and runs the runner on it, waiting for it to finish.
func (p *Plotter) Plot(ctx context.Context, plot *Plot) (*Result, error) {
	job, err := p.Enqueue(plot)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	output, err := exec.Run(ctx, p.runnerPath, p.timeout, job.QueuePath)
	result := &Result{Job: *job, Output: output}
	if err != nil {
		logging.LogError("Plot runner failed",
			zap.String("queue_path", job.QueuePath),
			zap.String("output", string(output)),
			zap.Error(err))
		return result, fmt.Errorf("plot runner failed: %w", err)
	}

	logging.LogInfo("Plot runner finished",
		zap.String("filename", job.OutputPath),
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()))
	return result, nil
}

// Start queues plot and launches the runner without waiting for it.
func (p *Plotter) Start(plot *Plot) (*Job, error) {
	job, err := p.Enqueue(plot)
	if err != nil {
		return nil, err
	}
	if err := exec.Spawn(p.runnerPath, job.QueuePath); err != nil {
		return job, fmt.Errorf("failed to start plot runner: %w", err)
	}
	return job, nil
}

// Wait blocks until the runner has consumed job's request file and the
// chart exists, or maxWait elapses.
func (p *Plotter) Wait(ctx context.Context, job *Job, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	if err := fs.WaitForRemoval(ctx, job.QueuePath, maxWait); err != nil {
		return fmt.Errorf("plot runner did not consume %s: %w", job.QueuePath, err)
	}
	return fs.WaitForFile(ctx, job.OutputPath, time.Until(deadline))
}
