package commands

// Root command for Cobra CLI
// Takes exactly one argument: the JSON request file to render
// Config and logging are set up only after the argument check passes

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"plotrunner/internal/infra/config"
	logging "plotrunner/internal/infra/log"
	"plotrunner/internal/publish"
	"plotrunner/internal/render"
	"plotrunner/internal/runner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCmd builds the plotrunner command.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "plotrunner <path-to-json-file>",
		Short: "Render a chart request file to a standalone HTML or PNG file",
		Long: `plotrunner reads the first line of a JSON request file
({"figure": ..., "filename": ..., "auto_open": ...}), renders the figure
offline to filename, optionally opens it in a viewer, and deletes the
request file once the chart has been written.`,
		Version:       "1.0.0",
		Args:          exactlyOneArg,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd, configFile, args[0])
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Config file (default: ./config.yaml if present)")
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func exactlyOneArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &runner.UsageError{Got: len(args)}
	}
	return nil
}

func runPlot(cmd *cobra.Command, configFile, path string) error {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logging.Init(cfg.App.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	defer logging.Sync()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	renderer := render.NewOffline(render.OptionsFromConfig(cfg.Render), render.NewOpener(cfg.Render.OpenCommand))

	var publisher publish.Publisher
	if cfg.Telegram.Enabled() {
		tg, err := publish.NewTelegram(cfg.Telegram)
		if err != nil {
			logging.LogError("Failed to configure Telegram publisher", zap.Error(err))
			return fmt.Errorf("failed to configure telegram: %w", err)
		}
		publisher = tg
	}

	return runner.New(renderer, publisher).Run(ctx, path)
}

// Execute runs the command with os.Args and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return runner.ExitCode(err)
	}
	return runner.ExitOK
}
