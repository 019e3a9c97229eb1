package exec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Run executes name with args, waiting at most timeout.
// Returns combined output and error
func Run(ctx context.Context, name string, timeout time.Duration, args ...string) ([]byte, error) {
	path, err := resolve(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	output, err := cmd.CombinedOutput()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("command timed out after %v", timeout)
	}
	return output, err
}

// Start launches a command line ("viewer --flag") with extra args appended
// and returns without waiting for it to exit.
func Start(commandLine string, args ...string) error {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return errors.New("empty command")
	}
	return Spawn(fields[0], append(fields[1:], args...)...)
}

// Spawn starts name with args in the background.
func Spawn(name string, args ...string) error {
	path, err := resolve(name)
	if err != nil {
		return err
	}

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	// reap the child so it does not linger as a zombie while we run
	go cmd.Wait()
	return nil
}

// resolve checks that name is an executable on PATH (or a path to one).
func resolve(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s is not installed or not in PATH: %w", name, err)
	}
	return path, nil
}
