package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"plotrunner/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func TestRoot_UsageGate(t *testing.T) {
	for _, args := range [][]string{nil, {"a.json", "b.json"}} {
		dir := t.TempDir()
		chdir(t, dir)

		err := execute(t, args...)

		var usageErr *runner.UsageError
		require.True(t, errors.As(err, &usageErr), "args %v: got %v", args, err)
		assert.Equal(t, runner.ExitUsage, runner.ExitCode(err))
		assert.Contains(t, err.Error(), runner.UsageMessage)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "no files may be created before the argument check passes")
	}
}

func TestRoot_RendersAndDeletesRequest(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	out := filepath.Join(dir, "chart.html")
	req := filepath.Join(dir, "req.json")
	line := `{"figure": {"data": [], "layout": {}}, "filename": "` + filepath.ToSlash(out) + `", "auto_open": false}`
	require.NoError(t, os.WriteFile(req, []byte(line+"\n"), 0644))

	err := execute(t, req, "--app.log_dir", filepath.Join(dir, "logs"))
	require.NoError(t, err)

	assert.FileExists(t, out)
	assert.NoFileExists(t, req)
	assert.FileExists(t, filepath.Join(dir, "logs", "plotrunner.log"))
}

func TestRoot_DecodeFailureKeepsRequest(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	req := filepath.Join(dir, "req.json")
	require.NoError(t, os.WriteFile(req, []byte(`{"figure": {}, "filename": "x.html"}`), 0644))

	err := execute(t, req)
	assert.Equal(t, runner.ExitDecode, runner.ExitCode(err))
	assert.FileExists(t, req)
	assert.NoFileExists(t, filepath.Join(dir, "x.html"))
}

func TestRoot_ConfigFileError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	err := execute(t, "req.json", "--config", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, 1, runner.ExitCode(err))
}
