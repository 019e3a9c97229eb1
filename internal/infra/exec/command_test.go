package exec

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	path := filepath.Join(t.TempDir(), "cmd.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestRun(t *testing.T) {
	out, err := Run(context.Background(), script(t, `echo "hello $1"`), 5*time.Second, "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(out))
}

func TestRun_Timeout(t *testing.T) {
	_, err := Run(context.Background(), script(t, "sleep 5"), 100*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRun_NotInstalled(t *testing.T) {
	_, err := Run(context.Background(), "definitely-not-a-real-binary-xyz", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not installed")
}

func TestStart(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "opened")
	viewer := script(t, `touch "$2"`)

	require.NoError(t, Start(viewer+" --new-window", marker))

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStart_Empty(t *testing.T) {
	assert.Error(t, Start("   ", "file"))
}
