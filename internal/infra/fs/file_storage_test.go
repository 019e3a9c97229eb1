package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFirstLine(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"single line", `{"a":1}`, `{"a":1}`},
		{"trailing newline", "{\"a\":1}\n", `{"a":1}`},
		{"crlf", "{\"a\":1}\r\nsecond", `{"a":1}`},
		{"bom", "\xEF\xBB\xBF{\"a\":1}\nsecond", `{"a":1}`},
		{"empty", "", ""},
		{"garbage after", "line one\n\x00\xff garbage", "line one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "in.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			got, err := ReadFirstLine(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestReadFirstLine_Missing(t *testing.T) {
	_, err := ReadFirstLine(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWriteAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.txt")

	err := WriteAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestWriteAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	err := WriteAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return errors.New("encode failed")
	})
	require.EqualError(t, err, "encode failed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckNonEmpty(t *testing.T) {
	dir := t.TempDir()

	full := filepath.Join(dir, "full")
	require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
	size, err := CheckNonEmpty(full)
	require.NoError(t, err)
	assert.EqualValues(t, 1, size)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = CheckNonEmpty(empty)
	assert.Error(t, err)
	assert.NoFileExists(t, empty)

	_, err = CheckNonEmpty(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestWriteJSONLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.json")
	require.NoError(t, WriteJSONLine(path, map[string]interface{}{"filename": "a.html", "auto_open": false}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"auto_open\":false,\"filename\":\"a.html\"}\n", string(data))
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.NoError(t, Remove(path))
	assert.Error(t, Remove(path), "removing twice fails")
}

func TestWaitForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "late")
	go func() {
		time.Sleep(100 * time.Millisecond)
		os.WriteFile(path, []byte("x"), 0644)
	}()

	require.NoError(t, WaitForFile(context.Background(), path, 5*time.Second))
}

func TestWaitForFile_Timeout(t *testing.T) {
	err := WaitForFile(context.Background(), filepath.Join(t.TempDir(), "never"), 120*time.Millisecond)
	assert.Error(t, err)
}

func TestWaitForRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queued")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	go func() {
		time.Sleep(100 * time.Millisecond)
		os.Remove(path)
	}()

	require.NoError(t, WaitForRemoval(context.Background(), path, 5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.ErrorIs(t, WaitForRemoval(ctx, path, 5*time.Second), context.Canceled)
}
