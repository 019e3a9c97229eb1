package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"plotrunner/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renderCall struct {
	Figure   string
	Filename string
	AutoOpen bool
}

type fakeRenderer struct {
	calls []renderCall
	err   error
	hook  func()
}

func (f *fakeRenderer) Render(_ context.Context, figure json.RawMessage, filename string, autoOpen bool) error {
	f.calls = append(f.calls, renderCall{string(figure), filename, autoOpen})
	if f.hook != nil {
		f.hook()
	}
	return f.err
}

type fakePublisher struct {
	paths []string
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, path string) error {
	f.paths = append(f.paths, path)
	return f.err
}

func writeRequest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_HappyPath(t *testing.T) {
	path := writeRequest(t, `{"figure": {"data": [], "layout": {}}, "filename": "out.html", "auto_open": false}`)
	renderer := &fakeRenderer{}

	err := New(renderer, nil).Run(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, ExitOK, ExitCode(err))

	require.Len(t, renderer.calls, 1)
	assert.Equal(t, renderCall{`{"data": [], "layout": {}}`, "out.html", false}, renderer.calls[0])
	assert.NoFileExists(t, path)
}

func TestRun_MalformedJSONKeepsInput(t *testing.T) {
	path := writeRequest(t, `{"figure": [1, 2`)
	renderer := &fakeRenderer{}

	err := New(renderer, nil).Run(context.Background(), path)
	assert.Equal(t, ExitDecode, ExitCode(err))
	assert.Empty(t, renderer.calls)
	assert.FileExists(t, path)
}

func TestRun_MissingFieldKeepsInput(t *testing.T) {
	path := writeRequest(t, `{"figure": {}, "filename": "out.html"}`)
	renderer := &fakeRenderer{}

	err := New(renderer, nil).Run(context.Background(), path)

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "auto_open", de.Field)
	assert.Equal(t, ExitDecode, ExitCode(err))
	assert.Empty(t, renderer.calls)
	assert.FileExists(t, path)
}

func TestRun_RenderFailureKeepsInput(t *testing.T) {
	path := writeRequest(t, `{"figure": {}, "filename": "out.html", "auto_open": true}`)
	renderer := &fakeRenderer{err: &render.RenderError{Filename: "out.html", Err: errors.New("disk full")}}
	publisher := &fakePublisher{}

	err := New(renderer, publisher).Run(context.Background(), path)
	assert.Equal(t, ExitRender, ExitCode(err))
	assert.FileExists(t, path)
	assert.Empty(t, publisher.paths)
}

func TestRun_TrailingLinesIgnored(t *testing.T) {
	line := `{"figure": {"data": [1]}, "filename": "out.html", "auto_open": false}`

	clean := &fakeRenderer{}
	require.NoError(t, New(clean, nil).Run(context.Background(), writeRequest(t, line)))

	garbage := &fakeRenderer{}
	require.NoError(t, New(garbage, nil).Run(context.Background(), writeRequest(t, line+"\n}}} garbage {{{\n")))

	assert.Equal(t, clean.calls, garbage.calls)
}

func TestRun_MissingFile(t *testing.T) {
	renderer := &fakeRenderer{}
	err := New(renderer, nil).Run(context.Background(), filepath.Join(t.TempDir(), "missing.json"))

	assert.Equal(t, ExitIO, ExitCode(err))
	assert.Empty(t, renderer.calls)
}

func TestRun_DeleteFailure(t *testing.T) {
	path := writeRequest(t, `{"figure": {}, "filename": "out.html", "auto_open": false}`)
	renderer := &fakeRenderer{hook: func() { os.Remove(path) }}

	err := New(renderer, nil).Run(context.Background(), path)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "delete", ioErr.Op)
	assert.Equal(t, ExitIO, ExitCode(err))
}

func TestRun_PublishesOutputPath(t *testing.T) {
	path := writeRequest(t, `{"figure": {}, "filename": "plots/chart", "auto_open": false}`)
	publisher := &fakePublisher{}

	require.NoError(t, New(&fakeRenderer{}, publisher).Run(context.Background(), path))
	assert.Equal(t, []string{"plots/chart.html"}, publisher.paths)
}

func TestRun_PublishFailureIsNotFatal(t *testing.T) {
	path := writeRequest(t, `{"figure": {}, "filename": "chart.png", "auto_open": false}`)
	publisher := &fakePublisher{err: errors.New("telegram down")}

	err := New(&fakeRenderer{}, publisher).Run(context.Background(), path)
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestRun_EndToEndHTML(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "chart.html")
	path := writeRequest(t, `{"figure": {"data": [], "layout": {}}, "filename": "`+filepath.ToSlash(out)+`", "auto_open": false}`)

	renderer := render.NewOffline(render.Options{PNGWidth: 100, PNGHeight: 100}, nil)
	require.NoError(t, New(renderer, nil).Run(context.Background(), path))

	assert.FileExists(t, out)
	assert.NoFileExists(t, path)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitUsage, ExitCode(&UsageError{Got: 0}))
	assert.Equal(t, 1, ExitCode(errors.New("other")))
	assert.Contains(t, (&UsageError{Got: 2}).Error(), UsageMessage)
}
