// Package request loads the one-line JSON documents that describe a chart to
// render.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"plotrunner/internal/infra/fs"
)

// Field names of a request document.
const (
	FieldFigure   = "figure"
	FieldFilename = "filename"
	FieldAutoOpen = "auto_open"
)

// PlotRequest is one render job. Figure is kept as raw JSON so it reaches
// the renderer exactly as the caller wrote it.
type PlotRequest struct {
	Figure   json.RawMessage `json:"figure"`
	Filename string          `json:"filename"`
	AutoOpen bool            `json:"auto_open"`
}

// DecodeError reports a malformed document or a missing/invalid field.
// Field is empty when the line is not a JSON object at all.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid plot request: %v", e.Err)
	}
	return fmt.Sprintf("invalid plot request field %q: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IOError reports that the request file could not be read or deleted.
type IOError struct {
	Op   string // "read" or "delete"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s plot request %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

var errMissing = errors.New("field is required")

// Decode parses one request document. All three fields must be present;
// filename must be a string and auto_open a boolean. figure may hold any
// JSON value, including null.
func Decode(line []byte) (*PlotRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if raw == nil {
		return nil, &DecodeError{Err: errors.New("document is null, expected an object")}
	}

	figure, ok := raw[FieldFigure]
	if !ok {
		return nil, &DecodeError{Field: FieldFigure, Err: errMissing}
	}

	filenameRaw, ok := raw[FieldFilename]
	if !ok {
		return nil, &DecodeError{Field: FieldFilename, Err: errMissing}
	}
	var filename string
	if err := decodeStrict(filenameRaw, &filename); err != nil {
		return nil, &DecodeError{Field: FieldFilename, Err: err}
	}

	autoOpenRaw, ok := raw[FieldAutoOpen]
	if !ok {
		return nil, &DecodeError{Field: FieldAutoOpen, Err: errMissing}
	}
	var autoOpen bool
	if err := decodeStrict(autoOpenRaw, &autoOpen); err != nil {
		return nil, &DecodeError{Field: FieldAutoOpen, Err: err}
	}

	return &PlotRequest{
		Figure:   append(json.RawMessage(nil), figure...),
		Filename: filename,
		AutoOpen: autoOpen,
	}, nil
}

// decodeStrict is json.Unmarshal that refuses null, which Unmarshal would
// otherwise accept silently as the zero value.
func decodeStrict(data json.RawMessage, v interface{}) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("must not be null")
	}
	return json.Unmarshal(data, v)
}

// Load reads the first line of path and decodes it. Anything after the
// first line is ignored.
func Load(path string) (*PlotRequest, error) {
	line, err := fs.ReadFirstLine(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return Decode(line)
}
