package runner

import (
	"errors"
	"fmt"

	"plotrunner/internal/render"
	"plotrunner/internal/request"
)

// Exit codes. 0 strictly means the chart was written and the input removed.
const (
	ExitOK     = 0
	ExitUsage  = 2
	ExitIO     = 3
	ExitDecode = 4
	ExitRender = 5
)

// UsageMessage is printed when the argument count is wrong.
const UsageMessage = "expecting one arg path with data to be plotted"

// UsageError reports a wrong command line.
type UsageError struct {
	Got int
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s (got %d args)", UsageMessage, e.Got)
}

type (
	// IOError covers failures to read or delete the request file.
	IOError = request.IOError
	// DecodeError covers malformed requests and missing/invalid fields.
	DecodeError = request.DecodeError
	// RenderError covers failures to produce or open the output.
	RenderError = render.RenderError
)

// ExitCode maps an error returned by Run (or the command line check) to
// the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usageErr *UsageError
	var ioErr *IOError
	var decodeErr *DecodeError
	var renderErr *RenderError

	switch {
	case errors.As(err, &usageErr):
		return ExitUsage
	case errors.As(err, &decodeErr):
		return ExitDecode
	case errors.As(err, &renderErr):
		return ExitRender
	case errors.As(err, &ioErr):
		return ExitIO
	default:
		return 1
	}
}
