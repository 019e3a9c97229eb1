package render

import (
	"io"

	"plotrunner/internal/infra/exec"

	"github.com/pkg/browser"
)

// Opener shows a rendered file to the user.
type Opener interface {
	Open(path string) error
}

// SystemOpener opens files with the desktop's default handler.
type SystemOpener struct{}

func (SystemOpener) Open(path string) error {
	// keep xdg-open/open chatter off our stdout
	browser.Stdout = io.Discard
	return browser.OpenFile(path)
}

// CommandOpener launches a configured viewer command with the file path
// appended as the last argument.
type CommandOpener struct {
	Command string
}

func (o CommandOpener) Open(path string) error {
	return exec.Start(o.Command, path)
}

// NewOpener picks CommandOpener when a command is configured.
func NewOpener(command string) Opener {
	if command != "" {
		return CommandOpener{Command: command}
	}
	return SystemOpener{}
}
