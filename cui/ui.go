// Package cui defines character user interfaces for I/O.
package cui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// UI provides formatted output for the application. Almost users can use
// New() without any options.
type UI struct {
	prefix            string
	writer, errWriter io.Writer
	colored           bool
}

// New returns a UI that writes to stdout and stderr. Colors are enabled
// only if stdout is a terminal.
func New(opts ...Option) *UI {
	ui := &UI{
		prefix:    "protomsg: ",
		writer:    colorable.NewColorableStdout(),
		errWriter: colorable.NewColorableStderr(),
		colored:   isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
	for _, opt := range opts {
		opt(ui)
	}
	return ui
}

// Writer returns the writer of u for outputs other than messages.
func (u *UI) Writer() io.Writer {
	return u.writer
}

// Output writes out the passed argument s to the writer with a line break.
func (u *UI) Output(s string) {
	fmt.Fprintln(u.writer, s)
}

// Info is the same as Output, but the text is emphasized.
func (u *UI) Info(s string) {
	u.Output(u.paint(color.New(color.FgGreen, color.Bold), s))
}

// Warn writes out s to the error writer in yellow.
func (u *UI) Warn(s string) {
	fmt.Fprintln(u.errWriter, u.paint(color.New(color.FgYellow), u.prefix+s))
}

// Error writes out s to the error writer in red.
func (u *UI) Error(s string) {
	fmt.Fprintln(u.errWriter, u.paint(color.New(color.FgRed), u.prefix+s))
}

func (u *UI) paint(c *color.Color, s string) string {
	if !u.colored {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}
