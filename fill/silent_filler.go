package fill

import (
	"bufio"
	"io"
	"strings"

	"github.com/ktr0731/protomsg/logger"
	"github.com/ktr0731/protomsg/message"
	"github.com/pkg/errors"
)

// SilentFiller is a Filler implementation that reads assignments from an io.Reader
// without any interactive actions. Each line holds one assignment.
// Blank lines and lines starting with '#' are ignored.
type SilentFiller struct {
	in   io.Reader
	opts Opts
}

// NewSilentFiller receives input as io.Reader and returns an instance of SilentFiller.
func NewSilentFiller(in io.Reader, opts Opts) *SilentFiller {
	return &SilentFiller{in: in, opts: opts}
}

// Fill fills values of each field from the lines of the input.
// Fill stops at the first invalid line and reports its line number.
func (f *SilentFiller) Fill(m *message.Message) error {
	s := bufio.NewScanner(f.in)
	var n int
	for s.Scan() {
		n++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := Assign(m, line, f.opts); err != nil {
			return errors.Wrapf(err, "line %d", n)
		}
	}
	if err := s.Err(); err != nil {
		return errors.Wrap(err, "failed to read assignments")
	}
	logger.Printf("filled %d line(s) into %s", n, m.Type().Name())
	return nil
}

// ArgsFiller is a Filler implementation that fills assignments passed as arguments.
type ArgsFiller struct {
	args []string
	opts Opts
}

// NewArgsFiller returns a Filler that assigns each of args in order.
func NewArgsFiller(args []string, opts Opts) *ArgsFiller {
	return &ArgsFiller{args: args, opts: opts}
}

func (f *ArgsFiller) Fill(m *message.Message) error {
	for _, a := range f.args {
		if err := Assign(m, a, f.opts); err != nil {
			return err
		}
	}
	return nil
}
