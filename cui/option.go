package cui

import (
	"io"
)

// Option represents an option for New.
type Option func(*UI)

// Writer modifies the default writer to w.
func Writer(w io.Writer) Option {
	return func(u *UI) {
		u.writer = w
	}
}

// ErrWriter modifies the default error writer to w.
func ErrWriter(ew io.Writer) Option {
	return func(u *UI) {
		u.errWriter = ew
	}
}

// Colored enables or disables colored output.
func Colored(b bool) Option {
	return func(u *UI) {
		u.colored = b
	}
}
