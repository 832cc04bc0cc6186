// Package logger provides the package-level logger of protomsg.
// All output is discarded until SetOutput is called, which the CLI does for --verbose.
package logger

import (
	"io"
	"log"

	"github.com/k0kubun/pp"
)

var (
	defaultLogger = newDefaultLogger()
)

func newDefaultLogger() *log.Logger {
	return log.New(io.Discard, "protomsg: ", 0)
}

func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

func SetPrefix(p string) {
	defaultLogger.SetPrefix(p)
}

// Reset discards all output and restores the default prefix.
func Reset() {
	defaultLogger = newDefaultLogger()
}

func Println(v ...interface{}) {
	defaultLogger.Println(v...)
}

func Printf(format string, v ...interface{}) {
	defaultLogger.Printf(format, v...)
}

// Scriptln calls f and logs its results only if the output is enabled.
// It is used for logging values which are expensive to build.
func Scriptln(f func() []interface{}) {
	if defaultLogger.Writer() == io.Discard {
		return
	}
	defaultLogger.Println(f()...)
}

// Dump pretty-prints v with its type information if the output is enabled.
func Dump(label string, v interface{}) {
	if defaultLogger.Writer() == io.Discard {
		return
	}
	defaultLogger.Printf("%s: %s", label, pp.Sprint(v))
}
