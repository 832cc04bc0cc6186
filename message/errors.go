package message

import (
	"errors"

	"github.com/ktr0731/protomsg/schema"
)

var (
	// ErrUnknownField is returned by presence and accessor queries on undeclared field names.
	ErrUnknownField = schema.ErrUnknownField
	// ErrTypeMismatch is returned by setters if a value doesn't match the declared field type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrUnsupportedTarget is returned by EncodeTo if the target is neither a buffer nor a writer.
	ErrUnsupportedTarget = errors.New("unsupported encode target")
	// ErrUnsupportedSource is returned by DecodeFrom if the source is neither raw bytes nor a reader.
	ErrUnsupportedSource = errors.New("unsupported decode source")
	// ErrMalformedEncoding is returned when a payload cannot be decoded.
	ErrMalformedEncoding = errors.New("malformed encoding")
	// ErrSourceReadFailed is returned when reading from a source fails.
	ErrSourceReadFailed = errors.New("failed to read from source")
	// ErrSinkWriteFailed is returned when writing to a target fails.
	ErrSinkWriteFailed = errors.New("failed to write to target")
	// ErrNotSupported is returned by capabilities which this package deliberately doesn't implement.
	ErrNotSupported = errors.New("not supported")
)

// Error records a failed operation on a message.
// It matches its Kind by errors.Is, while Unwrap returns the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func newError(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}
