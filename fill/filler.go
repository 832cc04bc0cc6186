// Package fill provides fillers that fill each field of a message with a value.
package fill

import (
	"github.com/ktr0731/protomsg/message"
	"github.com/pkg/errors"
)

var (
	ErrInvalidAssignment = errors.New("invalid assignment")
	ErrUnsupportedField  = errors.New("unsupported field")
)

// Filler tries to correspond input text to a message.
type Filler interface {
	// Fill receives a message m and sets the values of the input that it has internally.
	// Fill may return these errors:
	//
	//   - ErrInvalidAssignment: If the input isn't formatted as name=value.
	//   - ErrUnsupportedField: If the input assigns a repeated message field.
	//   - message.ErrUnknownField: If the input refers to an undeclared field.
	//
	Fill(m *message.Message) error
}

// Opts changes how textual values are converted.
// If BytesAsBase64 is true, bytes values are decoded as standard base64.
// If BytesFromFile is true, bytes values are read from the file at the provided path.
// Otherwise, bytes values are interpreted as Go string literals without quotes.
type Opts struct {
	BytesAsBase64, BytesFromFile bool
}
