// Package wire implements the binary wire codec for messages described by the schema package.
//
// The format is the Protocol Buffers binary encoding. Each present field is
// written as a tag (field number and wire type) followed by its payload, in
// ascending tag order. Fields which are not present are not written at all,
// so absence on the wire is the absence of the tag.
//
// The codec doesn't know the concrete message representation. Marshal reads
// values through a Source and Unmarshal stores them through a Builder.
package wire

import (
	"errors"

	"github.com/ktr0731/protomsg/schema"
)

var (
	// ErrMalformed is returned when the payload is not a valid encoding.
	ErrMalformed = errors.New("malformed encoding")
	// ErrUnknownTag is returned by strict unmarshaling when a tag is not declared by the type.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrWireTypeMismatch is returned when the wire type of an encountered tag
	// doesn't agree with the declared kind of the field.
	ErrWireTypeMismatch = errors.New("wire type mismatch")
	// ErrDepthExceeded is returned when nested messages are deeper than the allowed depth.
	ErrDepthExceeded = errors.New("max nesting depth exceeded")
	// ErrInvalidValue is returned by Marshal if a value doesn't match its field type.
	ErrInvalidValue = errors.New("invalid field value")
)

// DefaultMaxDepth is the nesting limit used if UnmarshalOptions.MaxDepth is zero.
const DefaultMaxDepth = 100

// Source provides present field values of a message.
type Source interface {
	// Type returns the type of the message.
	Type() *schema.MessageType
	// Range calls f for each present field in ascending tag order until f returns false.
	//
	// Values of message fields must implement Source. Values of repeated fields are
	// []interface{} whose elements follow the same rules.
	Range(f func(fd *schema.FieldDescriptor, v interface{}) bool)
}

// Builder stores decoded field values.
type Builder interface {
	// Set stores v as the value of the singular scalar field fd.
	Set(fd *schema.FieldDescriptor, v interface{})
	// Append adds v to the repeated scalar field fd.
	Append(fd *schema.FieldDescriptor, v interface{})
	// Mutable returns the builder of the message field fd.
	// For a singular field, the existing message is returned if it is present,
	// so that repeated occurrences are merged. For a repeated field a new
	// element is appended.
	Mutable(fd *schema.FieldDescriptor) Builder
}

// UnmarshalOptions configures Unmarshal.
type UnmarshalOptions struct {
	// Strict rejects tags which are not declared by the message type.
	// By default, unknown tags are skipped and discarded.
	Strict bool
	// MaxDepth limits the nesting of messages. DefaultMaxDepth is used if it is zero.
	MaxDepth int
}

func (o UnmarshalOptions) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}
