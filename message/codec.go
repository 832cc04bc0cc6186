package message

import (
	"github.com/ktr0731/protomsg/logger"
	"github.com/ktr0731/protomsg/schema"
	"github.com/ktr0731/protomsg/wire"
)

type opt struct {
	wire      wire.UnmarshalOptions
	delimited bool
}

// DecodeOption configures Decode and DecodeFrom.
type DecodeOption func(*opt)

// WithStrict rejects tags which are not declared by the message type.
// Without it, unknown tags are skipped and discarded.
func WithStrict(strict bool) DecodeOption {
	return func(o *opt) {
		o.wire.Strict = strict
	}
}

// WithMaxDepth limits the nesting depth of messages. See wire.DefaultMaxDepth.
func WithMaxDepth(n int) DecodeOption {
	return func(o *opt) {
		o.wire.MaxDepth = n
	}
}

// WithDelimited makes DecodeFrom read a single length-delimited message from a reader
// instead of reading it until EOF. It has no effect for raw bytes.
func WithDelimited() DecodeOption {
	return func(o *opt) {
		o.delimited = true
	}
}

func newOpt(opts []DecodeOption) *opt {
	var o opt
	for _, f := range opts {
		f(&o)
	}
	return &o
}

// Encode returns the binary encoding of m.
// There is no required-field enforcement, so Encode succeeds for any message built by this package.
func (m *Message) Encode() ([]byte, error) {
	b, err := wire.Marshal(m)
	if err != nil {
		return nil, newError("encode", ErrTypeMismatch, err)
	}
	return b, nil
}

// Decode parses b as an encoding of typ and returns a new message.
// An empty b results in a valid message which has no present fields.
// If b is malformed, Decode returns an error matching ErrMalformedEncoding and no message.
func Decode(typ *schema.MessageType, b []byte, opts ...DecodeOption) (*Message, error) {
	return decode(typ, b, newOpt(opts))
}

func decode(typ *schema.MessageType, b []byte, o *opt) (*Message, error) {
	m := New(typ)
	if err := wire.Unmarshal(b, typ, &builder{m: m}, o.wire); err != nil {
		logger.Printf("failed to decode %d bytes as %s: %s", len(b), typ.Name(), err)
		return nil, newError("decode "+typ.Name(), ErrMalformedEncoding, err)
	}
	return m, nil
}

// builder populates a message being decoded. Values produced by the wire codec
// are fresh, so they are stored without copying.
type builder struct {
	m *Message
}

func (b *builder) Set(fd *schema.FieldDescriptor, v interface{}) {
	b.m.values[fd.Name] = v
	b.m.presence.set(fd.Name)
}

func (b *builder) Append(fd *schema.FieldDescriptor, v interface{}) {
	l, _ := b.m.values[fd.Name].([]interface{})
	b.m.values[fd.Name] = append(l, v)
}

func (b *builder) Mutable(fd *schema.FieldDescriptor) wire.Builder {
	if fd.Kind != schema.KindRepeated {
		if cur, ok := b.m.values[fd.Name].(*Message); ok {
			return &builder{m: cur}
		}
	}
	sub := New(fd.Message)
	if fd.Kind == schema.KindRepeated {
		b.Append(fd, sub)
	} else {
		b.Set(fd, sub)
	}
	return &builder{m: sub}
}
