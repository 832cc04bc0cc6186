package message

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"

	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Capability classifies what an encode target or a decode source can do.
// It is resolved once at the call boundary; the codec never sees the original value.
type Capability int

const (
	CapabilityNone Capability = iota
	// CapabilityBuffer is a growable byte buffer: *[]byte or *bytes.Buffer.
	CapabilityBuffer
	// CapabilityWriteStream is an io.Writer.
	CapabilityWriteStream
	// CapabilityReadStream is an io.Reader.
	CapabilityReadStream
	// CapabilityRawBytes is a []byte or a string.
	CapabilityRawBytes
)

func (c Capability) String() string {
	switch c {
	case CapabilityNone:
		return "none"
	case CapabilityBuffer:
		return "buffer"
	case CapabilityWriteStream:
		return "write stream"
	case CapabilityReadStream:
		return "read stream"
	case CapabilityRawBytes:
		return "raw bytes"
	}
	return fmt.Sprintf("Capability(%d)", int(c))
}

// MaxDelimitedSize is the largest length prefix accepted by delimited decoding.
const MaxDelimitedSize = 64 << 20

// TargetCapability returns the capability of v as an encode target.
// Buffers take precedence over writers, so *bytes.Buffer is a buffer.
func TargetCapability(v interface{}) Capability {
	_, c := resolveTarget(v)
	return c
}

// SourceCapability returns the capability of v as a decode source.
// Raw bytes take precedence over readers.
func SourceCapability(v interface{}) Capability {
	switch s := v.(type) {
	case []byte, string:
		return CapabilityRawBytes
	case io.Reader:
		if isNil(s) {
			return CapabilityNone
		}
		return CapabilityReadStream
	}
	return CapabilityNone
}

// sink is an encode target resolved from a caller value.
type sink interface {
	write(b []byte) (interface{}, error)
}

type sliceSink struct{ p *[]byte }

func (s sliceSink) write(b []byte) (interface{}, error) {
	*s.p = append(*s.p, b...)
	return s.p, nil
}

type bufferSink struct{ buf *bytes.Buffer }

func (s bufferSink) write(b []byte) (interface{}, error) {
	s.buf.Write(b)
	return s.buf, nil
}

type writerSink struct{ w io.Writer }

func (s writerSink) write(b []byte) (interface{}, error) {
	n, err := s.w.Write(b)
	if err == nil && n != len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return nil, err
	}
	return s.w, nil
}

func resolveTarget(v interface{}) (sink, Capability) {
	switch t := v.(type) {
	case *[]byte:
		if t != nil {
			return sliceSink{t}, CapabilityBuffer
		}
	case *bytes.Buffer:
		if t != nil {
			return bufferSink{t}, CapabilityBuffer
		}
	case io.Writer:
		if !isNil(t) {
			return writerSink{t}, CapabilityWriteStream
		}
	}
	return nil, CapabilityNone
}

// isNil reports whether v is nil or holds a nil pointer.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// EncodeTo writes the encoding of m to target and returns the target for chaining.
//
//   - *[]byte, *bytes.Buffer: the encoding is appended and the buffer is returned.
//   - io.Writer: the encoding is written by a single Write and the writer is returned.
//     A failed or short write is reported as ErrSinkWriteFailed.
//
// Any other target results in ErrUnsupportedTarget. The target is resolved and
// the whole encoding is built before anything is written, so the target is
// never modified on ErrUnsupportedTarget.
func (m *Message) EncodeTo(target interface{}) (interface{}, error) {
	s, c := resolveTarget(target)
	if c == CapabilityNone {
		return nil, newError("encode", ErrUnsupportedTarget, errors.Errorf("%T is neither a buffer nor a writer", target))
	}
	b, err := m.Encode()
	if err != nil {
		return nil, err
	}
	return writeTo(s, b)
}

// EncodeDelimitedTo is like EncodeTo, but prefixes the encoding with its length as a varint.
// Messages written this way can be read one by one by DecodeDelimitedFrom.
func (m *Message) EncodeDelimitedTo(target interface{}) (interface{}, error) {
	s, c := resolveTarget(target)
	if c == CapabilityNone {
		return nil, newError("encode", ErrUnsupportedTarget, errors.Errorf("%T is neither a buffer nor a writer", target))
	}
	b, err := m.Encode()
	if err != nil {
		return nil, err
	}
	return writeTo(s, protowire.AppendBytes(nil, b))
}

func writeTo(s sink, b []byte) (interface{}, error) {
	v, err := s.write(b)
	if err != nil {
		return nil, newError("encode", ErrSinkWriteFailed, err)
	}
	return v, nil
}

// DecodeFrom reads an encoding of typ from source and returns a new message.
//
//   - []byte, string: parsed directly.
//   - io.Reader: read until EOF, or a single length-delimited message if WithDelimited is passed.
//     Read failures are reported as ErrSourceReadFailed. An empty reader yields
//     an empty message in both cases.
//
// Any other source results in ErrUnsupportedSource.
func DecodeFrom(typ *schema.MessageType, source interface{}, opts ...DecodeOption) (*Message, error) {
	o := newOpt(opts)
	switch SourceCapability(source) {
	case CapabilityRawBytes:
		switch s := source.(type) {
		case []byte:
			return decode(typ, s, o)
		case string:
			return decode(typ, []byte(s), o)
		}
	case CapabilityReadStream:
		r := source.(io.Reader)
		if o.delimited {
			m, err := decodeDelimited(typ, r, o)
			if err == io.EOF {
				return New(typ), nil
			}
			return m, err
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, newError("decode "+typ.Name(), ErrSourceReadFailed, err)
		}
		return decode(typ, b, o)
	}
	return nil, newError("decode "+typ.Name(), ErrUnsupportedSource, errors.Errorf("%T is neither raw bytes nor a reader", source))
}

// DecodeDelimitedFrom reads a single length-delimited message of typ from r.
// It returns io.EOF as it is if r is at EOF before the length prefix.
func DecodeDelimitedFrom(typ *schema.MessageType, r io.Reader, opts ...DecodeOption) (*Message, error) {
	return decodeDelimited(typ, r, newOpt(opts))
}

func decodeDelimited(typ *schema.MessageType, r io.Reader, o *opt) (*Message, error) {
	op := "decode " + typ.Name()
	size, err := readVarint(r)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	if size > MaxDelimitedSize {
		return nil, newError(op, ErrMalformedEncoding, errors.Errorf("length prefix %d exceeds %d", size, MaxDelimitedSize))
	}
	b := make([]byte, size)
	if _, err := io.ReadFull(r, b); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, newError(op, ErrMalformedEncoding, io.ErrUnexpectedEOF)
		}
		return nil, newError(op, ErrSourceReadFailed, err)
	}
	return decode(typ, b, o)
}

// readVarint reads a varint byte by byte so that no bytes after it are consumed from r.
func readVarint(r io.Reader) (uint64, error) {
	var (
		buf [binary.MaxVarintLen64]byte
		one [1]byte
	)
	for i := 0; i < len(buf); i++ {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			if err == io.EOF && i == 0 {
				return 0, io.EOF
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, newError("decode", ErrMalformedEncoding, io.ErrUnexpectedEOF)
			}
			return 0, newError("decode", ErrSourceReadFailed, err)
		}
		buf[i] = one[0]
		if one[0] < 0x80 {
			v, n := protowire.ConsumeVarint(buf[:i+1])
			if n < 0 {
				return 0, newError("decode", ErrMalformedEncoding, protowire.ParseError(n))
			}
			return v, nil
		}
	}
	return 0, newError("decode", ErrMalformedEncoding, errors.New("length prefix overflows 64 bits"))
}
