package wire

import (
	"math"

	"github.com/ktr0731/protomsg/logger"
	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Unmarshal parses b as an encoding of typ and stores each field through dst.
// Unmarshal may return these errors:
//
//   - ErrMalformed: b is truncated or contains an invalid tag, varint or length.
//   - ErrWireTypeMismatch: a declared field is encoded with a wrong wire type.
//   - ErrUnknownTag: opts.Strict is true and b contains an undeclared tag.
//   - ErrDepthExceeded: nested messages are deeper than opts.MaxDepth.
//
// dst may hold a part of the values if Unmarshal fails.
// An empty b is a valid encoding of a message that has no present fields.
func Unmarshal(b []byte, typ *schema.MessageType, dst Builder, opts UnmarshalOptions) error {
	return opts.unmarshal(b, typ, dst, 0)
}

func (o UnmarshalOptions) unmarshal(b []byte, typ *schema.MessageType, dst Builder, depth int) error {
	if depth > o.maxDepth() {
		return errors.Wrapf(ErrDepthExceeded, "%s is nested more than %d levels", typ.Name(), o.maxDepth())
	}
	for len(b) > 0 {
		num, wtyp, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(n, "tag of %s", typ.Name())
		}
		b = b[n:]

		fd, ok := typ.FieldByTag(num)
		if !ok {
			if o.Strict {
				return errors.Wrapf(ErrUnknownTag, "tag %d is not declared by %s", num, typ.Name())
			}
			n = protowire.ConsumeFieldValue(num, wtyp, b)
			if n < 0 {
				return malformed(n, "unknown field %d of %s", num, typ.Name())
			}
			logger.Printf("skip unknown tag %d (wire type %d) of %s", num, wtyp, typ.Name())
			b = b[n:]
			continue
		}

		n, err := o.unmarshalField(b, fd, wtyp, dst, depth)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func (o UnmarshalOptions) unmarshalField(
	b []byte,
	fd *schema.FieldDescriptor,
	wtyp protowire.Type,
	dst Builder,
	depth int,
) (int, error) {
	if fd.IsPackable() && wtyp == protowire.BytesType {
		return unmarshalPacked(b, fd, dst)
	}
	if wtyp != fd.WireType() {
		return 0, errors.Wrapf(ErrWireTypeMismatch, "field '%s' expects wire type %d, but got %d", fd.Name, fd.WireType(), wtyp)
	}

	if fd.IsMessage() {
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, malformed(n, "field '%s'", fd.Name)
		}
		if err := o.unmarshal(v, fd.Message, dst.Mutable(fd), depth+1); err != nil {
			return 0, err
		}
		return n, nil
	}

	v, n, err := consumeScalar(b, fd)
	if err != nil {
		return 0, err
	}
	if fd.Kind == schema.KindRepeated {
		dst.Append(fd, v)
	} else {
		dst.Set(fd, v)
	}
	return n, nil
}

func unmarshalPacked(b []byte, fd *schema.FieldDescriptor, dst Builder) (int, error) {
	payload, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, malformed(n, "packed field '%s'", fd.Name)
	}
	for len(payload) > 0 {
		v, m, err := consumeScalar(payload, fd)
		if err != nil {
			return 0, err
		}
		dst.Append(fd, v)
		payload = payload[m:]
	}
	return n, nil
}

func consumeScalar(b []byte, fd *schema.FieldDescriptor) (interface{}, int, error) {
	switch fd.WireType() {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, 0, malformed(n, "field '%s'", fd.Name)
		}
		return fromVarint(fd.Type, v), n, nil
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, 0, malformed(n, "field '%s'", fd.Name)
		}
		switch fd.Type {
		case schema.TypeFloat:
			return math.Float32frombits(v), n, nil
		case schema.TypeSfixed32:
			return int32(v), n, nil
		}
		return v, n, nil
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, 0, malformed(n, "field '%s'", fd.Name)
		}
		switch fd.Type {
		case schema.TypeDouble:
			return math.Float64frombits(v), n, nil
		case schema.TypeSfixed64:
			return int64(v), n, nil
		}
		return v, n, nil
	case protowire.BytesType:
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, 0, malformed(n, "field '%s'", fd.Name)
		}
		if fd.Type == schema.TypeString {
			return string(v), n, nil
		}
		// v aliases the input.
		return append([]byte{}, v...), n, nil
	}
	return nil, 0, errors.Wrapf(ErrWireTypeMismatch, "field '%s' has unsupported type %s", fd.Name, fd.Type)
}

func fromVarint(t schema.ScalarType, v uint64) interface{} {
	switch t {
	case schema.TypeInt32, schema.TypeEnum:
		return int32(v)
	case schema.TypeInt64:
		return int64(v)
	case schema.TypeUint32:
		return uint32(v)
	case schema.TypeSint32:
		return int32(protowire.DecodeZigZag(v & math.MaxUint32))
	case schema.TypeSint64:
		return protowire.DecodeZigZag(v)
	case schema.TypeBool:
		return protowire.DecodeBool(v)
	}
	return v
}

func malformed(n int, format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, "%s: %s", errors.Errorf(format, args...), protowire.ParseError(n))
}
