package wire

import (
	"math"

	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal returns the encoding of src.
func Marshal(src Source) ([]byte, error) {
	return AppendMessage(nil, src)
}

// AppendMessage appends the encoding of src to b.
// The result is deterministic: the same set of present values always produces the same bytes.
func AppendMessage(b []byte, src Source) ([]byte, error) {
	var err error
	src.Range(func(fd *schema.FieldDescriptor, v interface{}) bool {
		b, err = appendField(b, fd, v)
		return err == nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s", src.Type().Name())
	}
	return b, nil
}

func appendField(b []byte, fd *schema.FieldDescriptor, v interface{}) ([]byte, error) {
	switch fd.Kind {
	case schema.KindScalar:
		b = protowire.AppendTag(b, fd.Tag, fd.WireType())
		return appendScalar(b, fd, v)
	case schema.KindMessage:
		return appendNested(b, fd, v)
	case schema.KindRepeated:
		list, ok := v.([]interface{})
		if !ok {
			return nil, errors.Wrapf(ErrInvalidValue, "field '%s' must be a list, but got %T", fd.Name, v)
		}
		if fd.EncodesPacked() {
			return appendPacked(b, fd, list)
		}
		for _, e := range list {
			var err error
			if fd.IsMessage() {
				b, err = appendNested(b, fd, e)
			} else {
				b = protowire.AppendTag(b, fd.Tag, fd.WireType())
				b, err = appendScalar(b, fd, e)
			}
			if err != nil {
				return nil, err
			}
		}
		return b, nil
	}
	return nil, errors.Wrapf(ErrInvalidValue, "field '%s' has unknown kind %s", fd.Name, fd.Kind)
}

func appendNested(b []byte, fd *schema.FieldDescriptor, v interface{}) ([]byte, error) {
	src, ok := v.(Source)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidValue, "field '%s' must be a message, but got %T", fd.Name, v)
	}
	payload, err := AppendMessage(nil, src)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, fd.Tag, protowire.BytesType)
	return protowire.AppendBytes(b, payload), nil
}

func appendPacked(b []byte, fd *schema.FieldDescriptor, list []interface{}) ([]byte, error) {
	if len(list) == 0 {
		return b, nil
	}
	var payload []byte
	for _, e := range list {
		var err error
		payload, err = appendScalar(payload, fd, e)
		if err != nil {
			return nil, err
		}
	}
	b = protowire.AppendTag(b, fd.Tag, protowire.BytesType)
	return protowire.AppendBytes(b, payload), nil
}

func appendScalar(b []byte, fd *schema.FieldDescriptor, v interface{}) ([]byte, error) {
	if !fd.Type.Accepts(v) {
		return nil, errors.Wrapf(ErrInvalidValue, "field '%s' (%s) cannot hold %T", fd.Name, fd.Type, v)
	}
	switch fd.Type {
	case schema.TypeDouble:
		return protowire.AppendFixed64(b, math.Float64bits(v.(float64))), nil
	case schema.TypeFloat:
		return protowire.AppendFixed32(b, math.Float32bits(v.(float32))), nil
	case schema.TypeInt32, schema.TypeEnum:
		// Negative values are sign-extended to ten bytes.
		return protowire.AppendVarint(b, uint64(int64(v.(int32)))), nil
	case schema.TypeInt64:
		return protowire.AppendVarint(b, uint64(v.(int64))), nil
	case schema.TypeUint32:
		return protowire.AppendVarint(b, uint64(v.(uint32))), nil
	case schema.TypeUint64:
		return protowire.AppendVarint(b, v.(uint64)), nil
	case schema.TypeSint32:
		return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v.(int32)))), nil
	case schema.TypeSint64:
		return protowire.AppendVarint(b, protowire.EncodeZigZag(v.(int64))), nil
	case schema.TypeFixed32:
		return protowire.AppendFixed32(b, v.(uint32)), nil
	case schema.TypeSfixed32:
		return protowire.AppendFixed32(b, uint32(v.(int32))), nil
	case schema.TypeFixed64:
		return protowire.AppendFixed64(b, v.(uint64)), nil
	case schema.TypeSfixed64:
		return protowire.AppendFixed64(b, uint64(v.(int64))), nil
	case schema.TypeBool:
		return protowire.AppendVarint(b, protowire.EncodeBool(v.(bool))), nil
	case schema.TypeString:
		return protowire.AppendString(b, v.(string)), nil
	case schema.TypeBytes:
		return protowire.AppendBytes(b, v.([]byte)), nil
	}
	return nil, errors.Wrapf(ErrInvalidValue, "field '%s' has unsupported type %s", fd.Name, fd.Type)
}
