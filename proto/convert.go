package proto

import (
	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"
)

var kinds = map[protoreflect.Kind]schema.ScalarType{
	protoreflect.DoubleKind:   schema.TypeDouble,
	protoreflect.FloatKind:    schema.TypeFloat,
	protoreflect.Int32Kind:    schema.TypeInt32,
	protoreflect.Int64Kind:    schema.TypeInt64,
	protoreflect.Uint32Kind:   schema.TypeUint32,
	protoreflect.Uint64Kind:   schema.TypeUint64,
	protoreflect.Sint32Kind:   schema.TypeSint32,
	protoreflect.Sint64Kind:   schema.TypeSint64,
	protoreflect.Fixed32Kind:  schema.TypeFixed32,
	protoreflect.Fixed64Kind:  schema.TypeFixed64,
	protoreflect.Sfixed32Kind: schema.TypeSfixed32,
	protoreflect.Sfixed64Kind: schema.TypeSfixed64,
	protoreflect.BoolKind:     schema.TypeBool,
	protoreflect.StringKind:   schema.TypeString,
	protoreflect.BytesKind:    schema.TypeBytes,
	protoreflect.EnumKind:     schema.TypeEnum,
	protoreflect.MessageKind:  schema.TypeMessage,
}

// LoadMessageType finds the message named name from ds and converts it.
func LoadMessageType(ds DescriptorSource, name string) (*schema.MessageType, error) {
	d, err := ds.FindSymbol(name)
	if err != nil {
		return nil, err
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, errors.Wrapf(ErrNotMessage, "%s is a %T", name, d)
	}
	return ConvertMessage(md)
}

// ConvertMessage converts md and all message types it refers to.
//
// Repeated and map fields become schema.KindRepeated; a map is a list of its
// entry messages, which is how maps are laid out on the wire. Fields declared
// with the optional keyword become optional. Repeated scalars keep the
// packedness of the descriptor, so proto2 fields are unpacked unless declared
// with [packed=true]. Groups are not supported.
func ConvertMessage(md protoreflect.MessageDescriptor) (*schema.MessageType, error) {
	c := &converter{types: make(map[protoreflect.FullName]*schema.MessageType)}
	return c.convert(md)
}

type converter struct {
	// Types being converted or already converted. Declared types are registered
	// before their fields so that recursive types refer to themselves.
	types map[protoreflect.FullName]*schema.MessageType
}

func (c *converter) convert(md protoreflect.MessageDescriptor) (*schema.MessageType, error) {
	if t, ok := c.types[md.FullName()]; ok {
		return t, nil
	}
	t := schema.Declare(string(md.FullName()))
	c.types[md.FullName()] = t

	fields := md.Fields()
	fds := make([]*schema.FieldDescriptor, 0, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		fd, err := c.convertField(fields.Get(i))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to convert %s", md.FullName())
		}
		fds = append(fds, fd)
	}
	if err := t.Define(fds...); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *converter) convertField(f protoreflect.FieldDescriptor) (*schema.FieldDescriptor, error) {
	typ, ok := kinds[f.Kind()]
	if !ok {
		return nil, errors.Errorf("field '%s' has unsupported kind %s", f.Name(), f.Kind())
	}

	fd := &schema.FieldDescriptor{
		Name:     string(f.Name()),
		Tag:      protowire.Number(f.Number()),
		Kind:     schema.KindScalar,
		Type:     typ,
		Optional: f.HasOptionalKeyword() && f.Cardinality() != protoreflect.Repeated,
		Unpacked: f.Cardinality() == protoreflect.Repeated && !f.IsPacked(),
	}
	if typ == schema.TypeMessage {
		msg, err := c.convert(f.Message())
		if err != nil {
			return nil, err
		}
		fd.Kind = schema.KindMessage
		fd.Message = msg
	}
	if f.Cardinality() == protoreflect.Repeated {
		fd.Kind = schema.KindRepeated
	}
	return fd, nil
}
