// Package schema provides static descriptors of message types.
//
// A MessageType is built once, usually by a schema compiler such as the proto
// package, and shared by every message instance of that type. Nothing in this
// package mutates a descriptor after construction, so descriptors may be read
// from multiple goroutines.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	pkgerrors "github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrUnknownField is returned when a field name is not declared by a message type.
	ErrUnknownField = errors.New("unknown field")
	// ErrInvalidSchema is returned by NewMessageType if descriptors are inconsistent.
	ErrInvalidSchema = errors.New("invalid schema")
)

// Kind classifies how a field holds its value.
type Kind int

const (
	KindScalar Kind = iota
	KindMessage
	KindRepeated
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMessage:
		return "message"
	case KindRepeated:
		return "repeated"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FieldDescriptor describes a single field of a message type.
type FieldDescriptor struct {
	Name string
	Tag  protowire.Number
	Kind Kind
	// Type is the scalar type of the field. For repeated fields it is the element type.
	Type ScalarType
	// Optional reports whether the field was declared with explicit presence.
	Optional bool
	// Message is the type of a message field or of the elements of a repeated message field.
	Message *MessageType
	// Unpacked makes a packable repeated field written with a tag per element,
	// as proto2 does without [packed=true]. Both forms are accepted on decoding.
	Unpacked bool
}

// SupportsPresence reports whether the field tracks explicit presence.
// Repeated fields don't; they are regarded as present if they are non-empty.
func (f *FieldDescriptor) SupportsPresence() bool {
	return f.Kind != KindRepeated
}

// IsMessage reports whether values of the field (or its elements) are messages.
func (f *FieldDescriptor) IsMessage() bool {
	return f.Type == TypeMessage
}

// IsPackable reports whether the repeated field may use the packed encoding.
func (f *FieldDescriptor) IsPackable() bool {
	return f.Kind == KindRepeated && f.Type.WireType() != protowire.BytesType
}

// EncodesPacked reports whether the field is written with the packed encoding.
func (f *FieldDescriptor) EncodesPacked() bool {
	return f.IsPackable() && !f.Unpacked
}

// WireType returns the wire type used for a single value of the field.
func (f *FieldDescriptor) WireType() protowire.Type {
	return f.Type.WireType()
}

func (f *FieldDescriptor) String() string {
	return fmt.Sprintf("%s (%d, %s %s)", f.Name, f.Tag, f.Kind, f.Type)
}

// MessageType is an immutable set of field descriptors.
type MessageType struct {
	name   string
	fields []*FieldDescriptor
	byName map[string]*FieldDescriptor
	byTag  map[protowire.Number]*FieldDescriptor

	defined bool
}

// NewMessageType validates fields and returns a new message type.
// All of the problems found are reported at once, wrapped with ErrInvalidSchema.
func NewMessageType(name string, fields ...*FieldDescriptor) (*MessageType, error) {
	t := Declare(name)
	if err := t.Define(fields...); err != nil {
		return nil, err
	}
	return t, nil
}

// Declare returns a message type which has no fields yet.
// It is used to build self-referencing or mutually recursive types;
// the returned type must be completed by Define before any message uses it.
func Declare(name string) *MessageType {
	return &MessageType{name: name}
}

// Define sets the fields of a declared type. It can be called only once.
func (t *MessageType) Define(fields ...*FieldDescriptor) error {
	if t.defined {
		return pkgerrors.Wrapf(ErrInvalidSchema, "message type '%s' is already defined", t.name)
	}
	t.fields = make([]*FieldDescriptor, 0, len(fields))
	t.byName = make(map[string]*FieldDescriptor, len(fields))
	t.byTag = make(map[protowire.Number]*FieldDescriptor, len(fields))

	var result error
	for _, f := range fields {
		if err := t.add(f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		return pkgerrors.Wrapf(ErrInvalidSchema, "message type '%s': %s", t.name, result)
	}

	sort.Slice(t.fields, func(i, j int) bool {
		return t.fields[i].Tag < t.fields[j].Tag
	})
	t.defined = true
	return nil
}

// MustNewMessageType is like NewMessageType, but panics if the schema is invalid.
func MustNewMessageType(name string, fields ...*FieldDescriptor) *MessageType {
	t, err := NewMessageType(name, fields...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *MessageType) add(f *FieldDescriptor) error {
	if f == nil {
		return errors.New("nil field descriptor")
	}
	if f.Name == "" {
		return pkgerrors.Errorf("field with tag %d has no name", f.Tag)
	}
	if _, ok := t.byName[f.Name]; ok {
		return pkgerrors.Errorf("duplicated field name '%s'", f.Name)
	}
	if !f.Tag.IsValid() || (f.Tag >= protowire.FirstReservedNumber && f.Tag <= protowire.LastReservedNumber) {
		return pkgerrors.Errorf("field '%s' has invalid tag %d", f.Name, f.Tag)
	}
	if other, ok := t.byTag[f.Tag]; ok {
		return pkgerrors.Errorf("fields '%s' and '%s' share tag %d", other.Name, f.Name, f.Tag)
	}
	if !f.Type.IsValid() {
		return pkgerrors.Errorf("field '%s' has unknown type %d", f.Name, f.Type)
	}
	switch {
	case f.Kind == KindMessage && f.Type != TypeMessage:
		return pkgerrors.Errorf("message field '%s' must have type message, but got %s", f.Name, f.Type)
	case f.Kind == KindScalar && f.Type == TypeMessage:
		return pkgerrors.Errorf("scalar field '%s' must not have type message", f.Name)
	case f.Type == TypeMessage && f.Message == nil:
		return pkgerrors.Errorf("field '%s' has no message type", f.Name)
	case f.Kind == KindRepeated && f.Optional:
		return pkgerrors.Errorf("repeated field '%s' cannot be optional", f.Name)
	}

	t.fields = append(t.fields, f)
	t.byName[f.Name] = f
	t.byTag[f.Tag] = f
	return nil
}

// Name returns the (usually fully-qualified) name of the type.
func (t *MessageType) Name() string {
	return t.name
}

// Field returns the descriptor of the field named name.
// It returns ErrUnknownField if the type doesn't declare it.
func (t *MessageType) Field(name string) (*FieldDescriptor, error) {
	f, ok := t.byName[name]
	if !ok {
		return nil, pkgerrors.Wrapf(ErrUnknownField, "'%s' is not a field of %s", name, t.name)
	}
	return f, nil
}

// FieldByTag returns the descriptor which has tag.
func (t *MessageType) FieldByTag(tag protowire.Number) (*FieldDescriptor, bool) {
	f, ok := t.byTag[tag]
	return f, ok
}

// Fields returns all field descriptors ordered by ascending tag.
func (t *MessageType) Fields() []*FieldDescriptor {
	fields := make([]*FieldDescriptor, len(t.fields))
	copy(fields, t.fields)
	return fields
}

// Len returns the number of declared fields.
func (t *MessageType) Len() int {
	return len(t.fields)
}

func (t *MessageType) String() string {
	return t.name
}
