// Package message provides message instances of types described by the schema package.
//
// A Message holds field values together with a PresenceTable. A field is
// present if it was explicitly set, by NewWithValues, Set or a decode which
// populated it, regardless of whether its value equals the zero value of the
// field type. Repeated fields don't track explicit presence; they are regarded
// as present if they are non-empty.
//
// A Message is not safe for concurrent mutation. Concurrent reads, including
// Encode, are safe as long as nobody mutates the message.
package message

import (
	"bytes"

	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
)

// Message is an instance of a message type.
type Message struct {
	typ      *schema.MessageType
	values   map[string]interface{}
	presence PresenceTable
}

// New returns an empty message of typ. No fields are present.
func New(typ *schema.MessageType) *Message {
	return &Message{
		typ:      typ,
		values:   make(map[string]interface{}),
		presence: make(PresenceTable),
	}
}

// NewWithValues returns a message of typ with values set.
// Each entry is set as Set does, so every field in values becomes present.
func NewWithValues(typ *schema.MessageType, values map[string]interface{}) (*Message, error) {
	m := New(typ)
	for name, v := range values {
		if err := m.Set(name, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Message) clone() *Message {
	c := &Message{
		typ:      m.typ,
		values:   make(map[string]interface{}, len(m.values)),
		presence: m.presence.clone(),
	}
	for k, v := range m.values {
		c.values[k] = copyValue(v)
	}
	return c
}

// Type returns the type of m.
func (m *Message) Type() *schema.MessageType {
	return m.typ
}

// Has reports whether the field named name is present.
// Has returns ErrUnknownField if name is not declared by the type.
func (m *Message) Has(name string) (bool, error) {
	fd, err := m.typ.Field(name)
	if err != nil {
		return false, err
	}
	return m.has(fd), nil
}

func (m *Message) has(fd *schema.FieldDescriptor) bool {
	if fd.Kind == schema.KindRepeated {
		l, _ := m.values[fd.Name].([]interface{})
		return len(l) != 0
	}
	return m.presence.Present(fd.Name)
}

// RespondsToHasAndPresent reports whether the field named name is declared,
// supports explicit presence tracking and is present.
// Unlike Has, it returns false instead of an error for undeclared names.
// It is always false for repeated fields, whose presence means non-empty.
func (m *Message) RespondsToHasAndPresent(name string) bool {
	fd, err := m.typ.Field(name)
	if err != nil {
		return false
	}
	if !fd.SupportsPresence() {
		return false
	}
	return m.presence.Present(fd.Name)
}

// Get returns the value of the field named name.
// If the field is not present, the default value of the field is returned:
// the zero value for scalar fields, a nil *Message for message fields and
// an empty list for repeated fields.
//
// The returned value is a deep copy; changing it does not change m.
func (m *Message) Get(name string) (interface{}, error) {
	fd, err := m.typ.Field(name)
	if err != nil {
		return nil, err
	}
	v, ok := m.values[fd.Name]
	if !ok {
		return defaultValue(fd), nil
	}
	return copyValue(v), nil
}

func defaultValue(fd *schema.FieldDescriptor) interface{} {
	switch fd.Kind {
	case schema.KindRepeated:
		return []interface{}{}
	case schema.KindMessage:
		return (*Message)(nil)
	}
	return fd.Type.Default()
}

// Set sets v to the field named name and marks it present. Setting the zero
// value still marks the field present. Set may return these errors:
//
//   - ErrUnknownField: name is not declared by the type.
//   - ErrTypeMismatch: v is not a value of the field type. See schema.ScalarType.Accepts
//     for scalar representations. Message fields take a *Message of the field's
//     message type and repeated fields take a []interface{}.
//
// v is copied deeply: nested messages are cloned, so later changes to v are
// not reflected in m. Setting an empty list to a repeated field clears it.
func (m *Message) Set(name string, v interface{}) error {
	fd, err := m.typ.Field(name)
	if err != nil {
		return err
	}
	if err := checkValue(fd, v); err != nil {
		return err
	}

	if l, ok := v.([]interface{}); ok && len(l) == 0 {
		delete(m.values, fd.Name)
		return nil
	}
	m.values[fd.Name] = copyValue(v)
	if fd.SupportsPresence() {
		m.presence.set(fd.Name)
	}
	return nil
}

// Clear removes the value of the field named name. The field is no longer present.
func (m *Message) Clear(name string) error {
	fd, err := m.typ.Field(name)
	if err != nil {
		return err
	}
	delete(m.values, fd.Name)
	m.presence.clear(fd.Name)
	return nil
}

// Presence returns a copy of the presence table of m.
func (m *Message) Presence() PresenceTable {
	return m.presence.clone()
}

// PresentFields returns the names of the present fields in ascending tag order.
func (m *Message) PresentFields() []string {
	var names []string
	m.Range(func(fd *schema.FieldDescriptor, _ interface{}) bool {
		names = append(names, fd.Name)
		return true
	})
	return names
}

// Range calls f for each present field in ascending tag order until f returns false.
// Values passed to f must not be modified.
func (m *Message) Range(f func(fd *schema.FieldDescriptor, v interface{}) bool) {
	for _, fd := range m.typ.Fields() {
		if !m.has(fd) {
			continue
		}
		if !f(fd, m.values[fd.Name]) {
			return
		}
	}
}

// Equal reports whether m and other have the same type, the same present fields and equal values.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.typ != other.typ {
		return false
	}
	for _, fd := range m.typ.Fields() {
		if m.has(fd) != other.has(fd) {
			return false
		}
		if !m.has(fd) {
			continue
		}
		if !equalValue(m.values[fd.Name], other.values[fd.Name]) {
			return false
		}
	}
	return true
}

func equalValue(a, b interface{}) bool {
	switch av := a.(type) {
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case *Message:
		bv, ok := b.(*Message)
		return ok && av.Equal(bv)
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

func checkValue(fd *schema.FieldDescriptor, v interface{}) error {
	switch fd.Kind {
	case schema.KindRepeated:
		l, ok := v.([]interface{})
		if !ok {
			return errors.Wrapf(ErrTypeMismatch, "repeated field '%s' takes []interface{}, but got %T", fd.Name, v)
		}
		for i, e := range l {
			if err := checkElem(fd, e); err != nil {
				return errors.Wrapf(err, "element %d", i)
			}
		}
		return nil
	default:
		return checkElem(fd, v)
	}
}

func checkElem(fd *schema.FieldDescriptor, v interface{}) error {
	if fd.IsMessage() {
		msg, ok := v.(*Message)
		if !ok || msg == nil {
			return errors.Wrapf(ErrTypeMismatch, "field '%s' takes *Message, but got %T", fd.Name, v)
		}
		if msg.typ != fd.Message {
			return errors.Wrapf(ErrTypeMismatch, "field '%s' takes %s, but got %s", fd.Name, fd.Message.Name(), msg.typ.Name())
		}
		return nil
	}
	if !fd.Type.Accepts(v) {
		return errors.Wrapf(ErrTypeMismatch, "field '%s' (%s) cannot hold %T", fd.Name, fd.Type, v)
	}
	return nil
}

// copyValue returns a deep copy of v. Nested messages are cloned, so a message
// never shares mutable state with another one and can never contain itself.
func copyValue(v interface{}) interface{} {
	switch v := v.(type) {
	case []byte:
		return append([]byte{}, v...)
	case *Message:
		return v.clone()
	case []interface{}:
		l := make([]interface{}, len(v))
		for i, e := range v {
			l[i] = copyValue(e)
		}
		return l
	}
	return v
}
