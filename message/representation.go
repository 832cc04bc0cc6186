package message

import "github.com/pkg/errors"

// Representer converts a message into a name-keyed representation such as a map or a JSON text.
//
// Such conversions need a canonical mapping for every value (bytes, 64-bit
// integers, enums, nested and repeated messages). This package leaves that to an
// optional layer built on top of it; its own Representer rejects every call with
// ErrNotSupported.
type Representer interface {
	ToHash(m *Message) (map[string]interface{}, error)
	ToJSON(m *Message) ([]byte, error)
}

type unsupportedRepresenter struct{}

func (unsupportedRepresenter) ToHash(m *Message) (map[string]interface{}, error) {
	return nil, newError("to_hash", ErrNotSupported, errors.Errorf("%s cannot be converted to a map", m.typ.Name()))
}

func (unsupportedRepresenter) ToJSON(m *Message) ([]byte, error) {
	return nil, newError("to_json", ErrNotSupported, errors.Errorf("%s cannot be converted to JSON", m.typ.Name()))
}

var representer Representer = unsupportedRepresenter{}

// ToHash always fails with ErrNotSupported. See Representer.
func (m *Message) ToHash() (map[string]interface{}, error) {
	return representer.ToHash(m)
}

// ToJSON always fails with ErrNotSupported. See Representer.
func (m *Message) ToJSON() ([]byte, error) {
	return representer.ToJSON(m)
}
