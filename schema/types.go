package schema

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ScalarType is the type of a single field value.
type ScalarType int

const (
	TypeDouble ScalarType = iota + 1
	TypeFloat
	TypeInt32
	TypeInt64
	TypeUint32
	TypeUint64
	TypeSint32
	TypeSint64
	TypeFixed32
	TypeFixed64
	TypeSfixed32
	TypeSfixed64
	TypeBool
	TypeString
	TypeBytes
	TypeEnum
	TypeMessage
)

var scalarTypeNames = map[ScalarType]string{
	TypeDouble:   "double",
	TypeFloat:    "float",
	TypeInt32:    "int32",
	TypeInt64:    "int64",
	TypeUint32:   "uint32",
	TypeUint64:   "uint64",
	TypeSint32:   "sint32",
	TypeSint64:   "sint64",
	TypeFixed32:  "fixed32",
	TypeFixed64:  "fixed64",
	TypeSfixed32: "sfixed32",
	TypeSfixed64: "sfixed64",
	TypeBool:     "bool",
	TypeString:   "string",
	TypeBytes:    "bytes",
	TypeEnum:     "enum",
	TypeMessage:  "message",
}

// ParseScalarType returns the ScalarType named s, e.g. "int32".
func ParseScalarType(s string) (ScalarType, bool) {
	for t, name := range scalarTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

func (t ScalarType) String() string {
	if s, ok := scalarTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ScalarType(%d)", int(t))
}

// IsValid reports whether t is one of the declared types.
func (t ScalarType) IsValid() bool {
	_, ok := scalarTypeNames[t]
	return ok
}

// WireType returns the wire type a value of t is encoded with.
func (t ScalarType) WireType() protowire.Type {
	switch t {
	case TypeDouble, TypeFixed64, TypeSfixed64:
		return protowire.Fixed64Type
	case TypeFloat, TypeFixed32, TypeSfixed32:
		return protowire.Fixed32Type
	case TypeString, TypeBytes, TypeMessage:
		return protowire.BytesType
	default:
		return protowire.VarintType
	}
}

// Default returns the zero value of t in its Go representation.
// It returns nil for TypeMessage.
func (t ScalarType) Default() interface{} {
	switch t {
	case TypeDouble:
		return float64(0)
	case TypeFloat:
		return float32(0)
	case TypeInt32, TypeSint32, TypeSfixed32, TypeEnum:
		return int32(0)
	case TypeInt64, TypeSint64, TypeSfixed64:
		return int64(0)
	case TypeUint32, TypeFixed32:
		return uint32(0)
	case TypeUint64, TypeFixed64:
		return uint64(0)
	case TypeBool:
		return false
	case TypeString:
		return ""
	case TypeBytes:
		return []byte{}
	}
	return nil
}

// Accepts reports whether v is the Go representation of a non-message value of t.
//
//	double: float64, float: float32,
//	int32, sint32, sfixed32, enum: int32,
//	int64, sint64, sfixed64: int64,
//	uint32, fixed32: uint32, uint64, fixed64: uint64,
//	bool: bool, string: string, bytes: []byte
func (t ScalarType) Accepts(v interface{}) bool {
	switch v.(type) {
	case float64:
		return t == TypeDouble
	case float32:
		return t == TypeFloat
	case int32:
		return t == TypeInt32 || t == TypeSint32 || t == TypeSfixed32 || t == TypeEnum
	case int64:
		return t == TypeInt64 || t == TypeSint64 || t == TypeSfixed64
	case uint32:
		return t == TypeUint32 || t == TypeFixed32
	case uint64:
		return t == TypeUint64 || t == TypeFixed64
	case bool:
		return t == TypeBool
	case string:
		return t == TypeString
	case []byte:
		return t == TypeBytes
	}
	return false
}
