package wire_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ktr0731/protomsg/schema"
	"github.com/ktr0731/protomsg/wire"
	"google.golang.org/protobuf/encoding/protowire"
)

// testMessage is a minimal Source and Builder.
type testMessage struct {
	typ  *schema.MessageType
	vals map[string]interface{}
}

func newTestMessage(typ *schema.MessageType, vals map[string]interface{}) *testMessage {
	if vals == nil {
		vals = make(map[string]interface{})
	}
	return &testMessage{typ: typ, vals: vals}
}

func (m *testMessage) Type() *schema.MessageType { return m.typ }

func (m *testMessage) Range(f func(fd *schema.FieldDescriptor, v interface{}) bool) {
	for _, fd := range m.typ.Fields() {
		v, ok := m.vals[fd.Name]
		if !ok {
			continue
		}
		if !f(fd, v) {
			return
		}
	}
}

func (m *testMessage) Set(fd *schema.FieldDescriptor, v interface{}) { m.vals[fd.Name] = v }

func (m *testMessage) Append(fd *schema.FieldDescriptor, v interface{}) {
	l, _ := m.vals[fd.Name].([]interface{})
	m.vals[fd.Name] = append(l, v)
}

func (m *testMessage) Mutable(fd *schema.FieldDescriptor) wire.Builder {
	if fd.Kind != schema.KindRepeated {
		if cur, ok := m.vals[fd.Name].(*testMessage); ok {
			return cur
		}
	}
	sub := newTestMessage(fd.Message, nil)
	if fd.Kind == schema.KindRepeated {
		m.Append(fd, sub)
	} else {
		m.Set(fd, sub)
	}
	return sub
}

// plain converts nested test messages into maps for comparison.
func plain(v interface{}) interface{} {
	switch v := v.(type) {
	case *testMessage:
		out := make(map[string]interface{}, len(v.vals))
		for k, e := range v.vals {
			out[k] = plain(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

var (
	addressType = schema.MustNewMessageType("example.Address",
		&schema.FieldDescriptor{Name: "city", Tag: 1, Kind: schema.KindScalar, Type: schema.TypeString},
		&schema.FieldDescriptor{Name: "zip", Tag: 2, Kind: schema.KindScalar, Type: schema.TypeFixed32},
	)
	allType = schema.MustNewMessageType("example.All",
		&schema.FieldDescriptor{Name: "f_double", Tag: 1, Kind: schema.KindScalar, Type: schema.TypeDouble},
		&schema.FieldDescriptor{Name: "f_float", Tag: 2, Kind: schema.KindScalar, Type: schema.TypeFloat},
		&schema.FieldDescriptor{Name: "f_int32", Tag: 3, Kind: schema.KindScalar, Type: schema.TypeInt32},
		&schema.FieldDescriptor{Name: "f_int64", Tag: 4, Kind: schema.KindScalar, Type: schema.TypeInt64},
		&schema.FieldDescriptor{Name: "f_uint32", Tag: 5, Kind: schema.KindScalar, Type: schema.TypeUint32},
		&schema.FieldDescriptor{Name: "f_uint64", Tag: 6, Kind: schema.KindScalar, Type: schema.TypeUint64},
		&schema.FieldDescriptor{Name: "f_sint32", Tag: 7, Kind: schema.KindScalar, Type: schema.TypeSint32},
		&schema.FieldDescriptor{Name: "f_sint64", Tag: 8, Kind: schema.KindScalar, Type: schema.TypeSint64},
		&schema.FieldDescriptor{Name: "f_fixed32", Tag: 9, Kind: schema.KindScalar, Type: schema.TypeFixed32},
		&schema.FieldDescriptor{Name: "f_fixed64", Tag: 10, Kind: schema.KindScalar, Type: schema.TypeFixed64},
		&schema.FieldDescriptor{Name: "f_sfixed32", Tag: 11, Kind: schema.KindScalar, Type: schema.TypeSfixed32},
		&schema.FieldDescriptor{Name: "f_sfixed64", Tag: 12, Kind: schema.KindScalar, Type: schema.TypeSfixed64},
		&schema.FieldDescriptor{Name: "f_bool", Tag: 13, Kind: schema.KindScalar, Type: schema.TypeBool},
		&schema.FieldDescriptor{Name: "f_string", Tag: 14, Kind: schema.KindScalar, Type: schema.TypeString},
		&schema.FieldDescriptor{Name: "f_bytes", Tag: 15, Kind: schema.KindScalar, Type: schema.TypeBytes},
		&schema.FieldDescriptor{Name: "f_enum", Tag: 16, Kind: schema.KindScalar, Type: schema.TypeEnum},
		&schema.FieldDescriptor{Name: "address", Tag: 17, Kind: schema.KindMessage, Type: schema.TypeMessage, Message: addressType},
		&schema.FieldDescriptor{Name: "numbers", Tag: 18, Kind: schema.KindRepeated, Type: schema.TypeSint32},
		&schema.FieldDescriptor{Name: "names", Tag: 19, Kind: schema.KindRepeated, Type: schema.TypeString},
		&schema.FieldDescriptor{Name: "addresses", Tag: 20, Kind: schema.KindRepeated, Type: schema.TypeMessage, Message: addressType},
		&schema.FieldDescriptor{Name: "legacy_numbers", Tag: 21, Kind: schema.KindRepeated, Type: schema.TypeSint32, Unpacked: true},
	)
)

func TestMarshal(t *testing.T) {
	cases := map[string]struct {
		vals     map[string]interface{}
		expected []byte
	}{
		"empty": {
			expected: nil,
		},
		"string": {
			vals:     map[string]interface{}{"f_string": "A"},
			expected: []byte{0x72, 0x01, 'A'},
		},
		"zero value is written": {
			vals:     map[string]interface{}{"f_int32": int32(0)},
			expected: []byte{0x18, 0x00},
		},
		"negative int32 is sign-extended": {
			vals:     map[string]interface{}{"f_int32": int32(-1)},
			expected: []byte{0x18, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01},
		},
		"sint32 uses zigzag": {
			vals:     map[string]interface{}{"f_sint32": int32(-1)},
			expected: []byte{0x38, 0x01},
		},
		"fixed32": {
			vals:     map[string]interface{}{"f_fixed32": uint32(1)},
			expected: []byte{0x4d, 0x01, 0x00, 0x00, 0x00},
		},
		"ascending tag order": {
			vals: map[string]interface{}{
				"f_bool":  true,
				"f_int32": int32(1),
			},
			expected: []byte{0x18, 0x01, 0x68, 0x01},
		},
		"nested": {
			vals: map[string]interface{}{
				"address": newTestMessage(addressType, map[string]interface{}{"city": "x"}),
			},
			expected: []byte{0x8a, 0x01, 0x03, 0x0a, 0x01, 'x'},
		},
		"packed": {
			vals:     map[string]interface{}{"numbers": []interface{}{int32(1), int32(-1)}},
			expected: []byte{0x92, 0x01, 0x02, 0x02, 0x01},
		},
		"unpacked numbers": {
			vals:     map[string]interface{}{"legacy_numbers": []interface{}{int32(1), int32(-1)}},
			expected: []byte{0xa8, 0x01, 0x02, 0xa8, 0x01, 0x01},
		},
		"unpacked strings": {
			vals:     map[string]interface{}{"names": []interface{}{"a", "b"}},
			expected: []byte{0x9a, 0x01, 0x01, 'a', 0x9a, 0x01, 0x01, 'b'},
		},
	}

	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			b, err := wire.Marshal(newTestMessage(allType, c.vals))
			if err != nil {
				t.Fatalf("Marshal must not return an error, but got '%s'", err)
			}
			if diff := cmp.Diff(c.expected, b); diff != "" {
				t.Errorf("(-want, +got)\n%s", diff)
			}
		})
	}
}

func TestMarshal_InvalidValue(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"wrong scalar":   {"f_int32": "1"},
		"list expected":  {"names": "a"},
		"wrong element":  {"numbers": []interface{}{int64(1)}},
		"message needed": {"address": "x"},
	}
	for name, vals := range cases {
		vals := vals
		t.Run(name, func(t *testing.T) {
			_, err := wire.Marshal(newTestMessage(allType, vals))
			if !errors.Is(err, wire.ErrInvalidValue) {
				t.Errorf("expected ErrInvalidValue, but got '%v'", err)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	vals := map[string]interface{}{
		"f_double":   math.Pi,
		"f_float":    float32(-1.5),
		"f_int32":    int32(math.MinInt32),
		"f_int64":    int64(math.MinInt64),
		"f_uint32":   uint32(math.MaxUint32),
		"f_uint64":   uint64(math.MaxUint64),
		"f_sint32":   int32(math.MinInt32),
		"f_sint64":   int64(math.MaxInt64),
		"f_fixed32":  uint32(7),
		"f_fixed64":  uint64(8),
		"f_sfixed32": int32(-9),
		"f_sfixed64": int64(-10),
		"f_bool":     false,
		"f_string":   "",
		"f_bytes":    []byte{0, 1, 2},
		"f_enum":     int32(3),
		"address":    newTestMessage(addressType, map[string]interface{}{"city": "Tokyo", "zip": uint32(100)}),
		"numbers":    []interface{}{int32(0), int32(-2), int32(3)},
		"names":      []interface{}{"a", ""},
		"addresses": []interface{}{
			newTestMessage(addressType, map[string]interface{}{"city": "a"}),
			newTestMessage(addressType, nil),
		},
	}
	src := newTestMessage(allType, vals)
	b, err := wire.Marshal(src)
	if err != nil {
		t.Fatalf("Marshal must not return an error, but got '%s'", err)
	}

	dst := newTestMessage(allType, nil)
	if err := wire.Unmarshal(b, allType, dst, wire.UnmarshalOptions{}); err != nil {
		t.Fatalf("Unmarshal must not return an error, but got '%s'", err)
	}
	if diff := cmp.Diff(plain(src), plain(dst)); diff != "" {
		t.Errorf("(-want, +got)\n%s", diff)
	}

	t.Run("deterministic", func(t *testing.T) {
		b2, err := wire.Marshal(dst)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(b, b2); diff != "" {
			t.Errorf("(-want, +got)\n%s", diff)
		}
	})
}

func TestUnmarshal(t *testing.T) {
	tag := func(num protowire.Number, typ protowire.Type) []byte {
		return protowire.AppendTag(nil, num, typ)
	}
	concat := func(bs ...[]byte) []byte {
		var out []byte
		for _, b := range bs {
			out = append(out, b...)
		}
		return out
	}

	cases := map[string]struct {
		in       []byte
		strict   bool
		maxDepth int
		expected map[string]interface{}
		err      error
	}{
		"empty": {
			in:       []byte{},
			expected: map[string]interface{}{},
		},
		"unpacked repeated scalars are accepted": {
			in: concat(
				tag(18, protowire.VarintType), protowire.AppendVarint(nil, protowire.EncodeZigZag(-1)),
				tag(18, protowire.VarintType), protowire.AppendVarint(nil, protowire.EncodeZigZag(2)),
			),
			expected: map[string]interface{}{"numbers": []interface{}{int32(-1), int32(2)}},
		},
		"last scalar wins": {
			in:       concat(tag(3, protowire.VarintType), []byte{1}, tag(3, protowire.VarintType), []byte{2}),
			expected: map[string]interface{}{"f_int32": int32(2)},
		},
		"singular messages are merged": {
			in: concat(
				tag(17, protowire.BytesType), protowire.AppendBytes(nil, concat(tag(1, protowire.BytesType), protowire.AppendString(nil, "x"))),
				tag(17, protowire.BytesType), protowire.AppendBytes(nil, concat(tag(2, protowire.Fixed32Type), protowire.AppendFixed32(nil, 5))),
			),
			expected: map[string]interface{}{
				"address": map[string]interface{}{"city": "x", "zip": uint32(5)},
			},
		},
		"unknown tags are skipped": {
			in: concat(
				tag(100, protowire.BytesType), protowire.AppendString(nil, "unknown"),
				tag(14, protowire.BytesType), protowire.AppendString(nil, "known"),
			),
			expected: map[string]interface{}{"f_string": "known"},
		},
		"unknown tags are rejected in strict mode": {
			in:     concat(tag(100, protowire.VarintType), []byte{1}),
			strict: true,
			err:    wire.ErrUnknownTag,
		},
		"truncated tag": {
			in:  []byte{0x80},
			err: wire.ErrMalformed,
		},
		"zero field number": {
			in:  []byte{0x00, 0x00},
			err: wire.ErrMalformed,
		},
		"truncated length": {
			in:  concat(tag(14, protowire.BytesType), []byte{0x05, 'a'}),
			err: wire.ErrMalformed,
		},
		"truncated fixed64": {
			in:  concat(tag(1, protowire.Fixed64Type), []byte{0x00, 0x00}),
			err: wire.ErrMalformed,
		},
		"truncated unknown field": {
			in:  concat(tag(100, protowire.Fixed32Type), []byte{0x00}),
			err: wire.ErrMalformed,
		},
		"wire type mismatch": {
			in:  concat(tag(14, protowire.VarintType), []byte{1}),
			err: wire.ErrWireTypeMismatch,
		},
		"packed payload for a singular scalar": {
			in:  concat(tag(3, protowire.BytesType), protowire.AppendBytes(nil, []byte{1})),
			err: wire.ErrWireTypeMismatch,
		},
		"truncated packed element": {
			in:  concat(tag(18, protowire.BytesType), protowire.AppendBytes(nil, []byte{0x80})),
			err: wire.ErrMalformed,
		},
		"malformed nested message": {
			in:  concat(tag(17, protowire.BytesType), protowire.AppendBytes(nil, []byte{0x0a, 0x09})),
			err: wire.ErrMalformed,
		},
		"non-positive max depth falls back to the default": {
			in: concat(
				tag(17, protowire.BytesType), protowire.AppendBytes(nil, nil),
			),
			maxDepth: -1,
			expected: map[string]interface{}{"address": map[string]interface{}{}},
		},
	}

	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			dst := newTestMessage(allType, nil)
			err := wire.Unmarshal(c.in, allType, dst, wire.UnmarshalOptions{Strict: c.strict, MaxDepth: c.maxDepth})
			if c.err != nil {
				if !errors.Is(err, c.err) {
					t.Fatalf("expected '%s', but got '%v'", c.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal must not return an error, but got '%s'", err)
			}
			if diff := cmp.Diff(c.expected, plain(dst)); diff != "" {
				t.Errorf("(-want, +got)\n%s", diff)
			}
		})
	}
}

func TestUnmarshal_MaxDepth(t *testing.T) {
	node := schema.Declare("example.Node")
	if err := node.Define(
		&schema.FieldDescriptor{Name: "child", Tag: 1, Kind: schema.KindMessage, Type: schema.TypeMessage, Message: node},
	); err != nil {
		t.Fatal(err)
	}

	// Build a chain of 3 nested messages.
	var b []byte
	for i := 0; i < 3; i++ {
		b = protowire.AppendBytes(protowire.AppendTag(nil, 1, protowire.BytesType), b)
	}

	if err := wire.Unmarshal(b, node, newTestMessage(node, nil), wire.UnmarshalOptions{MaxDepth: 3}); err != nil {
		t.Errorf("depth 3 must be accepted, but got '%s'", err)
	}
	err := wire.Unmarshal(b, node, newTestMessage(node, nil), wire.UnmarshalOptions{MaxDepth: 2})
	if !errors.Is(err, wire.ErrDepthExceeded) {
		t.Errorf("expected ErrDepthExceeded, but got '%v'", err)
	}
}
