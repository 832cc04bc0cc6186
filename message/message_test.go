package message_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ktr0731/protomsg/message"
	"github.com/ktr0731/protomsg/schema"
)

var (
	addressType = schema.MustNewMessageType("example.Address",
		&schema.FieldDescriptor{Name: "city", Tag: 1, Kind: schema.KindScalar, Type: schema.TypeString},
	)
	userType = schema.MustNewMessageType("example.User",
		&schema.FieldDescriptor{Name: "first_name", Tag: 1, Kind: schema.KindScalar, Type: schema.TypeString},
		&schema.FieldDescriptor{Name: "last_name", Tag: 2, Kind: schema.KindScalar, Type: schema.TypeString, Optional: true},
		&schema.FieldDescriptor{Name: "age", Tag: 3, Kind: schema.KindScalar, Type: schema.TypeUint32},
		&schema.FieldDescriptor{Name: "address", Tag: 4, Kind: schema.KindMessage, Type: schema.TypeMessage, Message: addressType},
		&schema.FieldDescriptor{Name: "nicknames", Tag: 5, Kind: schema.KindRepeated, Type: schema.TypeString},
		&schema.FieldDescriptor{Name: "avatar", Tag: 6, Kind: schema.KindScalar, Type: schema.TypeBytes},
	)
)

func mustHas(t *testing.T, m *message.Message, name string) bool {
	t.Helper()
	ok, err := m.Has(name)
	if err != nil {
		t.Fatalf("Has must not return an error, but got '%s'", err)
	}
	return ok
}

func TestMessage_Has(t *testing.T) {
	t.Run("a new message has no present fields", func(t *testing.T) {
		m := message.New(userType)
		for _, f := range userType.Fields() {
			if mustHas(t, m, f.Name) {
				t.Errorf("%s must not be present", f.Name)
			}
		}
		if n := len(m.PresentFields()); n != 0 {
			t.Errorf("expected no present fields, but got %d", n)
		}
	})

	t.Run("setting a value makes the field present", func(t *testing.T) {
		m := message.New(userType)
		if err := m.Set("first_name", "A"); err != nil {
			t.Fatal(err)
		}
		if !mustHas(t, m, "first_name") {
			t.Errorf("first_name must be present")
		}
		if mustHas(t, m, "last_name") {
			t.Errorf("last_name must not be present")
		}
	})

	t.Run("a field set to its zero value is present", func(t *testing.T) {
		m := message.New(userType)
		if err := m.Set("age", uint32(0)); err != nil {
			t.Fatal(err)
		}
		if err := m.Set("first_name", ""); err != nil {
			t.Fatal(err)
		}
		if !mustHas(t, m, "age") || !mustHas(t, m, "first_name") {
			t.Errorf("fields set to zero values must be present")
		}
	})

	t.Run("constructor values are present", func(t *testing.T) {
		m, err := message.NewWithValues(userType, map[string]interface{}{"age": uint32(0)})
		if err != nil {
			t.Fatal(err)
		}
		if !mustHas(t, m, "age") {
			t.Errorf("age must be present")
		}
	})

	t.Run("repeated fields are present if non-empty", func(t *testing.T) {
		m := message.New(userType)
		if err := m.Set("nicknames", []interface{}{}); err != nil {
			t.Fatal(err)
		}
		if mustHas(t, m, "nicknames") {
			t.Errorf("an empty repeated field must not be present")
		}
		if err := m.Set("nicknames", []interface{}{"a"}); err != nil {
			t.Fatal(err)
		}
		if !mustHas(t, m, "nicknames") {
			t.Errorf("a non-empty repeated field must be present")
		}
	})

	t.Run("clear", func(t *testing.T) {
		m := message.New(userType)
		if err := m.Set("age", uint32(3)); err != nil {
			t.Fatal(err)
		}
		if err := m.Clear("age"); err != nil {
			t.Fatal(err)
		}
		if mustHas(t, m, "age") {
			t.Errorf("age must not be present after Clear")
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		m := message.New(userType)
		if _, err := m.Has("email"); !errors.Is(err, message.ErrUnknownField) {
			t.Errorf("expected ErrUnknownField, but got '%v'", err)
		}
	})
}

func TestMessage_RespondsToHasAndPresent(t *testing.T) {
	m := message.New(userType)
	for _, kv := range []struct {
		name string
		v    interface{}
	}{
		{"last_name", "B"},
		{"nicknames", []interface{}{"b"}},
		{"address", message.New(addressType)},
	} {
		if err := m.Set(kv.name, kv.v); err != nil {
			t.Fatal(err)
		}
	}

	cases := map[string]struct {
		name     string
		expected bool
	}{
		"present optional":  {name: "last_name", expected: true},
		"absent scalar":     {name: "first_name"},
		"present message":   {name: "address", expected: true},
		"repeated is never": {name: "nicknames"},
		"unknown field":     {name: "email"},
	}
	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			if got := m.RespondsToHasAndPresent(c.name); got != c.expected {
				t.Errorf("expected %t, but got %t", c.expected, got)
			}
		})
	}
}

func TestMessage_SetGet(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		m := message.New(userType)
		cases := map[string]interface{}{
			"first_name": "",
			"age":        uint32(0),
			"address":    (*message.Message)(nil),
			"nicknames":  []interface{}{},
			"avatar":     []byte{},
		}
		for name, expected := range cases {
			v, err := m.Get(name)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(expected, v); diff != "" {
				t.Errorf("%s: (-want, +got)\n%s", name, diff)
			}
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		cases := map[string]struct {
			name string
			v    interface{}
		}{
			"int for uint32":       {"age", 3},
			"string list":          {"nicknames", []string{"a"}},
			"wrong element":        {"nicknames", []interface{}{1}},
			"wrong message type":   {"address", message.New(userType)},
			"nil message":          {"address", (*message.Message)(nil)},
			"nil value":            {"first_name", nil},
			"string for bytes":     {"avatar", "a"},
			"message for a scalar": {"first_name", message.New(addressType)},
		}
		for name, c := range cases {
			c := c
			t.Run(name, func(t *testing.T) {
				m := message.New(userType)
				if err := m.Set(c.name, c.v); !errors.Is(err, message.ErrTypeMismatch) {
					t.Errorf("expected ErrTypeMismatch, but got '%v'", err)
				}
				if mustHas(t, m, c.name) {
					t.Errorf("a failed Set must not make the field present")
				}
			})
		}
	})

	t.Run("values are copied", func(t *testing.T) {
		m := message.New(userType)
		avatar := []byte{1, 2}
		names := []interface{}{"a"}
		if err := m.Set("avatar", avatar); err != nil {
			t.Fatal(err)
		}
		if err := m.Set("nicknames", names); err != nil {
			t.Fatal(err)
		}
		avatar[0] = 9
		names[0] = "z"

		v, _ := m.Get("avatar")
		if diff := cmp.Diff([]byte{1, 2}, v); diff != "" {
			t.Errorf("(-want, +got)\n%s", diff)
		}
		v, _ = m.Get("nicknames")
		if diff := cmp.Diff([]interface{}{"a"}, v); diff != "" {
			t.Errorf("(-want, +got)\n%s", diff)
		}
	})

	t.Run("nested messages are copied", func(t *testing.T) {
		addr, err := message.NewWithValues(addressType, map[string]interface{}{"city": "Tokyo"})
		if err != nil {
			t.Fatal(err)
		}
		m := message.New(userType)
		if err := m.Set("address", addr); err != nil {
			t.Fatal(err)
		}
		before, err := m.Encode()
		if err != nil {
			t.Fatal(err)
		}
		if err := addr.Set("city", "Osaka"); err != nil {
			t.Fatal(err)
		}
		after, err := m.Encode()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(before, after); diff != "" {
			t.Errorf("changing the passed message must not change m: (-want, +got)\n%s", diff)
		}

		v, _ := m.Get("address")
		if err := v.(*message.Message).Set("city", "Kyoto"); err != nil {
			t.Fatal(err)
		}
		v, _ = m.Get("address")
		if city, _ := v.(*message.Message).Get("city"); city != "Tokyo" {
			t.Errorf("changing the returned message must not change m, but city is %v", city)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		m := message.New(userType)
		if err := m.Set("email", "a"); !errors.Is(err, message.ErrUnknownField) {
			t.Errorf("Set: expected ErrUnknownField, but got '%v'", err)
		}
		if _, err := m.Get("email"); !errors.Is(err, message.ErrUnknownField) {
			t.Errorf("Get: expected ErrUnknownField, but got '%v'", err)
		}
		if err := m.Clear("email"); !errors.Is(err, message.ErrUnknownField) {
			t.Errorf("Clear: expected ErrUnknownField, but got '%v'", err)
		}
		if _, err := message.NewWithValues(userType, map[string]interface{}{"email": "a"}); !errors.Is(err, message.ErrUnknownField) {
			t.Errorf("NewWithValues: expected ErrUnknownField, but got '%v'", err)
		}
	})
}

func TestMessage_SetSelf(t *testing.T) {
	node := schema.Declare("example.Node")
	if err := node.Define(
		&schema.FieldDescriptor{Name: "name", Tag: 1, Kind: schema.KindScalar, Type: schema.TypeString},
		&schema.FieldDescriptor{Name: "child", Tag: 2, Kind: schema.KindMessage, Type: schema.TypeMessage, Message: node},
		&schema.FieldDescriptor{Name: "children", Tag: 3, Kind: schema.KindRepeated, Type: schema.TypeMessage, Message: node},
	); err != nil {
		t.Fatal(err)
	}

	m, err := message.NewWithValues(node, map[string]interface{}{"name": "root"})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Set("child", m); err != nil {
		t.Fatalf("Set must not return an error, but got '%s'", err)
	}
	if err := m.Set("children", []interface{}{m, m}); err != nil {
		t.Fatalf("Set must not return an error, but got '%s'", err)
	}

	b, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode must not return an error, but got '%s'", err)
	}
	decoded, err := message.Decode(node, b)
	if err != nil {
		t.Fatal(err)
	}
	if !decoded.Equal(m) {
		t.Errorf("the decoded message must equal m")
	}

	v, _ := m.Get("child")
	child := v.(*message.Message)
	if child == m {
		t.Fatalf("the child must be a copy")
	}
	if diff := cmp.Diff([]string{"name"}, child.PresentFields()); diff != "" {
		t.Errorf("the child must be a snapshot taken before Set: (-want, +got)\n%s", diff)
	}
	v, _ = m.Get("children")
	for i, e := range v.([]interface{}) {
		if diff := cmp.Diff([]string{"name", "child"}, e.(*message.Message).PresentFields()); diff != "" {
			t.Errorf("children[%d]: (-want, +got)\n%s", i, diff)
		}
	}
}

func TestMessage_PresentFields(t *testing.T) {
	m, err := message.NewWithValues(userType, map[string]interface{}{
		"avatar":     []byte{},
		"first_name": "A",
		"age":        uint32(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"first_name", "age", "avatar"}, m.PresentFields()); diff != "" {
		t.Errorf("(-want, +got)\n%s", diff)
	}
	if diff := cmp.Diff(message.PresenceTable{"first_name": true, "age": true, "avatar": true}, m.Presence()); diff != "" {
		t.Errorf("(-want, +got)\n%s", diff)
	}
}

func TestMessage_Equal(t *testing.T) {
	newUser := func(vals map[string]interface{}) *message.Message {
		m, err := message.NewWithValues(userType, vals)
		if err != nil {
			t.Fatal(err)
		}
		return m
	}
	city := func(s string) *message.Message {
		m, err := message.NewWithValues(addressType, map[string]interface{}{"city": s})
		if err != nil {
			t.Fatal(err)
		}
		return m
	}

	cases := map[string]struct {
		a, b     *message.Message
		expected bool
	}{
		"both empty": {
			a: message.New(userType), b: message.New(userType), expected: true,
		},
		"presence differs even if values equal defaults": {
			a: newUser(map[string]interface{}{"age": uint32(0)}), b: message.New(userType),
		},
		"same values": {
			a:        newUser(map[string]interface{}{"avatar": []byte{1}, "address": city("x"), "nicknames": []interface{}{"a"}}),
			b:        newUser(map[string]interface{}{"avatar": []byte{1}, "address": city("x"), "nicknames": []interface{}{"a"}}),
			expected: true,
		},
		"nested differs": {
			a: newUser(map[string]interface{}{"address": city("x")}),
			b: newUser(map[string]interface{}{"address": city("y")}),
		},
		"different types": {
			a: message.New(userType), b: message.New(addressType),
		},
		"nil": {
			a: message.New(userType), b: nil,
		},
	}
	for name, c := range cases {
		c := c
		t.Run(name, func(t *testing.T) {
			if got := c.a.Equal(c.b); got != c.expected {
				t.Errorf("expected %t, but got %t", c.expected, got)
			}
		})
	}
}

func TestMessage_Representations(t *testing.T) {
	m, err := message.NewWithValues(userType, map[string]interface{}{"first_name": "A"})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range []*message.Message{message.New(userType), m} {
		h, err := m.ToHash()
		if !errors.Is(err, message.ErrNotSupported) {
			t.Errorf("ToHash: expected ErrNotSupported, but got '%v'", err)
		}
		if h != nil {
			t.Errorf("ToHash must not return a value, but got %v", h)
		}
		j, err := m.ToJSON()
		if !errors.Is(err, message.ErrNotSupported) {
			t.Errorf("ToJSON: expected ErrNotSupported, but got '%v'", err)
		}
		if j != nil {
			t.Errorf("ToJSON must not return a value, but got %s", j)
		}
	}
}
