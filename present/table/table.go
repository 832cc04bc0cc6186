// Package table provides a table like formatting.
package table

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/ktr0731/protomsg/message"
	"github.com/ktr0731/protomsg/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

type Presenter struct{}

type fieldRow struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type descriptorRow struct {
	Tag      int32  `json:"tag"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
}

// MessageRows returns rows of the present fields of m. Nested messages are
// flattened into dot-separated paths and repeated elements are suffixed with
// their index.
func MessageRows(m *message.Message) interface{} {
	return struct{ Fields []fieldRow }{Fields: messageRows("", m)}
}

// TypeRows returns rows of the fields declared by t.
func TypeRows(t *schema.MessageType) interface{} {
	rows := make([]descriptorRow, 0, t.Len())
	for _, f := range t.Fields() {
		typ := f.Type.String()
		if f.Message != nil {
			typ = f.Message.Name()
		}
		rows = append(rows, descriptorRow{
			Tag:      int32(f.Tag),
			Name:     f.Name,
			Kind:     f.Kind.String(),
			Type:     typ,
			Optional: f.Optional,
		})
	}
	return struct{ Fields []descriptorRow }{Fields: rows}
}

func messageRows(prefix string, m *message.Message) []fieldRow {
	var rows []fieldRow
	m.Range(func(fd *schema.FieldDescriptor, v interface{}) bool {
		name := prefix + fd.Name
		if l, ok := v.([]interface{}); ok {
			for i, e := range l {
				rows = append(rows, valueRows(fmt.Sprintf("%s[%d]", name, i), fd, e)...)
			}
			return true
		}
		rows = append(rows, valueRows(name, fd, v)...)
		return true
	})
	return rows
}

func valueRows(name string, fd *schema.FieldDescriptor, v interface{}) []fieldRow {
	if nested, ok := v.(*message.Message); ok {
		rows := messageRows(name+".", nested)
		if len(rows) == 0 {
			return []fieldRow{{Field: name, Type: fd.Message.Name(), Value: "{}"}}
		}
		return rows
	}
	return []fieldRow{{Field: name, Type: fd.Type.String(), Value: formatValue(v)}}
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case []byte:
		return strconv.Quote(string(v))
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprint(v)
}

func indirect(rv reflect.Value) reflect.Value {
	if rv.Type().Kind() != reflect.Ptr {
		return rv
	}
	return indirect(reflect.Indirect(rv))
}

// Format formats v as a table. v is a *message.Message, a *schema.MessageType or
// a struct that has a slice of structs. The field names of the struct become the header.
func (p *Presenter) Format(v interface{}) (string, error) {
	switch v := v.(type) {
	case *message.Message:
		return p.Format(MessageRows(v))
	case *schema.MessageType:
		return p.Format(TypeRows(v))
	case nil:
		return "", errors.New("v should not be nil")
	}

	rv := indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return "", errors.New("v should be a struct type")
	}
	slice, ok := findSlice(rv)
	if !ok {
		return "", errors.New("the struct should have a slice field")
	}
	et := slice.Type().Elem()
	for et.Kind() == reflect.Ptr {
		et = et.Elem()
	}
	if et.Kind() != reflect.Struct {
		return "", errors.New("v should have a slice of a struct")
	}

	var w bytes.Buffer
	table := tablewriter.NewWriter(&w)
	table.SetHeader(processStructKeys(et))
	table.SetAutoWrapText(false)
	for i := 0; i < slice.Len(); i++ {
		table.Append(processStructValues(indirect(slice.Index(i))))
	}
	table.Render()
	return w.String(), nil
}

func findSlice(rv reflect.Value) (reflect.Value, bool) {
	for i := 0; i < rv.NumField(); i++ {
		sf := rv.Field(i)
		if sf.Kind() == reflect.Slice {
			return sf, true
		}
	}
	return rv, false
}

func processStructKeys(rt reflect.Type) []string {
	keys := make([]string, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		key := sf.Tag.Get("table")
		if key == "-" {
			continue
		}
		if key == "" {
			key = strings.ToLower(sf.Name)
		}
		keys = append(keys, key)
	}
	return keys
}

func processStructValues(rv reflect.Value) []string {
	rt := rv.Type()
	row := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		if rt.Field(i).Tag.Get("table") == "-" {
			continue
		}
		row = append(row, fmt.Sprint(rv.Field(i).Interface()))
	}
	return row
}

func NewPresenter() *Presenter {
	return &Presenter{}
}
