// Package json provides a JSON presenter that formatting.
package json

import (
	gojson "encoding/json"

	"github.com/ktr0731/protomsg/message"
	"github.com/ktr0731/protomsg/present/table"
	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
)

// Presenter is a presenter that formats v into JSON string.
type Presenter struct {
	indent string
}

// Format formats the rows of v into JSON string. It uses the same rows as
// the table presenter, so a message is never converted to its own JSON representation.
func (p *Presenter) Format(v interface{}) (string, error) {
	switch t := v.(type) {
	case *message.Message:
		v = table.MessageRows(t)
	case *schema.MessageType:
		v = table.TypeRows(t)
	}
	var (
		b   []byte
		err error
	)
	if p.indent == "" {
		b, err = gojson.Marshal(v)
	} else {
		b, err = gojson.MarshalIndent(v, "", p.indent)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to format v into JSON string")
	}
	return string(b), nil
}

// NewPresenter returns a JSON presenter. If indent is not empty, Format indents the output.
func NewPresenter(indent string) *Presenter {
	return &Presenter{indent: indent}
}
