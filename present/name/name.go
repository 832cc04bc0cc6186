// Package name provides a presenter that formats v into the list of names.
package name

import (
	"strings"

	"github.com/ktr0731/protomsg/message"
	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
)

// Presenter is a presenter that formats v into the list of names.
type Presenter struct{}

// Format formats v into the list of names, one per line. v should be a
// *message.Message (its present fields), a *schema.MessageType (its declared
// fields) or a []string.
func (p *Presenter) Format(v interface{}) (string, error) {
	switch v := v.(type) {
	case *message.Message:
		if v == nil {
			return "", errors.New("message should not be nil")
		}
		return strings.Join(v.PresentFields(), "\n"), nil
	case *schema.MessageType:
		if v == nil {
			return "", errors.New("message type should not be nil")
		}
		names := make([]string, 0, v.Len())
		for _, f := range v.Fields() {
			names = append(names, f.Name)
		}
		return strings.Join(names, "\n"), nil
	case []string:
		return strings.Join(v, "\n"), nil
	case nil:
		return "", errors.New("v should not be nil")
	}
	return "", errors.Errorf("unsupported type %T", v)
}

func NewPresenter() *Presenter {
	return &Presenter{}
}
