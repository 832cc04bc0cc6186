package fill

import (
	"strings"

	"github.com/ktr0731/protomsg/message"
	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
)

const pathDelimiter = "."

// Assign parses an assignment formed as name=value and sets it to m.
//
// The name may be a dot-separated path to reach into nested message fields,
// for example address.city=Tokyo. Assigning a repeated field appends the value,
// so nicknames=a nicknames=b results in [a b].
func Assign(m *message.Message, assignment string, opts Opts) error {
	i := strings.Index(assignment, "=")
	if i <= 0 {
		return errors.Wrapf(ErrInvalidAssignment, "'%s' must be formed as name=value", assignment)
	}
	path := strings.Split(assignment[:i], pathDelimiter)
	return assign(m, path, assignment[i+1:], opts)
}

func assign(m *message.Message, path []string, pv string, opts Opts) error {
	fd, err := m.Type().Field(path[0])
	if err != nil {
		return err
	}

	if fd.IsMessage() {
		if fd.Kind == schema.KindRepeated {
			return errors.Wrapf(ErrUnsupportedField, "repeated message field '%s' cannot be assigned", fd.Name)
		}
		if len(path) == 1 {
			return errors.Wrapf(ErrInvalidAssignment, "message field '%s' needs a nested field name", fd.Name)
		}
		v, err := m.Get(fd.Name)
		if err != nil {
			return err
		}
		nested, _ := v.(*message.Message)
		if nested == nil {
			nested = message.New(fd.Message)
		}
		if err := assign(nested, path[1:], pv, opts); err != nil {
			return errors.Wrapf(err, "failed to assign %s", fd.Name)
		}
		return m.Set(fd.Name, nested)
	}

	if len(path) != 1 {
		return errors.Wrapf(ErrInvalidAssignment, "scalar field '%s' has no nested fields", fd.Name)
	}
	v, err := convertValue(pv, fd.Type, opts)
	if err != nil {
		return err
	}
	if fd.Kind != schema.KindRepeated {
		return m.Set(fd.Name, v)
	}

	cur, err := m.Get(fd.Name)
	if err != nil {
		return err
	}
	return m.Set(fd.Name, append(cur.([]interface{}), v))
}
