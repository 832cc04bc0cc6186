package fill

import (
	"encoding/base64"
	"os"
	"strconv"

	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
)

// convertValue converts a string input pv to the Go representation of typ.
// An empty input is converted to the default value of typ.
func convertValue(pv string, typ schema.ScalarType, opts Opts) (interface{}, error) {
	if pv == "" {
		if d := typ.Default(); d != nil {
			return d, nil
		}
	}

	var v interface{}
	var err error

	switch typ {
	case schema.TypeDouble:
		v, err = strconv.ParseFloat(pv, 64)

	case schema.TypeFloat:
		var f float64
		f, err = strconv.ParseFloat(pv, 32)
		v = float32(f)

	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		v, err = strconv.ParseInt(pv, 10, 64)

	case schema.TypeUint64, schema.TypeFixed64:
		v, err = strconv.ParseUint(pv, 10, 64)

	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32, schema.TypeEnum:
		var i int64
		i, err = strconv.ParseInt(pv, 10, 32)
		v = int32(i)

	case schema.TypeUint32, schema.TypeFixed32:
		var u uint64
		u, err = strconv.ParseUint(pv, 10, 32)
		v = uint32(u)

	case schema.TypeBool:
		v, err = strconv.ParseBool(pv)

	case schema.TypeString:
		v = pv

	// Use strconv.Unquote to interpret byte literals and Unicode literals.
	// For example, `\x6f\x67\x69\x73\x6f` is converted to "ogiso".
	case schema.TypeBytes:
		switch {
		case opts.BytesAsBase64:
			v, err = base64.StdEncoding.DecodeString(pv)
		case opts.BytesFromFile:
			v, err = os.ReadFile(pv)
		default:
			var s string
			s, err = strconv.Unquote(`"` + pv + `"`)
			v = []byte(s)
		}

	default:
		return nil, errors.Errorf("invalid type: %s", typ)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to convert an inputted value '%s' to type %s", pv, typ)
	}
	return v, nil
}
