package app

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// flags defines available command line flags.
type flags struct {
	common struct {
		path    []string
		proto   []string
		message string
		format  string
	}

	codec struct {
		strict    bool
		delimited bool
		maxDepth  int
	}

	fill struct {
		file          string
		base64        bool
		bytesFromFile bool
	}

	encode struct {
		output string
	}

	meta struct {
		verbose bool
		version bool
		help    bool
	}
}

// validate defines invalid conditions and validates whether f has invalid conditions.
func (f *flags) validate() error {
	var result error
	invalidCases := []struct {
		name string
		cond bool
	}{
		{"cannot specify both of --base64 and --bytes-from-file", f.fill.base64 && f.fill.bytesFromFile},
		{"--max-depth must not be negative", f.codec.maxDepth < 0},
	}
	for _, c := range invalidCases {
		if c.cond {
			result = multierror.Append(result, errors.New(c.name))
		}
	}
	return result
}
