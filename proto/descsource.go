// Package proto loads message types from Protocol Buffers definitions.
//
// Compiling .proto files is delegated to protocompile. This package only walks
// the resulting descriptors and converts message descriptors into schema.MessageType.
package proto

import (
	"context"
	"sort"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/linker"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/reflect/protoreflect"
)

var (
	ErrSymbolNotFound = errors.New("proto: symbol not found")
	ErrNotMessage     = errors.New("proto: symbol is not a message")
)

// DescriptorSource provides descriptors of compiled proto files.
type DescriptorSource interface {
	// ListMessages returns the fully-qualified names of all top-level and nested messages
	// in ascending order. Map entry messages are not included.
	ListMessages() []string
	// FindSymbol returns the descriptor of the fully-qualified name.
	// FindSymbol returns ErrSymbolNotFound if name is not defined.
	FindSymbol(name string) (protoreflect.Descriptor, error)
}

type files struct {
	fds linker.Files
}

// NewDescriptorSourceFromFiles compiles fnames like protoc. Imports are resolved
// from importPaths and the well-known types bundled with protocompile.
func NewDescriptorSourceFromFiles(importPaths []string, fnames []string) (DescriptorSource, error) {
	if len(fnames) == 0 {
		return nil, errors.New("proto: no proto files are specified")
	}
	c := &protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: importPaths,
		}),
	}
	compiled, err := c.Compile(context.TODO(), fnames...)
	if err != nil {
		return nil, errors.Wrap(err, "proto: failed to compile proto files")
	}

	return &files{fds: compiled}, nil
}

func (f *files) ListMessages() []string {
	var names []string
	var walk func(msgs protoreflect.MessageDescriptors)
	walk = func(msgs protoreflect.MessageDescriptors) {
		for i := 0; i < msgs.Len(); i++ {
			md := msgs.Get(i)
			if md.IsMapEntry() {
				continue
			}
			names = append(names, string(md.FullName()))
			walk(md.Messages())
		}
	}
	for _, fd := range f.fds {
		walk(fd.Messages())
	}
	sort.Strings(names)
	return names
}

func (f *files) FindSymbol(name string) (protoreflect.Descriptor, error) {
	for _, fd := range f.fds {
		if d := fd.FindDescriptorByName(protoreflect.FullName(name)); d != nil {
			return d, nil
		}
	}

	return nil, errors.Wrapf(ErrSymbolNotFound, "symbol %s", name)
}
