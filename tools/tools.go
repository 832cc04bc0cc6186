//go:build tools
// +build tools

// Package tools tracks the versions of the development tools used to release protomsg.
package tools

import (
	_ "github.com/Songmu/gocredits"
	_ "github.com/goreleaser/goreleaser"
	_ "github.com/kisielk/godepgraph"
	_ "github.com/ktr0731/bump"
)
