// Package meta holds the metadata of protomsg.
package meta

import version "github.com/hashicorp/go-version"

const AppName = "protomsg"

var (
	Version = version.Must(version.NewSemver("0.2.0"))
)
