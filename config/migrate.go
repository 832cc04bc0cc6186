package config

import (
	version "github.com/hashicorp/go-version"
	"github.com/ktr0731/protomsg/logger"
	"github.com/spf13/viper"
)

var migrationScripts = map[string]func(string, *viper.Viper) string{
	"0.1.0": migrate010To020,
}

// migrate migrates an old config schema to the latest one.
// migrate accepts an old version and its config. Migration
// flow is as follows:
//
//  1. check whether a migration script which migrates the
//     current version to another version. If it is found,
//     apply it to the current config v. Each script is
//     managed by a variable migrationScripts.
//
//  2. The migration script returns a version which is the
//     same as an updated version.
//
//  3. migrate instructs 1 and 2 again with the returned
//     version. If there isn't a new migration script,
//     migrate finishes migration processing.
//
// migrate reports whether v was changed.
func migrate(old string, v *viper.Viper) bool {
	f, ok := migrationScripts[normalizeVersion(old)]
	if !ok {
		// No any changes
		return false
	}
	updatedVer := f(old, v)
	migrate(updatedVer, v)
	return true
}

// normalizeVersion formats ver as a canonical semantic version, for example 0.1 to 0.1.0.
// ver is returned as it is if it is invalid.
func normalizeVersion(ver string) string {
	v, err := version.NewVersion(ver)
	if err != nil {
		logger.Printf("invalid config version '%s': %s", ver, err)
		return ver
	}
	return v.String()
}

// migrate010To020 migrates a v0.1.0 or older config to v0.2.0 config.
func migrate010To020(old string, v *viper.Viper) string {
	const updatedVer = "0.2.0"

	v.Set("meta.configVersion", updatedVer)

	// v0.2.0 renamed default.protoPath to default.importPath.
	if v.IsSet("default.protoPath") {
		v.Set("default.importPath", v.Get("default.protoPath"))
	}
	// v0.2.0 replaced codec.lenient with codec.strict.
	if v.IsSet("codec.lenient") {
		v.Set("codec.strict", !v.GetBool("codec.lenient"))
	}

	return updatedVer
}
