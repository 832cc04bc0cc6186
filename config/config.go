// Package config loads the configuration of protomsg.
//
// Values are resolved in the following order, later ones take precedence:
// defaults, the global config file, the local config file in the project root,
// PROTOMSG_* environment variables and command line flags.
package config

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/ktr0731/protomsg/logger"
	"github.com/ktr0731/protomsg/meta"
	"github.com/ktr0731/protomsg/wire"
	"github.com/mitchellh/go-homedir"
	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zchee/go-xdgbasedir"
)

const (
	localConfigName  = ".protomsg.toml"
	globalConfigName = "config.toml"
	envPrefix        = "protomsg"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatName  = "name"
)

type Config struct {
	Codec   *Codec   `toml:"codec"`
	Default *Default `toml:"default"`
	Output  *Output  `toml:"output"`
	Log     *Log     `toml:"log"`
	Meta    *Meta    `toml:"meta"`
}

type Codec struct {
	// Strict rejects unknown tags while decoding.
	Strict bool `toml:"strict"`
	// Delimited reads and writes length-delimited messages.
	Delimited bool `toml:"delimited"`
	MaxDepth  int  `toml:"maxDepth"`
	// BytesAsBase64 interprets bytes values of assignments as base64.
	BytesAsBase64 bool `toml:"bytesAsBase64"`
}

type Default struct {
	ImportPath []string `toml:"importPath"`
	ProtoFile  []string `toml:"protoFile"`
	Message    string   `toml:"message"`
}

type Output struct {
	Colored bool   `toml:"colored"`
	Format  string `toml:"format"`
}

type Log struct {
	Prefix string `toml:"prefix"`
}

type Meta struct {
	ConfigVersion string `toml:"configVersion"`
}

// flagKeys maps flag names to config keys. Flags that aren't defined in the passed FlagSet are ignored.
var flagKeys = map[string]string{
	"strict":    "codec.strict",
	"delimited": "codec.delimited",
	"max-depth": "codec.maxDepth",
	"base64":    "codec.bytesAsBase64",
	"path":      "default.importPath",
	"proto":     "default.protoFile",
	"message":   "default.message",
	"format":    "output.format",
}

func setDefault(v *viper.Viper) {
	v.SetDefault("codec.strict", false)
	v.SetDefault("codec.delimited", false)
	v.SetDefault("codec.maxDepth", wire.DefaultMaxDepth)
	v.SetDefault("codec.bytesAsBase64", false)
	v.SetDefault("default.importPath", []string{})
	v.SetDefault("default.protoFile", []string{})
	v.SetDefault("default.message", "")
	v.SetDefault("output.colored", true)
	v.SetDefault("output.format", FormatTable)
	v.SetDefault("log.prefix", "protomsg: ")
	v.SetDefault("meta.configVersion", meta.Version.String())
}

// Get returns the resolved config. fs may be nil.
func Get(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefault(v)

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadLocalConfig(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := setupConfig(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setupConfig fills nil sections and expands '~' in paths.
func setupConfig(c *Config) error {
	if c.Codec == nil {
		c.Codec = &Codec{}
	}
	if c.Default == nil {
		c.Default = &Default{}
	}
	if c.Output == nil {
		c.Output = &Output{}
	}
	if c.Log == nil {
		c.Log = &Log{}
	}
	if c.Meta == nil {
		c.Meta = &Meta{}
	}

	for _, paths := range [][]string{c.Default.ImportPath, c.Default.ProtoFile} {
		for i, p := range paths {
			expanded, err := homedir.Expand(p)
			if err != nil {
				return errors.Wrapf(err, "failed to expand path '%s'", p)
			}
			paths[i] = expanded
		}
	}
	return nil
}

// ValidationError describes invalid config values.
type ValidationError struct {
	Key string
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config value of '%s': %s", e.Key, e.Msg)
}

// Validate reports all invalid values of c.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Codec.MaxDepth < 0 {
		result = multierror.Append(result, &ValidationError{Key: "codec.maxDepth", Msg: "must not be negative"})
	}
	switch c.Output.Format {
	case FormatTable, FormatJSON, FormatName:
	default:
		result = multierror.Append(result, &ValidationError{
			Key: "output.format",
			Msg: fmt.Sprintf("must be one of %s, %s or %s, but got '%s'", FormatTable, FormatJSON, FormatName, c.Output.Format),
		})
	}
	return result.ErrorOrNil()
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "failed to bind flag '%s'", name)
		}
	}
	return nil
}

func globalConfigDir() string {
	return filepath.Join(xdgbasedir.ConfigHome(), meta.AppName)
}

// loadGlobalConfig reads the global config. If it doesn't exist, loadGlobalConfig creates
// it with the default values. Old config is migrated to the latest one.
func loadGlobalConfig(v *viper.Viper) error {
	p := filepath.Join(globalConfigDir(), globalConfigName)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		if err := initGlobalConfig(v, p); err != nil {
			return err
		}
	}

	v.SetConfigFile(p)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read the global config '%s'", p)
	}

	// Migration uses another viper to keep values set by scripts from overriding env vars and flags.
	mv := viper.New()
	mv.SetConfigFile(p)
	if err := mv.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read the global config '%s'", p)
	}
	old := mv.GetString("meta.configVersion")
	if !migrate(old, mv) {
		return nil
	}
	logger.Printf("migrated the global config from v%s", old)
	if err := writeConfig(mv.AllSettings(), p); err != nil {
		return errors.Wrap(err, "failed to write the migrated config")
	}
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read the migrated config '%s'", p)
	}
	return nil
}

func initGlobalConfig(v *viper.Viper, p string) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrap(err, "failed to create the config dir")
	}
	logger.Printf("create the default global config: %s", p)
	return writeConfig(v.AllSettings(), p)
}

func writeConfig(settings map[string]interface{}, p string) error {
	tree, err := toml.TreeFromMap(settings)
	if err != nil {
		return errors.Wrap(err, "failed to convert config to TOML")
	}
	f, err := os.Create(p)
	if err != nil {
		return errors.Wrapf(err, "failed to create '%s'", p)
	}
	defer f.Close()
	if _, err := tree.WriteTo(f); err != nil {
		return errors.Wrapf(err, "failed to write '%s'", p)
	}
	return nil
}

func loadLocalConfig(v *viper.Viper) error {
	p, err := lookupLocalConfig()
	if err != nil {
		return err
	}
	if p == "" {
		return nil
	}
	f, err := os.Open(p)
	if err != nil {
		return errors.Wrapf(err, "failed to open the local config '%s'", p)
	}
	defer f.Close()
	if err := v.MergeConfig(f); err != nil {
		return errors.Wrapf(err, "failed to merge the local config '%s'", p)
	}
	logger.Printf("local config loaded: %s", p)
	return nil
}

// lookupLocalConfig finds the local config from the current dir or the project root.
// It returns an empty string if it doesn't exist.
func lookupLocalConfig() (string, error) {
	if _, err := os.Stat(localConfigName); err == nil {
		return localConfigName, nil
	}

	root, err := lookupProjectRoot()
	if err != nil || root == "" {
		// Outside a Git repository.
		return "", nil
	}
	p := filepath.Join(root, localConfigName)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return "", nil
	}
	return p, nil
}

func lookupProjectRoot() (string, error) {
	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Stdout = outBuf
	cmd.Stderr = errBuf
	if err := cmd.Run(); err != nil {
		return "", err
	}
	if errBuf.Len() != 0 {
		return "", errors.New(errBuf.String())
	}
	return strings.TrimSpace(outBuf.String()), nil
}
