// Package app provides the entrypoint for protomsg.
package app

import (
	"fmt"
	"io"

	"github.com/ktr0731/protomsg/config"
	"github.com/ktr0731/protomsg/cui"
	"github.com/ktr0731/protomsg/logger"
	"github.com/ktr0731/protomsg/meta"
	"github.com/ktr0731/protomsg/proto"
	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// App is the root component for running the application.
type App struct {
	ui     *cui.UI
	uiOpts []cui.Option
	cmd    *cobra.Command
}

// New instantiates a new App instance. opts are passed to cui.New.
func New(opts ...cui.Option) *App {
	a := &App{
		ui:     cui.New(opts...),
		uiOpts: opts,
	}
	a.cmd = newRootCommand(a)
	return a
}

// Run starts the application. The return value means the exit code.
func (a *App) Run(args []string) int {
	a.cmd.SetArgs(args)
	err := a.cmd.Execute()
	if err == nil {
		return 0
	}
	a.ui.Error(err.Error())
	return 1
}

// printUsage shows the command usage text to cui.Writer and exit.
func printUsage(cmd interface{ Help() error }) {
	_ = cmd.Help() // Help never return errors.
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", meta.AppName, meta.Version.String())
}

// mergedConfig represents the conclusive config. Common config items are stored to *config.Config.
// Flags that can be specified by command line only are represented as fields.
type mergedConfig struct {
	*config.Config

	// The file that assignments are read from. "-" means stdin.
	file string
	// Read bytes values of assignments from files.
	bytesFromFile bool
	// The file that an encoded message is written to. Empty if the output is stdout.
	output string

	// Verbose output.
	verbose bool
}

func mergeConfig(fs *pflag.FlagSet, flags *flags) (*mergedConfig, error) {
	cfg, err := config.Get(fs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get config")
	}

	return &mergedConfig{
		Config:        cfg,
		file:          flags.fill.file,
		bytesFromFile: flags.fill.bytesFromFile,
		output:        flags.encode.output,
		verbose:       flags.meta.verbose,
	}, nil
}

// loadMessageType compiles the proto files of cfg and converts the message named name.
// If name is empty, the default message is used.
func loadMessageType(cfg *mergedConfig, name string) (*schema.MessageType, error) {
	if name == "" {
		name = cfg.Default.Message
	}
	if name == "" {
		return nil, errors.New("message is required. specify it by --message or default.message")
	}
	ds, err := loadDescriptorSource(cfg)
	if err != nil {
		return nil, err
	}
	typ, err := proto.LoadMessageType(ds, name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load message %s", name)
	}
	logger.Scriptln(func() []interface{} { return []interface{}{"loaded message type:", typ} })
	return typ, nil
}

func loadDescriptorSource(cfg *mergedConfig) (proto.DescriptorSource, error) {
	protos := nonEmpty(cfg.Default.ProtoFile)
	if len(protos) == 0 {
		return nil, errors.New("proto files are required. specify them by --proto or default.protoFile")
	}
	ds, err := proto.NewDescriptorSourceFromFiles(nonEmpty(cfg.Default.ImportPath), protos)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func nonEmpty(ss []string) []string {
	res := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}
