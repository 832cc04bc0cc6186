package app

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ktr0731/protomsg/config"
	"github.com/ktr0731/protomsg/cui"
	"github.com/ktr0731/protomsg/logger"
	"github.com/ktr0731/protomsg/meta"
	"github.com/ktr0731/protomsg/present"
	"github.com/ktr0731/protomsg/present/json"
	"github.com/ktr0731/protomsg/present/name"
	"github.com/ktr0731/protomsg/present/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var usageFormat = `
Usage: %s [global options ...] <command>

Commands:
        list        list messages defined in proto files
        describe    describe the fields of a message
        encode      encode a message from assignments
        decode      decode messages and show their present fields

Options:
%s
`

// runFunc is a common entrypoint for Run func.
func runFunc(
	a *App,
	flags *flags,
	f func(*cobra.Command, *mergedConfig, *cui.UI) error,
) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := flags.validate(); err != nil {
			return errors.Wrap(err, "invalid flag condition")
		}

		switch {
		case flags.meta.version:
			printVersion(cmd.OutOrStdout())
			return nil
		case flags.meta.help:
			printUsage(cmd)
			return nil
		}

		if flags.meta.verbose {
			logger.SetOutput(cmd.ErrOrStderr())
		}

		// Pass Flags instead of LocalFlags because the config is merged with common and local flags.
		cfg, err := mergeConfig(cmd.Flags(), flags)
		if err != nil {
			return errors.Wrap(err, "failed to merge command line flags and config files")
		}
		logger.SetPrefix(cfg.Log.Prefix)
		logger.Dump("config", cfg.Config)

		ui := a.ui
		if !cfg.Output.Colored {
			ui = cui.New(append(a.uiOpts, cui.Colored(false))...)
		}

		// The entrypoint for the command.
		return f(cmd, cfg, ui)
	}
}

func newRootCommand(a *App) *cobra.Command {
	var flags flags
	cmd := &cobra.Command{
		Use: meta.AppName,
		RunE: runFunc(a, &flags, func(cmd *cobra.Command, _ *mergedConfig, _ *cui.UI) error {
			printUsage(cmd)
			return nil
		}),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	bindFlags(cmd.PersistentFlags(), &flags, a.ui.Writer())
	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		usageFunc(cmd.OutOrStdout(), cmd.Flags())()
	})
	cmd.SetOut(a.ui.Writer())
	cmd.AddCommand(
		newListCommand(a, &flags),
		newDescribeCommand(a, &flags),
		newEncodeCommand(a, &flags),
		newDecodeCommand(a, &flags),
	)
	return cmd
}

func bindFlags(f *pflag.FlagSet, flags *flags, w io.Writer) {
	initFlagSet(f, w)

	f.StringSliceVar(&flags.common.path, "path", nil, "import paths of proto files")
	f.StringSliceVar(&flags.common.proto, "proto", nil, "proto file names")
	f.StringVarP(&flags.common.message, "message", "m", "", "fully-qualified message name")
	f.StringVar(
		&flags.common.format,
		"format", config.FormatTable, fmt.Sprintf(`output format. one of "%s", "%s" or "%s"`, config.FormatTable, config.FormatJSON, config.FormatName))

	f.BoolVar(&flags.codec.strict, "strict", false, "reject unknown fields while decoding")
	f.BoolVar(&flags.codec.delimited, "delimited", false, "read and write length-delimited messages")
	f.IntVar(&flags.codec.maxDepth, "max-depth", 0, "the maximum nesting depth of decoded messages")

	f.BoolVar(&flags.meta.verbose, "verbose", false, "verbose output")
	f.BoolVarP(&flags.meta.version, "version", "v", false, "display version and exit")
	f.BoolVarP(&flags.meta.help, "help", "h", false, "display help text and exit")
}

func initFlagSet(f *pflag.FlagSet, w io.Writer) {
	f.SortFlags = false
	f.SetOutput(w)
	f.Usage = usageFunc(w, f)
}

// usage is the generator for usage output.
func usageFunc(out io.Writer, f *pflag.FlagSet) func() {
	return func() {
		printVersion(out)
		var buf bytes.Buffer
		w := tabwriter.NewWriter(&buf, 0, 8, 8, ' ', tabwriter.TabIndent)
		f.VisitAll(func(f *pflag.Flag) {
			if f.Hidden {
				return
			}
			cmd := "--" + f.Name
			if f.Shorthand != "" {
				cmd += ", -" + f.Shorthand
			}
			name, _ := pflag.UnquoteUsage(f)
			if name != "" {
				cmd += " " + name
			}
			usage := f.Usage
			if f.DefValue != "" && f.DefValue != "[]" && f.DefValue != "false" && f.DefValue != "0" {
				usage += fmt.Sprintf(` (default "%s")`, f.DefValue)
			}
			fmt.Fprintf(w, "        %s\t%s\n", cmd, usage)
		})
		w.Flush()
		fmt.Fprintf(out, usageFormat, meta.AppName, buf.String())
	}
}

func newPresenter(format string) present.Presenter {
	switch format {
	case config.FormatJSON:
		return json.NewPresenter("  ")
	case config.FormatName:
		return name.NewPresenter()
	}
	return table.NewPresenter()
}
