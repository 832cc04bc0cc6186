package app

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ktr0731/protomsg/cui"
	"github.com/ktr0731/protomsg/fill"
	"github.com/ktr0731/protomsg/logger"
	"github.com/ktr0731/protomsg/message"
	"github.com/ktr0731/protomsg/schema"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newListCommand(a *App, flags *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list [options ...]",
		Aliases: []string{"ls"},
		Short:   "list messages",
		Long:    `list lists the fully-qualified names of all messages defined in the proto files.`,
		Example: strings.Join([]string{
			"        $ protomsg --proto user.proto list",
		}, "\n"),
		RunE: runFunc(a, flags, func(cmd *cobra.Command, cfg *mergedConfig, ui *cui.UI) error {
			ds, err := loadDescriptorSource(cfg)
			if err != nil {
				return err
			}
			out, err := newPresenter(cfg.Output.Format).Format(ds.ListMessages())
			if err != nil {
				return errors.Wrap(err, "failed to format message names")
			}
			ui.Output(out)
			return nil
		}),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	initFlagSet(cmd.Flags(), a.ui.Writer())
	return cmd
}

func newDescribeCommand(a *App, flags *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "describe [options ...] [message]",
		Aliases: []string{"desc"},
		Short:   "describe the fields of a message",
		Long: `describe shows the fields of the given message.
The message should be a fully-qualified name. If no message is passed, --message or default.message is used.`,
		Example: strings.Join([]string{
			"        $ protomsg --proto user.proto describe example.User",
			"        $ protomsg --proto user.proto --format json describe example.User",
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: runFunc(a, flags, func(cmd *cobra.Command, cfg *mergedConfig, ui *cui.UI) error {
			var name string
			if args := cmd.Flags().Args(); len(args) > 0 {
				name = args[0]
			}
			typ, err := loadMessageType(cfg, name)
			if err != nil {
				return err
			}
			out, err := newPresenter(cfg.Output.Format).Format(typ)
			if err != nil {
				return errors.Wrap(err, "failed to format the message type")
			}
			ui.Info(typ.Name())
			ui.Output(out)
			return nil
		}),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	initFlagSet(cmd.Flags(), a.ui.Writer())
	return cmd
}

func newEncodeCommand(a *App, flags *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "encode [options ...] [name=value ...]",
		Aliases: []string{"enc"},
		Short:   "encode a message",
		Long: `encode builds a message from assignments and writes its binary encoding.
Each assignment is formed as name=value. A nested field is assigned by a dot-separated path and
a repeated field is appended each time it is assigned.`,
		Example: strings.Join([]string{
			"        $ protomsg --proto user.proto -m example.User encode first_name=A address.city=Tokyo > user.bin",
			"        $ protomsg --proto user.proto -m example.User encode -f user.txt -o user.bin",
			"        $ protomsg --proto user.proto -m example.User --delimited encode nicknames=a nicknames=b >> users.bin",
		}, "\n"),
		RunE: runFunc(a, flags, func(cmd *cobra.Command, cfg *mergedConfig, ui *cui.UI) error {
			typ, err := loadMessageType(cfg, "")
			if err != nil {
				return err
			}
			m, err := buildMessage(cmd, cfg, typ)
			if err != nil {
				return err
			}

			encode := m.EncodeTo
			if cfg.Codec.Delimited {
				encode = m.EncodeDelimitedTo
			}
			if cfg.output == "" {
				if _, err := encode(cmd.OutOrStdout()); err != nil {
					return err
				}
			} else if err := encodeToFile(cfg.output, encode); err != nil {
				return err
			}
			logger.Printf("encoded %s with %d present field(s)", typ.Name(), len(m.PresentFields()))
			return nil
		}),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	f := cmd.Flags()
	initFlagSet(f, a.ui.Writer())
	f.StringVarP(&flags.fill.file, "file", "f", "", `a file that has an assignment per line. "-" means stdin`)
	f.BoolVar(&flags.fill.base64, "base64", false, "interpret bytes values as base64")
	f.BoolVar(&flags.fill.bytesFromFile, "bytes-from-file", false, "read bytes values from the files at the passed paths")
	f.StringVarP(&flags.encode.output, "output", "o", "", "the output file. stdout is used if it is empty")
	return cmd
}

// encodeToFile writes the encoding to the file named name.
// The close error is returned unless encode already failed.
func encodeToFile(name string, encode func(interface{}) (interface{}, error)) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "failed to create the output file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close the output file")
		}
	}()
	_, err = encode(f)
	return err
}

// buildMessage fills a new message of typ by assignments from the file and then from the arguments.
func buildMessage(cmd *cobra.Command, cfg *mergedConfig, typ *schema.MessageType) (*message.Message, error) {
	opts := fill.Opts{
		BytesAsBase64: cfg.Codec.BytesAsBase64,
		BytesFromFile: cfg.bytesFromFile,
	}
	m := message.New(typ)

	if cfg.file != "" {
		in := cmd.InOrStdin()
		if cfg.file != "-" {
			f, err := os.Open(cfg.file)
			if err != nil {
				return nil, errors.Wrap(err, "failed to open the assignment file")
			}
			defer f.Close()
			in = f
		}
		if err := fill.NewSilentFiller(in, opts).Fill(m); err != nil {
			return nil, errors.Wrap(err, "failed to fill the message from the file")
		}
	}
	if err := fill.NewArgsFiller(cmd.Flags().Args(), opts).Fill(m); err != nil {
		return nil, errors.Wrap(err, "failed to fill the message from the arguments")
	}
	return m, nil
}

func newDecodeCommand(a *App, flags *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "decode [options ...] [file ...]",
		Aliases: []string{"dec"},
		Short:   "decode messages",
		Long: `decode reads binary encoded messages from the files and shows their present fields.
If no files are passed, decode reads stdin.`,
		Example: strings.Join([]string{
			"        $ protomsg --proto user.proto -m example.User decode user.bin",
			"        $ protomsg --proto user.proto -m example.User --strict decode < user.bin",
			"        $ protomsg --proto user.proto -m example.User --delimited decode users.bin",
		}, "\n"),
		RunE: runFunc(a, flags, func(cmd *cobra.Command, cfg *mergedConfig, ui *cui.UI) error {
			typ, err := loadMessageType(cfg, "")
			if err != nil {
				return err
			}

			files := cmd.Flags().Args()
			if len(files) == 0 {
				msgs, err := decodeAll(typ, cmd.InOrStdin(), cfg)
				if err != nil {
					return errors.Wrap(err, "failed to decode stdin")
				}
				return printMessages(ui, cfg, "", msgs)
			}

			// Each input is decoded by its own goroutine and printed in the passed order.
			results := make([][]*message.Message, len(files))
			eg, ctx := errgroup.WithContext(cmd.Context())
			for i, fname := range files {
				i, fname := i, fname
				eg.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					f, err := os.Open(fname)
					if err != nil {
						return errors.Wrapf(err, "failed to open %s", fname)
					}
					defer f.Close()
					msgs, err := decodeAll(typ, f, cfg)
					if err != nil {
						return errors.Wrapf(err, "failed to decode %s", fname)
					}
					results[i] = msgs
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			for i, fname := range files {
				header := ""
				if len(files) > 1 {
					header = fname
				}
				if err := printMessages(ui, cfg, header, results[i]); err != nil {
					return err
				}
			}
			return nil
		}),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	initFlagSet(cmd.Flags(), a.ui.Writer())
	return cmd
}

// decodeAll decodes a message from r. If delimited is enabled, decodeAll decodes
// length-delimited messages until r reaches EOF.
func decodeAll(typ *schema.MessageType, r io.Reader, cfg *mergedConfig) ([]*message.Message, error) {
	opts := []message.DecodeOption{
		message.WithStrict(cfg.Codec.Strict),
		message.WithMaxDepth(cfg.Codec.MaxDepth),
	}
	if !cfg.Codec.Delimited {
		m, err := message.DecodeFrom(typ, r, opts...)
		if err != nil {
			return nil, err
		}
		return []*message.Message{m}, nil
	}

	var msgs []*message.Message
	for {
		m, err := message.DecodeDelimitedFrom(typ, r, opts...)
		if err == io.EOF {
			return msgs, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "message #%d", len(msgs)+1)
		}
		msgs = append(msgs, m)
	}
}

func printMessages(ui *cui.UI, cfg *mergedConfig, header string, msgs []*message.Message) error {
	if len(msgs) == 0 {
		if header == "" {
			header = "input"
		}
		ui.Warn(fmt.Sprintf("%s has no messages", header))
		return nil
	}
	p := newPresenter(cfg.Output.Format)
	for i, m := range msgs {
		var title bytes.Buffer
		title.WriteString(header)
		if len(msgs) > 1 {
			if title.Len() != 0 {
				title.WriteString(" ")
			}
			fmt.Fprintf(&title, "#%d", i+1)
		}
		if title.Len() != 0 {
			ui.Info(title.String())
		}
		out, err := p.Format(m)
		if err != nil {
			return errors.Wrap(err, "failed to format the message")
		}
		ui.Output(out)
	}
	return nil
}
