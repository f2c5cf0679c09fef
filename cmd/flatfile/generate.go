package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	flatfile "github.com/wallaceicy06/go-flatfile"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		opts        schemaOptions
		inputFormat string
		out         string
	)

	cmd := &cobra.Command{
		Use:   "generate [INPUT|-]",
		Short: "Encode JSON or YAML records into a fixed-width file",
		Long: `Encode records grouped by section into a fixed-width file. The input is a
document whose keys are section names, or repeat keys for repeatable
sections, and whose values are a record or a list of records.`,
		Example: `  flatfile generate --schema payroll.yaml records.json
  cat records.yaml | flatfile generate -s payroll.yaml --input-format yaml --out payroll.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.merge(cmd.Flags(), a.config)

			schema, err := opts.schema(a)
			if err != nil {
				return err
			}
			enc, err := opts.textEncoding()
			if err != nil {
				return err
			}

			path := inputArg(args)
			format := inputFormat
			if format == "" {
				format = inputFormatOf(path)
			}

			in, err := openInput(a.stdin, path)
			if err != nil {
				return err
			}
			defer in.Close()

			data, err := io.ReadAll(in)
			if err != nil {
				return errors.Wrap(err, "reading input")
			}
			records, err := readRecords(data, format)
			if err != nil {
				return err
			}

			w := a.stdout
			var f *os.File
			if out != "" {
				if f, err = os.Create(out); err != nil {
					return errors.Wrap(err, "creating output")
				}
				defer f.Close()
				w = f
			}

			e := flatfile.NewEncoder(schema, w)
			e.SetEncoding(enc)
			e.SetUseCodepointIndices(opts.codepoints)
			e.SetLogger(a.logger)
			if err := e.Encode(records); err != nil {
				return err
			}

			if f != nil {
				if err := f.Close(); err != nil {
					return errors.Wrap(err, "closing output")
				}
			}
			a.logger.Info("generated", "input", path, "sections", len(records))
			return nil
		},
	}

	opts.addFlags(cmd.Flags())
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "input format: json or yaml (default from the file extension, json for stdin)")
	cmd.Flags().StringVar(&out, "out", "", "write to FILE instead of stdout")
	return cmd
}
