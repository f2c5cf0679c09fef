package main

import (
	"github.com/spf13/cobra"

	flatfile "github.com/wallaceicy06/go-flatfile"
)

func newParseCmd(a *app) *cobra.Command {
	var (
		opts   schemaOptions
		output string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "parse [INPUT|-]",
		Short: "Decode a fixed-width file into JSON, YAML or CBOR",
		Long: `Decode a fixed-width file with a schema and write the records grouped
by section. INPUT defaults to stdin. Files ending in .gz, .zst or .lz4
are decompressed first.`,
		Example: `  flatfile parse --schema payroll.yaml payroll.txt
  flatfile parse -s payroll.yaml --encoding ISO-8859-1 -o yaml payroll.txt.gz`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.merge(cmd.Flags(), a.config)
			if !cmd.Flags().Changed("output") {
				output = a.config.Output
			}

			schema, err := opts.schema(a)
			if err != nil {
				return err
			}
			enc, err := opts.textEncoding()
			if err != nil {
				return err
			}

			path := inputArg(args)
			in, err := openInput(a.stdin, path)
			if err != nil {
				return err
			}
			defer in.Close()

			dec := flatfile.NewDecoder(schema, in)
			dec.SetEncoding(enc)
			dec.SetUseCodepointIndices(opts.codepoints)
			dec.SetLogger(a.logger)
			if strict {
				dec.DisallowUnmatched()
			}

			records, err := dec.Decode()
			if err != nil {
				return err
			}

			total := 0
			for _, rows := range records {
				total += len(rows)
			}
			a.logger.Info("parsed", "input", path, "sections", len(records), "records", total)

			return writeRecords(a.stdout, output, records)
		},
	}

	opts.addFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json, yaml or cbor")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on records that match no section")
	return cmd
}
