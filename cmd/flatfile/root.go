package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	flatfile "github.com/wallaceicy06/go-flatfile"
	"github.com/wallaceicy06/go-flatfile/schemafile"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	config *Config
	logger *slog.Logger
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "flatfile",
		Short: "Parse and generate fixed-width files",
		Long: `flatfile converts between fixed-width files and structured data.

Layouts are described by schema definitions written in YAML or JSONC.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $"+configEnv+")")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	cmd.AddCommand(newParseCmd(a), newGenerateCmd(a))
	return cmd
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	config := DefaultConfig()
	path := a.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return err
		}
		config = loaded
	}
	if cmd.Flags().Changed("log-level") {
		config.Logging.Level = a.logLevel
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(config.Logging.Level)); err != nil {
		return errors.Wrapf(err, "invalid log level %q", config.Logging.Level)
	}

	a.config = config
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// schemaOptions are the flags selecting the schema and how the fixed-width
// data is measured and transcoded.
type schemaOptions struct {
	files      []string
	name       string
	encoding   string
	codepoints bool
}

func (o *schemaOptions) addFlags(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&o.files, "schema", "s", nil, "schema definition file, YAML or JSONC (repeatable)")
	fs.StringVarP(&o.name, "name", "n", "", "name of the schema to use when several are loaded")
	fs.StringVar(&o.encoding, "encoding", "", "IANA character encoding of the fixed-width data (default UTF-8)")
	fs.BoolVar(&o.codepoints, "codepoints", false, "measure column widths in UTF-8 codepoints instead of bytes")
}

// merge fills the options that were not set on the command line from the
// configuration.
func (o *schemaOptions) merge(fs *pflag.FlagSet, config *Config) {
	if !fs.Changed("encoding") {
		o.encoding = config.Encoding
	}
	if !fs.Changed("codepoints") {
		o.codepoints = config.Codepoints
	}
}

// schema loads the schema definitions and returns the selected schema.
// Definitions found in the configured schema directories are loaded first.
func (o *schemaOptions) schema(a *app) (*flatfile.Schema, error) {
	registry := flatfile.NewRegistry()

	for _, dir := range a.config.SchemaDirs {
		var paths []string
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json", "*.jsonc"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, errors.Wrapf(err, "searching %s", dir)
			}
			paths = append(paths, matches...)
		}
		if err := schemafile.LoadInto(registry, paths...); err != nil {
			return nil, err
		}
		a.logger.Debug("loaded schema directory", "dir", dir, "files", len(paths))
	}

	var loaded []string
	for _, path := range o.files {
		name, schema, err := schemafile.Load(path)
		if err != nil {
			return nil, err
		}
		registry.Register(name, schema)
		loaded = append(loaded, name)
	}

	name := o.name
	switch {
	case name != "":
	case len(loaded) == 1:
		name = loaded[0]
	default:
		names := registry.Names()
		if len(names) == 0 {
			return nil, errors.New("no schema given, use --schema or schema_dirs in the config file")
		}
		if len(names) > 1 {
			return nil, errors.Errorf("several schemas loaded (%v), use --name to pick one", names)
		}
		name = names[0]
	}
	a.logger.Debug("using schema", "name", name)
	return registry.Lookup(name)
}

// textEncoding resolves the configured character encoding. It is nil for
// UTF-8.
func (o *schemaOptions) textEncoding() (encoding.Encoding, error) {
	if o.encoding == "" {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(o.encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %q", o.encoding)
	}
	if enc == nil {
		return nil, errors.Errorf("encoding %q is not supported", o.encoding)
	}
	if name, _ := ianaindex.IANA.Name(enc); name == "UTF-8" {
		return nil, nil
	}
	return enc, nil
}

// inputArg returns the input path argument, "-" for stdin.
func inputArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
