// Package schemafile reads flatfile schema definitions from YAML or JSONC
// documents and builds flatfile.Schema values from them.
//
// A definition lists sections in file order. Each section names its trap,
// the templates it includes and its columns:
//
//	name: payroll
//	align: right
//	templates:
//	  person:
//	    columns:
//	      - {name: first, width: 10}
//	      - {name: last, width: 10}
//	sections:
//	  - name: header
//	    trap: {prefix: HEAD}
//	    columns:
//	      - {name: type, width: 4}
//	      - {spacer: 2}
//	      - {name: run_date, width: 10, type: date}
//	  - name: employee
//	    trap: {not_prefix: [HEAD, FOOT]}
//	    templates: [person]
//
// JSONC documents (JSON with comments and trailing commas) use the same
// field names and are selected by a .json or .jsonc file extension.
package schemafile

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	flatfile "github.com/wallaceicy06/go-flatfile"
)

// Format is the syntax of a definition document.
type Format string

const (
	YAML  Format = "yaml"
	JSONC Format = "jsonc"
)

var (
	// ErrInvalidTrap indicates a trap that does not set exactly one rule.
	ErrInvalidTrap = errors.New("schemafile: trap must set exactly one of prefix, not_prefix, match or any")

	// ErrUnknownFormat indicates an unsupported document format.
	ErrUnknownFormat = errors.New("schemafile: unknown format")

	// ErrEmpty indicates a document without a definition.
	ErrEmpty = errors.New("schemafile: empty definition")
)

// Codecs maps column type names that are not built in to the FieldCodec
// implementing them.
var Codecs = map[string]flatfile.FieldCodec{
	"fit_float": flatfile.FitFloat{},
}

// Definition is the document form of a schema.
type Definition struct {
	Name         string                `yaml:"name" json:"name"`
	Align        string                `yaml:"align" json:"align"`
	ByBytes      bool                  `yaml:"by_bytes" json:"by_bytes"`
	RepeatMarker string                `yaml:"repeat_marker" json:"repeat_marker"`
	Templates    map[string]SectionDef `yaml:"templates" json:"templates"`
	Sections     []SectionDef          `yaml:"sections" json:"sections"`
}

// SectionDef is a section or a template. Align, Padding and Type are the
// defaults of the section's columns.
type SectionDef struct {
	Name       string      `yaml:"name" json:"name"`
	Optional   bool        `yaml:"optional" json:"optional"`
	Repeatable bool        `yaml:"repeatable" json:"repeatable"`
	Trap       *TrapDef    `yaml:"trap" json:"trap"`
	Templates  []string    `yaml:"templates" json:"templates"`
	Align      string      `yaml:"align" json:"align"`
	Padding    string      `yaml:"padding" json:"padding"`
	Type       string      `yaml:"type" json:"type"`
	Columns    []ColumnDef `yaml:"columns" json:"columns"`
}

// ColumnDef is a column. A non-zero Spacer declares a filler column of that
// width instead.
type ColumnDef struct {
	Name      string `yaml:"name" json:"name"`
	Width     int    `yaml:"width" json:"width"`
	Type      string `yaml:"type" json:"type"`
	Align     string `yaml:"align" json:"align"`
	Padding   string `yaml:"padding" json:"padding"`
	Truncate  bool   `yaml:"truncate" json:"truncate"`
	Precision int    `yaml:"precision" json:"precision"`
	Format    string `yaml:"format" json:"format"`
	Strict    bool   `yaml:"strict" json:"strict"`
	Spacer    int    `yaml:"spacer" json:"spacer"`
}

// TrapDef selects the records of a section. Exactly one rule must be set.
type TrapDef struct {
	Prefix    string   `yaml:"prefix" json:"prefix"`
	NotPrefix []string `yaml:"not_prefix" json:"not_prefix"`
	Match     string   `yaml:"match" json:"match"`
	Any       bool     `yaml:"any" json:"any"`
}

// FormatFromPath picks the document format from a file extension: .json and
// .jsonc are JSONC, anything else is YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return JSONC
	}
	return YAML
}

// NameFromPath derives a schema name from a file path by stripping the
// directory and the extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Parse decodes a definition document. Unknown fields are rejected.
func Parse(data []byte, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			if err == io.EOF {
				return nil, ErrEmpty
			}
			return nil, errors.Wrap(err, "schemafile: parsing yaml")
		}
	case JSONC:
		stripped := jsonc.ToJSON(data)
		if len(bytes.TrimSpace(stripped)) == 0 {
			return nil, ErrEmpty
		}
		dec := json.NewDecoder(bytes.NewReader(stripped))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, errors.Wrap(err, "schemafile: parsing json")
		}
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}
	return &def, nil
}

// ReadFile reads and decodes the definition at path.
func ReadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "schemafile: reading %s", path)
	}
	def, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return def, nil
}

// Load reads the definition at path and builds its schema. The returned name
// is the definition's name, or the file name when it has none.
func Load(path string) (string, *flatfile.Schema, error) {
	def, err := ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	schema, err := def.Build()
	if err != nil {
		return "", nil, errors.Wrap(err, path)
	}
	name := def.Name
	if name == "" {
		name = NameFromPath(path)
	}
	return name, schema, nil
}

// LoadInto loads every path and registers the schemas in r. It stops at the
// first failure.
func LoadInto(r *flatfile.Registry, paths ...string) error {
	for _, path := range paths {
		name, schema, err := Load(path)
		if err != nil {
			return err
		}
		r.Register(name, schema)
	}
	return nil
}

// Build constructs the schema described by d. Templates are registered
// before any section so that sections can include them.
func (d *Definition) Build() (*flatfile.Schema, error) {
	schema := flatfile.New(flatfile.Options{
		Align:        flatfile.Alignment(d.Align),
		ByBytes:      d.ByBytes,
		RepeatMarker: d.RepeatMarker,
	})
	if d.Align != "" && !schema.Options().Align.Valid() {
		return nil, &flatfile.SchemaError{Name: d.Name, Err: flatfile.ErrInvalidAlignment}
	}

	for name, def := range d.Templates {
		opts, err := def.options()
		if err != nil {
			return nil, errors.Wrapf(err, "schemafile: template %q", name)
		}
		tmpl, err := schema.AddTemplate(name, opts)
		if err != nil {
			return nil, err
		}
		if err := def.addColumns(tmpl); err != nil {
			return nil, errors.Wrapf(err, "schemafile: template %q", name)
		}
	}

	for _, def := range d.Sections {
		opts, err := def.options()
		if err != nil {
			return nil, errors.Wrapf(err, "schemafile: section %q", def.Name)
		}
		sec, err := schema.AddSection(def.Name, opts)
		if err != nil {
			return nil, err
		}
		for _, name := range def.Templates {
			if err := sec.ApplyTemplate(name); err != nil {
				return nil, errors.Wrapf(err, "schemafile: section %q", def.Name)
			}
		}
		if err := def.addColumns(sec); err != nil {
			return nil, errors.Wrapf(err, "schemafile: section %q", def.Name)
		}
	}
	return schema, nil
}

func (d SectionDef) options() (flatfile.SectionOptions, error) {
	trap, err := d.Trap.compile()
	if err != nil {
		return flatfile.SectionOptions{}, err
	}
	defaults := flatfile.ColumnOptions{
		Align:   flatfile.Alignment(d.Align),
		Padding: flatfile.Padding(d.Padding),
	}
	setType(&defaults, d.Type)
	return flatfile.SectionOptions{
		Trap:       trap,
		Optional:   d.Optional,
		Repeatable: d.Repeatable,
		Defaults:   defaults,
	}, nil
}

func (d SectionDef) addColumns(sec *flatfile.Section) error {
	for _, c := range d.Columns {
		if c.Spacer > 0 {
			if _, err := sec.AddSpacer(c.Spacer); err != nil {
				return err
			}
			continue
		}
		if _, err := sec.AddColumn(c.Name, c.Width, c.options()); err != nil {
			return err
		}
	}
	return nil
}

func (c ColumnDef) options() flatfile.ColumnOptions {
	opts := flatfile.ColumnOptions{
		Align:     flatfile.Alignment(c.Align),
		Padding:   flatfile.Padding(c.Padding),
		Truncate:  c.Truncate,
		Precision: c.Precision,
		Format:    c.Format,
		Strict:    c.Strict,
	}
	setType(&opts, c.Type)
	return opts
}

// setType resolves a type name to a built-in type or a registered codec.
// Unknown names are kept so that column validation reports them.
func setType(opts *flatfile.ColumnOptions, name string) {
	if name == "" {
		return
	}
	if codec, ok := Codecs[name]; ok {
		opts.Type = flatfile.Custom
		opts.Codec = codec
		return
	}
	opts.Type = flatfile.Type(name)
}

func (t *TrapDef) compile() (flatfile.Trap, error) {
	if t == nil {
		return nil, nil
	}

	rules := 0
	for _, set := range []bool{t.Prefix != "", len(t.NotPrefix) > 0, t.Match != "", t.Any} {
		if set {
			rules++
		}
	}
	if rules != 1 {
		return nil, ErrInvalidTrap
	}

	switch {
	case t.Prefix != "":
		prefix := t.Prefix
		return func(line string) bool { return strings.HasPrefix(line, prefix) }, nil

	case len(t.NotPrefix) > 0:
		prefixes := append([]string(nil), t.NotPrefix...)
		return func(line string) bool {
			for _, p := range prefixes {
				if strings.HasPrefix(line, p) {
					return false
				}
			}
			return true
		}, nil

	case t.Match != "":
		re, err := regexp.Compile(t.Match)
		if err != nil {
			return nil, errors.Wrap(err, "schemafile: trap match")
		}
		return re.MatchString, nil
	}
	return nil, nil
}
