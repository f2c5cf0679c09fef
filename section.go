package flatfile

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Section is a named, ordered group of columns. A record belongs to a section
// when the section's trap accepts it.
type Section struct {
	name       string
	columns    []*Column
	trap       Trap
	optional   bool
	repeatable bool
	defaults   ColumnOptions

	// schema is used to look up templates.
	schema *Schema
}

func newSection(name string, opts SectionOptions, schema *Schema) *Section {
	return &Section{
		name:       name,
		trap:       opts.Trap,
		optional:   opts.Optional,
		repeatable: opts.Repeatable,
		defaults:   opts.Defaults.under(schema.defaults()),
		schema:     schema,
	}
}

func (s *Section) Name() string { return s.name }

func (s *Section) Optional() bool { return s.optional }

func (s *Section) Repeatable() bool { return s.repeatable }

// Columns returns the columns of the section in order.
func (s *Section) Columns() []*Column {
	return append([]*Column(nil), s.columns...)
}

// Width is the sum of the widths of the section's columns.
func (s *Section) Width() int {
	var w int
	for _, c := range s.columns {
		w += c.width
	}
	return w
}

func (s *Section) SetTrap(trap Trap) { s.trap = trap }

func (s *Section) SetOptional(optional bool) { s.optional = optional }

func (s *Section) SetRepeatable(repeatable bool) { s.repeatable = repeatable }

// AddColumn appends a column to the section. Unset options are taken from the
// section defaults. Column names must be unique within the section, except for
// Spacer.
func (s *Section) AddColumn(name string, width int, opts ColumnOptions) (*Column, error) {
	if name != Spacer && s.column(name) != nil {
		return nil, &SchemaError{Name: name, Err: ErrDuplicateColumn}
	}
	c, err := NewColumn(name, width, opts.under(s.defaults))
	if err != nil {
		return nil, errors.Wrapf(err, "section %q", s.name)
	}
	s.columns = append(s.columns, c)
	return c, nil
}

// AddSpacer appends a filler column of the given width.
func (s *Section) AddSpacer(width int) (*Column, error) {
	return s.AddColumn(Spacer, width, ColumnOptions{})
}

// ApplyTemplate appends the columns of the named template to the section. The
// template's column defaults are folded under the section's own, and its trap
// is adopted when the section has none.
func (s *Section) ApplyTemplate(name string) error {
	var tmpl *Section
	if s.schema != nil {
		tmpl, _ = s.schema.Template(name)
	}
	if tmpl == nil {
		return &SchemaError{Name: name, Err: ErrTemplateNotFound}
	}
	for _, c := range tmpl.columns {
		if !c.IsSpacer() && s.column(c.name) != nil {
			return errors.Wrapf(&SchemaError{Name: c.name, Err: ErrDuplicateColumn}, "template %q", name)
		}
	}
	s.columns = append(s.columns, tmpl.columns...)
	s.defaults = s.defaults.under(tmpl.defaults)
	if s.trap == nil {
		s.trap = tmpl.trap
	}
	return nil
}

func (s *Section) column(name string) *Column {
	for _, c := range s.columns {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Match reports whether line belongs to the section.
func (s *Section) Match(line string) bool {
	if s == nil {
		return false
	}
	if s.trap == nil {
		return true
	}
	return s.trap(line)
}

// DecodeRow splits line into the section's columns and parses each field.
// Widths are measured in bytes. Spacer columns are skipped.
func (s *Section) DecodeRow(line string) (Row, error) {
	return s.decodeRow(text{data: line}, nil)
}

// decodeRow parses the fields of line. transform, if set, is applied to each
// raw field before it is parsed.
func (s *Section) decodeRow(line text, transform func(string) (string, error)) (Row, error) {
	row := make(Row, len(s.columns))
	start := 0
	for _, c := range s.columns {
		end := start + c.width
		if c.IsSpacer() {
			start = end
			continue
		}
		raw := line.slice(start, end)
		if transform != nil {
			var err error
			if raw, err = transform(raw); err != nil {
				return nil, errors.Wrapf(err, "flatfile: column %q", c.name)
			}
		}
		v, err := c.Parse(raw)
		if err != nil {
			return nil, err
		}
		row[c.name] = v
		start = end
	}
	return row, nil
}

// EncodeRow renders row as a single record of exactly Width bytes. Missing
// values render as empty. Spacer columns are filled with their padding.
func (s *Section) EncodeRow(row Row) (string, error) {
	return s.encodeRow(row, false)
}

func (s *Section) encodeRow(row Row, useCodepointIndices bool) (string, error) {
	var b strings.Builder
	for _, c := range s.columns {
		if c.IsSpacer() {
			b.WriteString(c.fill())
			continue
		}
		v, err := c.format(row[c.name], useCodepointIndices)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Dump renders the raw fields of line as name="value" pairs. It never fails
// and is meant for diagnostics on records that could not be decoded.
func (s *Section) Dump(line string) string {
	return s.dump(text{data: line})
}

func (s *Section) dump(line text) string {
	var parts []string
	start := 0
	for _, c := range s.columns {
		end := start + c.width
		if !c.IsSpacer() {
			parts = append(parts, c.name+"="+strconv.Quote(strings.TrimSpace(line.slice(start, end))))
		}
		start = end
	}
	return strings.Join(parts, " ")
}
