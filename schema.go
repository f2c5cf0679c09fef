package flatfile

import (
	"strconv"
	"strings"
)

// Schema is an ordered list of sections describing a fixed-width file, plus
// named templates that sections can reuse.
//
// A Schema is built once and is read-only afterwards; it may be shared by any
// number of decoders and encoders.
type Schema struct {
	sections  []*Section
	templates map[string]*Section
	opts      Options
}

// New returns an empty schema.
func New(opts Options) *Schema {
	if opts.Align == "" {
		opts.Align = Right
	}
	if opts.RepeatMarker == "" {
		opts.RepeatMarker = defaultRepeatMarker
	}
	return &Schema{
		templates: make(map[string]*Section),
		opts:      opts,
	}
}

func (s *Schema) Options() Options { return s.opts }

func (s *Schema) defaults() ColumnOptions {
	return ColumnOptions{Align: s.opts.Align}
}

// AddSection appends a new section. The name must not be reserved or already
// used by another section.
func (s *Schema) AddSection(name string, opts SectionOptions) (*Section, error) {
	if name == Spacer {
		return nil, &SchemaError{Name: name, Err: ErrReservedName}
	}
	if _, ok := s.Section(name); ok {
		return nil, &SchemaError{Name: name, Err: ErrDuplicateSection}
	}
	if opts.Defaults.Align != "" && !opts.Defaults.Align.Valid() {
		return nil, &SchemaError{Name: name, Err: ErrInvalidAlignment}
	}
	if opts.Defaults.Padding != "" && !opts.Defaults.Padding.Valid() {
		return nil, &SchemaError{Name: name, Err: ErrInvalidPadding}
	}
	sec := newSection(name, opts, s)
	s.sections = append(s.sections, sec)
	return sec, nil
}

// AddTemplate registers a reusable section under name. Templates are not part
// of the section list. Registering a name twice replaces the template.
func (s *Schema) AddTemplate(name string, opts SectionOptions) (*Section, error) {
	if opts.Defaults.Align != "" && !opts.Defaults.Align.Valid() {
		return nil, &SchemaError{Name: name, Err: ErrInvalidAlignment}
	}
	if opts.Defaults.Padding != "" && !opts.Defaults.Padding.Valid() {
		return nil, &SchemaError{Name: name, Err: ErrInvalidPadding}
	}
	tmpl := newSection(name, opts, s)
	s.templates[name] = tmpl
	return tmpl, nil
}

// Sections returns the sections in declaration order.
func (s *Schema) Sections() []*Section {
	return append([]*Section(nil), s.sections...)
}

// Section returns the section with the given name.
func (s *Schema) Section(name string) (*Section, bool) {
	for _, sec := range s.sections {
		if sec.name == name {
			return sec, true
		}
	}
	return nil, false
}

// Template returns the template with the given name.
func (s *Schema) Template(name string) (*Section, bool) {
	tmpl, ok := s.templates[name]
	return tmpl, ok
}

// Sequential returns the sections that are not repeatable, in declaration
// order.
func (s *Schema) Sequential() []*Section {
	return s.filter(false)
}

// Repeatable returns the repeatable sections in declaration order.
func (s *Schema) Repeatable() []*Section {
	return s.filter(true)
}

func (s *Schema) filter(repeatable bool) []*Section {
	var out []*Section
	for _, sec := range s.sections {
		if sec.repeatable == repeatable {
			out = append(out, sec)
		}
	}
	return out
}

// SameWidth returns the width shared by every section. ok is false if the
// widths differ or the schema has no sections.
func (s *Schema) SameWidth() (width int, ok bool) {
	if len(s.sections) == 0 {
		return 0, false
	}
	width = s.sections[0].Width()
	for _, sec := range s.sections[1:] {
		if sec.Width() != width {
			return 0, false
		}
	}
	return width, true
}

// widths maps each section to its width.
func (s *Schema) widths() map[string]int {
	m := make(map[string]int, len(s.sections))
	for _, sec := range s.sections {
		m[sec.name] = sec.Width()
	}
	return m
}

// repeatKey is the record set key of the n-th run of a repeatable section.
func (s *Schema) repeatKey(sec *Section, n int) string {
	return sec.name + s.opts.RepeatMarker + strconv.Itoa(n)
}

// repeatRun reports the run number encoded in key when key is a repeat key
// of sec.
func (s *Schema) repeatRun(sec *Section, key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, sec.name+s.opts.RepeatMarker)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || strconv.Itoa(n) != rest {
		return 0, false
	}
	return n, true
}

// classify returns the first section that accepts line, or the first section
// when none does. It is used for diagnostics only.
func (s *Schema) classify(line string) *Section {
	for _, sec := range s.sections {
		if sec.Match(line) {
			return sec
		}
	}
	if len(s.sections) == 0 {
		return nil
	}
	return s.sections[0]
}
