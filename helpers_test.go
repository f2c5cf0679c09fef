package flatfile

import (
	"errors"
	"strings"
	"testing"
)

func mustSection(tb testing.TB, s *Schema, name string, opts SectionOptions) *Section {
	tb.Helper()
	sec, err := s.AddSection(name, opts)
	if err != nil {
		tb.Fatalf("AddSection(%q) err %v", name, err)
	}
	return sec
}

func mustColumn(tb testing.TB, sec *Section, name string, width int, opts ColumnOptions) *Column {
	tb.Helper()
	c, err := sec.AddColumn(name, width, opts)
	if err != nil {
		tb.Fatalf("AddColumn(%q) err %v", name, err)
	}
	return c
}

func mustNewColumn(tb testing.TB, name string, width int, opts ColumnOptions) *Column {
	tb.Helper()
	c, err := NewColumn(name, width, opts)
	if err != nil {
		tb.Fatalf("NewColumn(%q) err %v", name, err)
	}
	return c
}

func prefix(p string) Trap {
	return func(line string) bool { return strings.HasPrefix(line, p) }
}

// boundarySchema is a header, body and footer layout. Header and footer lines
// start with HEAD and FOOT, every other line is body.
func boundarySchema(tb testing.TB, opts Options) *Schema {
	tb.Helper()
	s := New(opts)

	header := mustSection(tb, s, "header", SectionOptions{Trap: prefix("HEAD")})
	mustColumn(tb, header, "type", 4, ColumnOptions{})
	mustColumn(tb, header, "file_id", 10, ColumnOptions{})

	body := mustSection(tb, s, "body", SectionOptions{Trap: func(line string) bool {
		return !strings.HasPrefix(line, "HEAD") && !strings.HasPrefix(line, "FOOT")
	}})
	mustColumn(tb, body, "first", 10, ColumnOptions{})
	mustColumn(tb, body, "last", 10, ColumnOptions{})

	footer := mustSection(tb, s, "footer", SectionOptions{Trap: prefix("FOOT")})
	mustColumn(tb, footer, "type", 4, ColumnOptions{})
	mustColumn(tb, footer, "file_id", 10, ColumnOptions{})

	return s
}

const boundaryText = "HEAD         1\n      Paul    Hewson\n      Dave     Evans\nFOOT         1"

var boundaryRecords = RecordSet{
	"header": {{"type": "HEAD", "file_id": "1"}},
	"body": {
		{"first": "Paul", "last": "Hewson"},
		{"first": "Dave", "last": "Evans"},
	},
	"footer": {{"type": "FOOT", "file_id": "1"}},
}

// upperCodec is a FieldCodec that stores values upper case and fails on
// values containing "!".
type upperCodec struct{}

func (upperCodec) FormatField(value any, width int) (string, error) {
	s := toString(value)
	if strings.Contains(s, "!") {
		return "", errors.New("upperCodec: invalid value")
	}
	return strings.ToUpper(s), nil
}

func (upperCodec) ParseField(raw string) (any, error) {
	if strings.Contains(raw, "!") {
		return nil, errors.New("upperCodec: invalid value")
	}
	return strings.ToLower(raw), nil
}

// stringer is a fmt.Stringer used as an encodable value.
type stringer string

func (s stringer) String() string { return string(s) }
