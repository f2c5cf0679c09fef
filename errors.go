package flatfile

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrReservedName indicates a section was declared with a reserved name.
	ErrReservedName = errors.New("flatfile: reserved section name")

	// ErrDuplicateSection indicates two sections of a schema share a name.
	ErrDuplicateSection = errors.New("flatfile: duplicate section name")

	// ErrDuplicateColumn indicates two non-spacer columns of a section share a name.
	ErrDuplicateColumn = errors.New("flatfile: duplicate column name")

	// ErrTemplateNotFound indicates a section referenced an unknown template.
	ErrTemplateNotFound = errors.New("flatfile: template not found")

	// ErrInvalidAlignment indicates an alignment other than left or right.
	ErrInvalidAlignment = errors.New("flatfile: alignment must be right or left")

	// ErrInvalidPadding indicates a padding other than space or zero.
	ErrInvalidPadding = errors.New("flatfile: padding must be space or zero")

	// ErrInvalidWidth indicates a column width that is not positive.
	ErrInvalidWidth = errors.New("flatfile: column width must be positive")

	// ErrInvalidType indicates an unknown column type, or a custom column
	// without a codec.
	ErrInvalidType = errors.New("flatfile: invalid column type")

	// ErrInvalidCodepoint indicates a record that is not valid UTF-8 while
	// codepoint indices are in use.
	ErrInvalidCodepoint = errors.New("flatfile: invalid codepoint")

	// ErrSchemaNotFound indicates a registry lookup for an unknown name.
	ErrSchemaNotFound = errors.New("flatfile: schema not found")
)

// A SchemaError describes an invalid schema declaration.
type SchemaError struct {
	Name string // the section, template or column being declared
	Err  error
}

func (e *SchemaError) Error() string {
	return e.Err.Error() + ": " + strconv.Quote(e.Name)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// A ParseError describes a raw field that could not be converted to the type
// of its column.
type ParseError struct {
	Column string // name of the column
	Value  string // the raw value
	Type   Type   // type the value could not be converted to
	Cause  error  // original error
}

func (e *ParseError) Error() string {
	s := "flatfile: cannot parse " + strconv.Quote(e.Value) + " in column " + strconv.Quote(e.Column) + " as " + string(e.Type)
	if e.Cause != nil {
		return s + ": " + e.Cause.Error()
	}
	return s
}

func (e *ParseError) Unwrap() error { return e.Cause }

// A FormattedStringExceedsLengthError describes a rendered value that is longer
// than its column and the column does not truncate.
type FormattedStringExceedsLengthError struct {
	Column string
	Value  string // the rendered value
	Width  int
}

func (e *FormattedStringExceedsLengthError) Error() string {
	return fmt.Sprintf("flatfile: formatted value %q in column %q exceeds the allowed length of %d characters", e.Value, e.Column, e.Width)
}

// A MarshalTypeError describes a value that cannot be rendered as the type of
// its column.
type MarshalTypeError struct {
	Column string
	Value  any
	Type   Type
}

func (e *MarshalTypeError) Error() string {
	return fmt.Sprintf("flatfile: cannot format %T value %v in column %q as %s", e.Value, e.Value, e.Column, e.Type)
}

// An InvalidMarshalError describes an invalid argument passed to Encode.
type InvalidMarshalError struct {
	Key   string // the offending key, empty when the whole value is invalid
	Value any
}

func (e *InvalidMarshalError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("flatfile: cannot encode %T", e.Value)
	}
	return fmt.Sprintf("flatfile: cannot encode %T under key %q", e.Value, e.Key)
}

// A RequiredSectionEmptyError is returned by Encode when a non-optional
// section has no rows.
type RequiredSectionEmptyError struct {
	Section string
}

func (e *RequiredSectionEmptyError) Error() string {
	return "flatfile: required section " + strconv.Quote(e.Section) + " was empty"
}

// A RequiredSectionNotFoundError is returned by Decode when a non-optional
// section matched no record.
type RequiredSectionNotFoundError struct {
	Section string
}

func (e *RequiredSectionNotFoundError) Error() string {
	return "flatfile: required section " + strconv.Quote(e.Section) + " was not found"
}

// A LineWrongSizeError describes a record whose length does not match its
// section, or, in byte mode, a block that is short or not followed by a line
// terminator.
type LineWrongSizeError struct {
	Line    int    // 1-based record number
	Section string // the matched section, if any
	Width   int    // the expected width
	Length  int    // the actual length
	Reason  string
	Dump    string // best effort field by field rendering of the record
}

func (e *LineWrongSizeError) Error() string {
	s := fmt.Sprintf("flatfile: line %d", e.Line)
	if e.Section != "" {
		s += " (section " + strconv.Quote(e.Section) + ")"
	}
	s += fmt.Sprintf(" has length %d, expected %d", e.Length, e.Width)
	if e.Reason != "" {
		s += ": " + e.Reason
	}
	if e.Dump != "" {
		s += " [" + e.Dump + "]"
	}
	return s
}

// A SectionsNotSameLengthError is returned by Decode in byte mode when the
// sections of the schema do not share one width.
type SectionsNotSameLengthError struct {
	Widths map[string]int
}

func (e *SectionsNotSameLengthError) Error() string {
	return fmt.Sprintf("flatfile: all sections must have the same width to decode by bytes, have %v", e.Widths)
}

// An UnmatchedRecordError is returned by Decode when a record matches no
// section and unmatched records are disallowed.
type UnmatchedRecordError struct {
	Line   int
	Record string
}

func (e *UnmatchedRecordError) Error() string {
	return fmt.Sprintf("flatfile: line %d matched no section: %q", e.Line, e.Record)
}
