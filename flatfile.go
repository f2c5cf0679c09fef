// Package flatfile provides schema driven encoding and decoding for fixed-width
// formatted files.
//
// A Schema is an ordered list of Sections. Each Section owns an ordered list of
// Columns and a Trap that decides which raw records belong to it. A Decoder
// routes every record of its input to a Section and collects the decoded rows
// in a RecordSet. An Encoder walks the same Schema and renders a RecordSet back
// into exact positional text.
package flatfile

// Row is a single decoded record. Keys are column names, values are typed per
// the column's Type.
type Row map[string]any

// RecordSet maps a section name to the rows decoded for it, in input order.
//
// Repeatable sections are stored under synthesized keys of the form
// <name><marker><n>, one key per run of consecutive records.
type RecordSet map[string][]Row

// Trap decides whether a raw record belongs to a section. A nil Trap accepts
// every record.
type Trap func(line string) bool

// FieldCodec is implemented by format specific column types.
//
// FormatField is provided the column width and should return the rendered
// value. If the rendered value is longer than the width it is truncated or
// rejected according to the column's options. If it is shorter, it will be
// padded.
//
// ParseField is passed the raw field with surrounding whitespace removed and
// should be able to decode the form generated by FormatField.
type FieldCodec interface {
	FormatField(value any, width int) (string, error)
	ParseField(raw string) (any, error)
}
