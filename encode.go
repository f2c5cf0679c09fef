package flatfile

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
)

// Marshal returns the fixed-width encoding of v according to schema.
// See Encoder.Encode for the accepted shapes of v.
func Marshal(schema *Schema, v any) ([]byte, error) {
	buff := bytes.NewBuffer(nil)
	if err := NewEncoder(schema, buff).Encode(v); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// An Encoder writes fixed-width formatted records to an output stream.
type Encoder struct {
	schema              *Schema
	w                   io.Writer
	enc                 encoding.Encoding
	useCodepointIndices bool
	logger              *slog.Logger
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(schema *Schema, w io.Writer) *Encoder {
	return &Encoder{
		schema: schema,
		w:      w,
		logger: slog.Default(),
	}
}

// SetEncoding sets the character encoding of the output. The generated UTF-8
// text is converted before it is written.
func (e *Encoder) SetEncoding(enc encoding.Encoding) {
	e.enc = enc
}

// SetUseCodepointIndices configures whether column widths are measured in
// bytes (the default) or in UTF-8 codepoints.
func (e *Encoder) SetUseCodepointIndices(use bool) {
	e.useCodepointIndices = use
}

// SetLogger sets the logger used for diagnostics. Nil restores slog.Default.
func (e *Encoder) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// Encode writes the fixed-width encoding of v to the stream with a single
// write.
//
// v is a RecordSet, a map[string][]Row, or a map[string]any whose values are
// a single row (Row or map[string]any) or a list of rows ([]Row,
// []map[string]any or []any holding maps).
//
// Sections are written in schema order, one line per row, joined by "\n"
// with no trailing newline. A non-optional section without rows fails with a
// RequiredSectionEmptyError.
//
// Repeatable sections accept rows under their own name and under the keys
// produced by Decode. A group of adjacent repeatable sections is written run
// by run: the first run of every section in the group, then the second, up
// to the highest run number present. Missing run numbers are skipped.
//
// Every repeatable group is written at its declared position. Decode accepts
// repeatable records anywhere in the input, so a file whose runs sit outside
// that position is reordered by a decode and encode round trip.
func (e *Encoder) Encode(v any) error {
	data, err := normalize(v)
	if err != nil {
		return err
	}
	lines, err := e.lines(data)
	if err != nil {
		return err
	}

	out := strings.Join(lines, "\n")
	if e.enc != nil {
		if out, err = e.enc.NewEncoder().String(out); err != nil {
			return errors.Wrap(err, "flatfile: encode output")
		}
	}
	if _, err := io.WriteString(e.w, out); err != nil {
		return errors.Wrap(err, "flatfile: write")
	}
	e.logger.Debug("flatfile: encoded records", "lines", len(lines), "bytes", len(out))
	return nil
}

func (e *Encoder) lines(data map[string][]Row) ([]string, error) {
	var lines []string
	sections := e.schema.sections
	for i := 0; i < len(sections); i++ {
		sec := sections[i]
		if sec.repeatable {
			j := i + 1
			for j < len(sections) && sections[j].repeatable {
				j++
			}
			out, err := e.repeated(sections[i:j], data)
			if err != nil {
				return nil, err
			}
			lines = append(lines, out...)
			i = j - 1
			continue
		}

		rows := data[sec.name]
		if len(rows) == 0 {
			if !sec.optional {
				return nil, &RequiredSectionEmptyError{Section: sec.name}
			}
			continue
		}
		out, err := e.rows(sec, rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, out...)
	}
	return lines, nil
}

func (e *Encoder) repeated(group []*Section, data map[string][]Row) ([]string, error) {
	var lines []string
	written := make(map[*Section]int, len(group))
	write := func(sec *Section, rows []Row) error {
		out, err := e.rows(sec, rows)
		if err != nil {
			return err
		}
		lines = append(lines, out...)
		written[sec] += len(rows)
		return nil
	}

	for _, sec := range group {
		if err := write(sec, data[sec.name]); err != nil {
			return nil, err
		}
	}

	last := 0
	for key := range data {
		for _, sec := range group {
			if n, ok := e.schema.repeatRun(sec, key); ok && n > last {
				last = n
			}
		}
	}
	for n := 1; n <= last; n++ {
		for _, sec := range group {
			rows, ok := data[e.schema.repeatKey(sec, n)]
			if !ok {
				continue
			}
			if err := write(sec, rows); err != nil {
				return nil, err
			}
		}
	}

	for _, sec := range group {
		if !sec.optional && written[sec] == 0 {
			return nil, &RequiredSectionEmptyError{Section: sec.name}
		}
	}
	return lines, nil
}

func (e *Encoder) rows(sec *Section, rows []Row) ([]string, error) {
	out := make([]string, 0, len(rows))
	for i, row := range rows {
		line, err := sec.encodeRow(row, e.useCodepointIndices)
		if err != nil {
			return nil, errors.Wrapf(err, "flatfile: section %q row %d", sec.name, i+1)
		}
		out = append(out, line)
	}
	return out, nil
}

func normalize(v any) (map[string][]Row, error) {
	switch v := v.(type) {
	case nil:
		return map[string][]Row{}, nil
	case RecordSet:
		return v, nil
	case map[string][]Row:
		return v, nil
	case map[string]any:
		data := make(map[string][]Row, len(v))
		for key, value := range v {
			rows, ok := rowsOf(value)
			if !ok {
				return nil, &InvalidMarshalError{Key: key, Value: value}
			}
			data[key] = rows
		}
		return data, nil
	}
	return nil, &InvalidMarshalError{Value: v}
}

func rowsOf(v any) ([]Row, bool) {
	switch v := v.(type) {
	case nil:
		return nil, true
	case Row:
		return []Row{v}, true
	case map[string]any:
		return []Row{v}, true
	case []Row:
		return v, true
	case []map[string]any:
		rows := make([]Row, len(v))
		for i, row := range v {
			rows[i] = row
		}
		return rows, true
	case []any:
		rows := make([]Row, len(v))
		for i, item := range v {
			switch row := item.(type) {
			case Row:
				rows[i] = row
			case map[string]any:
				rows[i] = row
			default:
				return nil, false
			}
		}
		return rows, true
	}
	return nil, false
}
