package flatfile

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
)

// Unmarshal decodes fixed-width data according to schema.
func Unmarshal(schema *Schema, data []byte) (RecordSet, error) {
	return NewDecoder(schema, bytes.NewReader(data)).Decode()
}

// A Decoder reads and decodes fixed-width records from an input stream.
type Decoder struct {
	schema              *Schema
	data                *bufio.Reader
	enc                 encoding.Encoding
	useCodepointIndices bool
	disallowUnmatched   bool
	logger              *slog.Logger
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(schema *Schema, r io.Reader) *Decoder {
	return &Decoder{
		schema: schema,
		data:   bufio.NewReader(r),
		logger: slog.Default(),
	}
}

// SetEncoding declares the character encoding of the input. Decoded text is
// converted to UTF-8. In line mode whole lines are converted before they are
// matched and measured; in byte mode records are matched and measured on raw
// bytes and each field is converted after it is sliced.
func (d *Decoder) SetEncoding(enc encoding.Encoding) {
	d.enc = enc
}

// SetUseCodepointIndices configures whether column widths are measured in
// bytes (the default) or in UTF-8 codepoints. It applies to line mode only;
// byte mode always counts bytes.
func (d *Decoder) SetUseCodepointIndices(use bool) {
	d.useCodepointIndices = use
}

// SetLogger sets the logger used for diagnostics. Nil restores slog.Default.
func (d *Decoder) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	d.logger = logger
}

// DisallowUnmatched causes Decode to return an UnmatchedRecordError when a
// record matches no section. By default such records are skipped.
func (d *Decoder) DisallowUnmatched() {
	d.disallowUnmatched = true
}

// Decode reads until the end of its input and returns the decoded records.
//
// Every non-optional section must match at least one record, otherwise a
// RequiredSectionNotFoundError is returned. No partial record set is returned
// on error.
func (d *Decoder) Decode() (RecordSet, error) {
	if d.schema.opts.ByBytes {
		return d.decodeBytes()
	}
	return d.decodeLines()
}

func (d *Decoder) decodeLines() (RecordSet, error) {
	transform := d.transformer()
	m := newMatcher(d.schema, d.logger)
	for n := 1; ; n++ {
		line, err := d.data.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "flatfile: read")
		}
		eof := err == io.EOF

		line = chomp(line)
		if line != "" {
			if err := d.decodeLine(m, n, line, transform); err != nil {
				return nil, err
			}
		}
		if eof {
			break
		}
	}
	return m.finish()
}

func (d *Decoder) decodeLine(m *matcher, n int, line string, transform func(string) (string, error)) error {
	if transform != nil {
		var err error
		if line, err = transform(line); err != nil {
			return errors.Wrapf(err, "flatfile: line %d", n)
		}
	}
	t, err := newText(line, d.useCodepointIndices)
	if err != nil {
		return errors.Wrapf(err, "flatfile: line %d", n)
	}

	sec, key := m.match(line)
	if sec == nil {
		return d.unmatched(n, line)
	}
	if t.len() != sec.Width() {
		return &LineWrongSizeError{
			Line:    n,
			Section: sec.name,
			Width:   sec.Width(),
			Length:  t.len(),
			Dump:    sec.dump(t),
		}
	}

	row, err := sec.decodeRow(t, nil)
	if err != nil {
		return errors.Wrapf(err, "flatfile: line %d", n)
	}
	m.add(sec, key, row)
	return nil
}

func (d *Decoder) decodeBytes() (RecordSet, error) {
	if len(d.schema.sections) == 0 {
		return RecordSet{}, nil
	}
	width, ok := d.schema.SameWidth()
	if !ok {
		return nil, &SectionsNotSameLengthError{Widths: d.schema.widths()}
	}

	m := newMatcher(d.schema, d.logger)
	if width == 0 {
		return m.finish()
	}

	transform := d.transformer()
	block := make([]byte, width)
	for n := 1; ; n++ {
		read, err := io.ReadFull(d.data, block)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return nil, d.wrongSize(n, block[:read], width, "record is shorter than the section width")
		}
		if err != nil {
			return nil, errors.Wrap(err, "flatfile: read")
		}
		record := string(block)

		ok, err := d.consumeNewline()
		if err != nil {
			return nil, errors.Wrap(err, "flatfile: read")
		}
		if !ok {
			return nil, d.wrongSize(n, block, width, "line terminator was not at the end of the record")
		}

		sec, key := m.match(record)
		if sec == nil {
			if err := d.unmatched(n, record); err != nil {
				return nil, err
			}
			continue
		}
		row, err := sec.decodeRow(text{data: record}, transform)
		if err != nil {
			return nil, errors.Wrapf(err, "flatfile: line %d", n)
		}
		m.add(sec, key, row)
	}
	return m.finish()
}

// transformer converts raw text to UTF-8 according to the declared encoding.
// It is nil when no encoding is set.
func (d *Decoder) transformer() func(string) (string, error) {
	if d.enc == nil {
		return nil
	}
	return d.enc.NewDecoder().String
}

// consumeNewline reads the terminator following a record: LF, CR LF or the
// end of the input. It reports false if anything else follows.
func (d *Decoder) consumeNewline() (bool, error) {
	b, err := d.data.ReadByte()
	if err == io.EOF {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	switch b {
	case '\n':
		return true, nil
	case '\r':
		next, err := d.data.ReadByte()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return next == '\n', nil
	}
	return false, nil
}

func (d *Decoder) wrongSize(n int, record []byte, width int, reason string) error {
	e := &LineWrongSizeError{
		Line:   n,
		Width:  width,
		Length: len(record),
		Reason: reason,
	}
	if sec := d.schema.classify(string(record)); sec != nil {
		e.Section = sec.name
		e.Dump = sec.dump(text{data: string(record)})
	}
	return e
}

func (d *Decoder) unmatched(n int, record string) error {
	if d.disallowUnmatched {
		return &UnmatchedRecordError{Line: n, Record: record}
	}
	d.logger.Debug("flatfile: record matched no section, skipping", "line", n)
	return nil
}

// chomp removes a trailing line terminator.
func chomp(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// matcher assigns records to sections.
//
// It keeps a pointer into the non-repeatable sections. A record is tested
// against, in order: the section at the pointer; the repeatable sections; the
// sections after the pointer, advancing the pointer on a match; and finally
// the sections before the pointer, without moving it.
//
// Consecutive records of a repeatable section form a run. Each run is stored
// under its own key, name + repeat marker + run number.
type matcher struct {
	schema     *Schema
	sequential []*Section
	repeatable []*Section
	pos        int

	run  *Section
	runs map[*Section]int
	seen map[*Section]int

	set    RecordSet
	logger *slog.Logger
}

func newMatcher(schema *Schema, logger *slog.Logger) *matcher {
	return &matcher{
		schema:     schema,
		sequential: schema.Sequential(),
		repeatable: schema.Repeatable(),
		runs:       make(map[*Section]int),
		seen:       make(map[*Section]int),
		set:        make(RecordSet),
		logger:     logger,
	}
}

// match returns the section line belongs to and the key its row is stored
// under. sec is nil if no section accepts line.
func (m *matcher) match(line string) (*Section, string) {
	if m.pos < len(m.sequential) && m.sequential[m.pos].Match(line) {
		return m.enter(m.sequential[m.pos])
	}
	for _, sec := range m.repeatable {
		if sec.Match(line) {
			return m.enterRun(sec)
		}
	}
	for i := m.pos + 1; i < len(m.sequential); i++ {
		if m.sequential[i].Match(line) {
			m.pos = i
			return m.enter(m.sequential[i])
		}
	}
	for _, sec := range m.sequential[:min(m.pos, len(m.sequential))] {
		if sec.Match(line) {
			return m.enter(sec)
		}
	}
	return nil, ""
}

func (m *matcher) enter(sec *Section) (*Section, string) {
	m.run = nil
	return sec, sec.name
}

func (m *matcher) enterRun(sec *Section) (*Section, string) {
	if m.run != sec {
		m.runs[sec]++
		m.run = sec
		m.logger.Debug("flatfile: repeated section run", "section", sec.name, "run", m.runs[sec])
	}
	return sec, m.schema.repeatKey(sec, m.runs[sec])
}

func (m *matcher) add(sec *Section, key string, row Row) {
	m.set[key] = append(m.set[key], row)
	m.seen[sec]++
}

func (m *matcher) finish() (RecordSet, error) {
	for _, sec := range m.schema.sections {
		if !sec.optional && m.seen[sec] == 0 {
			return nil, &RequiredSectionNotFoundError{Section: sec.name}
		}
	}
	return m.set, nil
}
