package flatfile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/pkg/errors"
)

// Column is a single fixed width field. Columns are immutable once created
// and may be shared by any number of decoders and encoders.
type Column struct {
	name  string
	width int
	opts  ColumnOptions
}

// NewColumn validates opts and returns a column. Unset options default to a
// right aligned, space padded string column.
func NewColumn(name string, width int, opts ColumnOptions) (*Column, error) {
	if width <= 0 {
		return nil, &SchemaError{Name: name, Err: ErrInvalidWidth}
	}
	if opts.Type == "" {
		opts.Type = String
		if opts.Codec != nil {
			opts.Type = Custom
		}
	}
	if !opts.Type.Valid() || (opts.Type == Custom && opts.Codec == nil) {
		return nil, &SchemaError{Name: name, Err: ErrInvalidType}
	}
	if opts.Align == "" {
		opts.Align = Right
	}
	if !opts.Align.Valid() {
		return nil, &SchemaError{Name: name, Err: ErrInvalidAlignment}
	}
	if opts.Padding == "" {
		opts.Padding = Space
	}
	if !opts.Padding.Valid() {
		return nil, &SchemaError{Name: name, Err: ErrInvalidPadding}
	}
	return &Column{name: name, width: width, opts: opts}, nil
}

func (c *Column) Name() string { return c.name }

func (c *Column) Width() int { return c.width }

func (c *Column) Type() Type { return c.opts.Type }

func (c *Column) Align() Alignment { return c.opts.Align }

func (c *Column) Padding() Padding { return c.opts.Padding }

func (c *Column) Options() ColumnOptions { return c.opts }

// IsSpacer reports whether the column is filler.
func (c *Column) IsSpacer() bool { return c.name == Spacer }

func (c *Column) dateFormat() string {
	if c.opts.Format == "" {
		return defaultDateFormat
	}
	return c.opts.Format
}

// Parse converts a raw field to the column's type.
//
// Numeric columns are lenient unless the column is strict: the leading numeric
// part of the field is decoded and a field without one decodes to zero.
func (c *Column) Parse(raw string) (any, error) {
	s := strings.TrimSpace(strings.TrimRight(raw, "\x00"))

	switch c.opts.Type {
	case Integer:
		if c.opts.Strict {
			if s == "" {
				return int64(0), nil
			}
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, c.parseError(raw, err)
			}
			return n, nil
		}
		n, _, err := leadingInt(s)
		if err != nil {
			return nil, c.parseError(raw, err)
		}
		return n, nil

	case Float, Money, MoneyWithImpliedDecimal:
		var f float64
		if c.opts.Strict {
			if s != "" {
				var err error
				if f, err = strconv.ParseFloat(s, 64); err != nil {
					return nil, c.parseError(raw, err)
				}
			}
		} else {
			var err error
			if f, _, err = leadingFloat(s); err != nil {
				return nil, c.parseError(raw, err)
			}
		}
		if c.opts.Type == MoneyWithImpliedDecimal {
			f /= 100
		}
		return f, nil

	case Date:
		t, err := strftime.Parse(c.dateFormat(), s)
		if err != nil {
			return nil, c.parseError(raw, err)
		}
		return t, nil

	case Custom:
		v, err := c.opts.Codec.ParseField(s)
		if err != nil {
			return nil, c.parseError(raw, err)
		}
		return v, nil
	}
	return s, nil
}

func (c *Column) parseError(raw string, cause error) error {
	return &ParseError{Column: c.name, Value: raw, Type: c.opts.Type, Cause: cause}
}

// Format renders value to exactly the column's width, measured in bytes.
func (c *Column) Format(value any) (string, error) {
	return c.format(value, false)
}

func (c *Column) format(value any, useCodepointIndices bool) (string, error) {
	s, err := c.render(value)
	if err != nil {
		return "", err
	}
	t, err := newText(s, useCodepointIndices)
	if err != nil {
		return "", &MarshalTypeError{Column: c.name, Value: value, Type: c.opts.Type}
	}

	n := t.len()
	if n > c.width {
		if !c.opts.Truncate {
			return "", &FormattedStringExceedsLengthError{Column: c.name, Value: s, Width: c.width}
		}
		if c.opts.Align == Left {
			s = t.head(c.width)
		} else {
			s = t.tail(c.width)
		}
		n = c.width
	}
	return c.pad(s, n), nil
}

// pad fills s, which is n characters long, to the column width. Zero padding
// converts the run of spaces on the padded side, never interior spaces.
func (c *Column) pad(s string, n int) string {
	fill := strings.Repeat(" ", c.width-n)
	if c.opts.Align == Left {
		s += fill
	} else {
		s = fill + s
	}
	if c.opts.Padding != Zero {
		return s
	}

	if c.opts.Align == Left {
		trimmed := strings.TrimRight(s, " ")
		return trimmed + strings.Repeat("0", len(s)-len(trimmed))
	}
	trimmed := strings.TrimLeft(s, " ")
	return strings.Repeat("0", len(s)-len(trimmed)) + trimmed
}

// fill is the content of a spacer column.
func (c *Column) fill() string {
	return strings.Repeat(string(c.opts.Padding.char()), c.width)
}

func (c *Column) render(value any) (string, error) {
	switch c.opts.Type {
	case Custom:
		s, err := c.opts.Codec.FormatField(value, c.width)
		if err != nil {
			return "", errors.Wrapf(err, "flatfile: column %q", c.name)
		}
		return s, nil

	case Date:
		switch v := value.(type) {
		case time.Time:
			return strftime.Format(c.dateFormat(), v), nil
		case *time.Time:
			if v == nil {
				return "", nil
			}
			return strftime.Format(c.dateFormat(), *v), nil
		case string:
			if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
				return strftime.Format(c.dateFormat(), t), nil
			}
			return v, nil
		}
		return toString(value), nil

	case Float, Money, MoneyWithImpliedDecimal:
		f, ok := toFloat(value)
		if !ok {
			return "", &MarshalTypeError{Column: c.name, Value: value, Type: c.opts.Type}
		}
		switch {
		case c.opts.Type == Money:
			return strconv.FormatFloat(f, 'f', 2, 64), nil
		case c.opts.Type == MoneyWithImpliedDecimal:
			return strconv.FormatInt(int64(math.Round(f*100)), 10), nil
		case c.opts.Format != "":
			return fmt.Sprintf(c.opts.Format, f), nil
		case c.opts.Precision > 0:
			return strconv.FormatFloat(f, 'f', c.opts.Precision, 64), nil
		}
		return formatFloat(f), nil

	case Integer:
		return toInteger(value), nil
	}
	return toString(value), nil
}
