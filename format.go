package flatfile

// Alignment is the side of a column its value is anchored to. Padding is
// added on the opposite side.
type Alignment string

const (
	Right Alignment = "right"
	Left  Alignment = "left"
)

func (a Alignment) Valid() bool {
	switch a {
	case Right, Left:
		return true
	default:
		return false
	}
}

// Padding is the character used to fill a column to its width.
type Padding string

const (
	Space Padding = "space"
	Zero  Padding = "zero"
)

func (p Padding) Valid() bool {
	switch p {
	case Space, Zero:
		return true
	default:
		return false
	}
}

func (p Padding) char() byte {
	if p == Zero {
		return '0'
	}
	return ' '
}

// Type is the value type of a column.
type Type string

const (
	String                  Type = "string"
	Integer                 Type = "integer"
	Float                   Type = "float"
	Money                   Type = "money"
	MoneyWithImpliedDecimal Type = "money_with_implied_decimal"
	Date                    Type = "date"

	// Custom columns delegate to the FieldCodec set in their options.
	Custom Type = "custom"
)

func (t Type) Valid() bool {
	switch t {
	case String, Integer, Float, Money, MoneyWithImpliedDecimal, Date, Custom:
		return true
	default:
		return false
	}
}

const (
	// Spacer is the reserved name of filler columns. Spacer columns occupy
	// width but are never part of a decoded Row. It cannot be used as a section
	// name.
	Spacer = "spacer"

	defaultRepeatMarker = "_"
	defaultDateFormat   = "%Y-%m-%d"
)

// ColumnOptions configures a column. Zero values are unset and are filled from
// the enclosing section and schema defaults.
type ColumnOptions struct {
	Type    Type
	Align   Alignment
	Padding Padding

	// Truncate cuts overflowing values to the column width instead of
	// failing. Left aligned columns keep the leftmost characters, right
	// aligned columns keep the rightmost. A true section default applies to
	// every column of the section.
	Truncate bool

	// Precision is the number of decimals rendered for float columns that
	// have no Format.
	Precision int

	// Format is a strftime layout for date columns or a printf verb for float
	// columns.
	Format string

	// Strict rejects non-numeric text in numeric columns instead of decoding
	// the leading numeric prefix (or zero). A true section default applies to
	// every column of the section.
	Strict bool

	// Codec renders and parses Custom columns.
	Codec FieldCodec
}

// under fills the unset fields of o from defaults. Truncate and Strict
// defaults can only switch the option on; a column cannot turn off a
// section or template default.
func (o ColumnOptions) under(defaults ColumnOptions) ColumnOptions {
	if o.Type == "" {
		o.Type = defaults.Type
	}
	if o.Align == "" {
		o.Align = defaults.Align
	}
	if o.Padding == "" {
		o.Padding = defaults.Padding
	}
	if o.Precision == 0 {
		o.Precision = defaults.Precision
	}
	if o.Format == "" {
		o.Format = defaults.Format
	}
	if o.Codec == nil {
		o.Codec = defaults.Codec
	}
	o.Truncate = o.Truncate || defaults.Truncate
	o.Strict = o.Strict || defaults.Strict
	return o
}

// SectionOptions configures a section or a template.
type SectionOptions struct {
	Trap       Trap
	Optional   bool
	Repeatable bool

	// Defaults are applied to every column added to the section.
	Defaults ColumnOptions
}

// Options configures a Schema.
type Options struct {
	// Align is the default alignment of every column. Right when unset.
	Align Alignment

	// ByBytes selects byte mode decoding: fixed size blocks are read instead
	// of lines. Every section must have the same width.
	ByBytes bool

	// RepeatMarker separates the section name from the run counter in the
	// keys of repeated section instances. "_" when unset.
	RepeatMarker string
}
