package flatfile

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// FitFloat is a FieldCodec for float columns that should use every available
// character: the value is rendered with as many decimals as fit in the
// column width.
type FitFloat struct{}

func (FitFloat) FormatField(value any, width int) (string, error) {
	f, ok := toFloat(value)
	if !ok {
		return "", errors.New("value is not a number")
	}

	// l is the length of the integer part plus the decimal point.
	var l int
	switch {
	case f >= 1:
		l = int(math.Log10(f)) + 2
	case f <= -1:
		l = int(math.Log10(math.Abs(f))) + 3
	case f < 0:
		l = 3
	default:
		l = 2
	}

	if l-1 > width {
		return "", errors.New("formatted float with 0 precision longer than field width")
	}

	// Rounding can carry into a new integer digit.
	for prec := max(width-l, 0); ; prec-- {
		s := strconv.FormatFloat(f, 'f', prec, 64)
		if len(s) <= width {
			return s, nil
		}
		if prec == 0 {
			return "", errors.New("formatted float with 0 precision longer than field width")
		}
	}
}

func (FitFloat) ParseField(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return float64(0), nil
	}
	return strconv.ParseFloat(raw, 64)
}
