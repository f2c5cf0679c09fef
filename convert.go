package flatfile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// leadingInt decodes the base 10 integer at the start of s, ignoring leading
// whitespace. ok is false if s does not start with a number.
func leadingInt(s string) (n int64, ok bool, err error) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := scanDigits(s[i:])
	if digits == 0 {
		return 0, false, nil
	}
	n, err = strconv.ParseInt(s[:i+digits], 10, 64)
	return n, err == nil, err
}

// leadingFloat decodes the decimal number at the start of s, ignoring leading
// whitespace. ok is false if s does not start with a number.
func leadingFloat(s string) (f float64, ok bool, err error) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := scanDigits(s[i:])
	i += intDigits
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		fracDigits = scanDigits(s[i+1:])
		if fracDigits > 0 {
			i += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return 0, false, nil
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if d := scanDigits(s[j:]); d > 0 {
			i = j + d
		}
	}
	f, err = strconv.ParseFloat(s[:i], 64)
	return f, err == nil, err
}

func scanDigits(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// formatFloat renders f in its shortest decimal form, always carrying a
// fractional part.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}

// toFloat converts v to a float. Strings are read leniently: text without a
// leading number is zero.
func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case nil:
		return 0, true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, _, _ := leadingFloat(v)
		return f, true
	case []byte:
		f, _, _ := leadingFloat(string(v))
		return f, true
	case fmt.Stringer:
		f, _, _ := leadingFloat(v.String())
		return f, true
	}
	return 0, false
}

// toInteger renders v as an integer. Integral floats lose their fraction,
// anything else renders like toString.
func toInteger(v any) string {
	switch v := v.(type) {
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<63 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return toInteger(float64(v))
	}
	return toString(v)
}

func toString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05 -0700")
	case *time.Time:
		if v == nil {
			return ""
		}
		return toString(*v)
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}
