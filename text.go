package flatfile

import (
	"unicode/utf8"
)

// text is a record or field value that is measured and sliced either in bytes
// or in UTF-8 codepoints.
type text struct {
	data string

	// Set when codepoint indices are in use and data holds a multibyte
	// character. codepointIndices[n] is the byte offset of the n-th codepoint.
	codepointIndices []int
}

func newText(data string, useCodepointIndices bool) (text, error) {
	t := text{data: data}
	if !useCodepointIndices {
		return t, nil
	}

	i := firstMultiByteChar(data)
	if i == len(data) {
		return t, nil
	}

	indices := make([]int, i, len(data))
	for j := range indices {
		indices[j] = j
	}
	for i < len(data) {
		r, size := utf8.DecodeRuneInString(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return text{}, ErrInvalidCodepoint
		}
		indices = append(indices, i)
		i += size
	}
	t.codepointIndices = indices
	return t, nil
}

func (t text) len() int {
	if t.codepointIndices == nil {
		return len(t.data)
	}
	return len(t.codepointIndices)
}

func (t text) byteOffset(n int) int {
	if t.codepointIndices == nil {
		return min(n, len(t.data))
	}
	if n >= len(t.codepointIndices) {
		return len(t.data)
	}
	return t.codepointIndices[n]
}

// slice returns the characters in [start, end). Bounds past the end of the
// text are clipped, so a short record yields short or empty fields.
func (t text) slice(start, end int) string {
	start = max(start, 0)
	if start >= t.len() || end <= start {
		return ""
	}
	if end > t.len() {
		end = t.len()
	}
	return t.data[t.byteOffset(start):t.byteOffset(end)]
}

// head keeps the first n characters.
func (t text) head(n int) string {
	return t.slice(0, n)
}

// tail keeps the last n characters.
func (t text) tail(n int) string {
	return t.slice(t.len()-n, t.len())
}

// firstMultiByteChar returns the index of the first byte that starts a
// multibyte character, or len(data) if there is none.
func firstMultiByteChar(data string) int {
	for i := 0; i < len(data); i++ {
		if data[i]&0x80 == 0x80 {
			return i
		}
	}
	return len(data)
}
