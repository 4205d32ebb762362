package chunker

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalized is report text after normalization together with the table that
// maps each normalized byte back to the source bytes it came from.
type Normalized struct {
	Text     string
	Original string

	srcStart []int
	srcEnd   []int
}

// Normalize canonicalizes raw report text.
//
// The text is composed to NFC, invalid UTF-8 is replaced with U+FFFD and
// control and format characters are removed. Whitespace runs collapse to a
// paragraph break ("\n\n") when they hold two or more line breaks, to "\n" for
// exactly one, and to a single space otherwise. Leading and trailing
// whitespace is trimmed.
func Normalize(raw string) *Normalized {
	b := &builder{
		out:      make([]byte, 0, len(raw)),
		srcStart: make([]int, 0, len(raw)),
		srcEnd:   make([]int, 0, len(raw)),
	}

	var it norm.Iter
	it.InitString(norm.NFC, raw)
	for !it.Done() {
		from := it.Pos()
		seg := it.Next()
		to := it.Pos()

		// Unchanged segments keep exact per-byte positions.
		exact := to-from == len(seg) && raw[from:to] == string(seg)
		for i := 0; i < len(seg); {
			r, size := utf8.DecodeRune(seg[i:])
			srcFrom, srcTo := from, to
			if exact {
				srcFrom, srcTo = from+i, from+i+size
			}
			b.add(r, srcFrom, srcTo)
			i += size
		}
	}

	return &Normalized{
		Text:     string(b.out),
		Original: raw,
		srcStart: b.srcStart,
		srcEnd:   b.srcEnd,
	}
}

// Len returns the normalized length in bytes.
func (n *Normalized) Len() int {
	return len(n.Text)
}

// OriginalSpan maps the normalized byte range [start, end) to the range of the
// original text it was produced from.
func (n *Normalized) OriginalSpan(start, end int) (int, int, error) {
	if start < 0 || end > len(n.Text) || start >= end {
		return 0, 0, fmt.Errorf("%w: [%d,%d) in %d bytes", ErrOutOfRange, start, end, len(n.Text))
	}
	return n.srcStart[start], n.srcEnd[end-1], nil
}

type builder struct {
	out      []byte
	srcStart []int
	srcEnd   []int

	// pending whitespace run
	inSpace    bool
	newlines   int
	prevCR     bool
	spaceStart int
	spaceEnd   int
}

func (b *builder) add(r rune, srcFrom, srcTo int) {
	if unicode.IsSpace(r) {
		if !b.inSpace {
			b.inSpace = true
			b.newlines = 0
			b.spaceStart = srcFrom
		}
		switch {
		case r == '\n':
			if !b.prevCR {
				b.newlines++
			}
		case r == '\r', r == '\u2028', r == '\u2029':
			b.newlines++
		}
		b.prevCR = r == '\r'
		b.spaceEnd = srcTo
		return
	}
	b.prevCR = false

	if isStripped(r) {
		return
	}

	if b.inSpace {
		b.inSpace = false
		// Leading whitespace is dropped.
		if len(b.out) > 0 {
			b.emit(separator(b.newlines), b.spaceStart, b.spaceEnd)
		}
	}

	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	b.emit(string(buf[:n]), srcFrom, srcTo)
}

func (b *builder) emit(s string, srcFrom, srcTo int) {
	b.out = append(b.out, s...)
	for range len(s) {
		b.srcStart = append(b.srcStart, srcFrom)
		b.srcEnd = append(b.srcEnd, srcTo)
	}
}

func separator(newlines int) string {
	switch {
	case newlines >= 2:
		return "\n\n"
	case newlines == 1:
		return "\n"
	default:
		return " "
	}
}

func isStripped(r rune) bool {
	return unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Cf, r)
}
