package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func TestNormalize_Whitespace(t *testing.T) {
	raw := "  Hello\r\n\r\nWorld \t x\x00y  "
	n := Normalize(raw)

	assert.Equal(t, "Hello\n\nWorld xy", n.Text)
	assert.Equal(t, raw, n.Original)

	start, end, err := n.OriginalSpan(7, 12)
	require.NoError(t, err)
	assert.Equal(t, "World", raw[start:end])

	// The stripped NUL sits between x and y in the source.
	start, end, err = n.OriginalSpan(13, 15)
	require.NoError(t, err)
	assert.Equal(t, "x\x00y", raw[start:end])
}

func TestNormalize_LineBreaks(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "single newline", raw: "a\nb", want: "a\nb"},
		{name: "newline with spaces", raw: "a  \n  b", want: "a\nb"},
		{name: "paragraph", raw: "a\n\n\n\nb", want: "a\n\nb"},
		{name: "crlf paragraph", raw: "a\r\n\r\nb", want: "a\n\nb"},
		{name: "tabs", raw: "a\t\tb", want: "a b"},
		{name: "only whitespace", raw: " \n\t\r\n ", want: ""},
		{name: "empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw).Text)
		})
	}
}

func TestNormalize_ComposesNFC(t *testing.T) {
	raw := "Cafe\u0301 visit"
	n := Normalize(raw)

	assert.Equal(t, "Caf\u00e9 visit", n.Text)
	assert.True(t, norm.NFC.IsNormalString(n.Text))

	start, end, err := n.OriginalSpan(0, len("Caf\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, len("Cafe\u0301"), end)
}

func TestNormalize_InvalidUTF8(t *testing.T) {
	n := Normalize("ab\xffcd")
	assert.Equal(t, "ab\uFFFDcd", n.Text)
}

func TestNormalize_DropsFormatCharacters(t *testing.T) {
	n := Normalize("aspi\u200brin")
	assert.Equal(t, "aspirin", n.Text)

	start, end, err := n.OriginalSpan(0, n.Len())
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	assert.Equal(t, len("aspi\u200brin"), end)
}

func TestNormalized_OriginalSpan_OutOfRange(t *testing.T) {
	n := Normalize("abc")

	_, _, err := n.OriginalSpan(2, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, _, err = n.OriginalSpan(0, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, _, err = Normalize("").OriginalSpan(0, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestNormalized_RoundTripsEveryWord(t *testing.T) {
	raw := "Patient  seen\ton 2024-01-05.\n\n\nPrescribed   metformin\r\nand aspirin."
	n := Normalize(raw)

	for _, word := range strings.Fields(n.Text) {
		idx := strings.Index(n.Text, word)
		require.GreaterOrEqual(t, idx, 0)

		start, end, err := n.OriginalSpan(idx, idx+len(word))
		require.NoError(t, err)
		assert.Equal(t, word, raw[start:end])
	}
}
