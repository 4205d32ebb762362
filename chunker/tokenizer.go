package chunker

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used when none is given.
const DefaultEncoding = "cl100k_base"

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int
	End   int
}

// Tokenizer splits text into tokens. The returned spans tile the text: the
// first starts at 0, each starts where the previous ended and the last ends at
// len(text). Span boundaries always fall on character boundaries.
// Implementations must be safe for concurrent use.
type Tokenizer interface {
	Tokenize(text string) []Span
}

// WordTokenizer treats each word together with the whitespace before it as
// one token. It needs no model files.
type WordTokenizer struct{}

// NewWordTokenizer creates a whitespace word tokenizer.
func NewWordTokenizer() Tokenizer {
	return WordTokenizer{}
}

func (WordTokenizer) Tokenize(text string) []Span {
	spans := make([]Span, 0, len(text)/5+1)
	start := 0
	prevSpace := true
	for i, r := range text {
		space := unicode.IsSpace(r)
		if space && !prevSpace {
			spans = append(spans, Span{Start: start, End: i})
			start = i
		}
		prevSpace = space
	}
	if start < len(text) {
		spans = append(spans, Span{Start: start, End: len(text)})
	}
	return spans
}

// BPETokenizer counts tokens the way OpenAI-style models do.
type BPETokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewBPETokenizer loads the named tiktoken encoding, e.g. "cl100k_base".
func NewBPETokenizer(encoding string) (Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTokenizer, encoding, err)
	}
	return &BPETokenizer{enc: enc}, nil
}

// Tokenize encodes text and converts token ids back into byte spans. Tokens
// that end inside a multi-byte character are merged with their successor.
func (t *BPETokenizer) Tokenize(text string) []Span {
	ids := t.enc.Encode(text, nil, nil)
	spans := make([]Span, 0, len(ids))
	start, pos := 0, 0
	for _, id := range ids {
		pos += len(t.enc.Decode([]int{id}))
		if pos > len(text) {
			break
		}
		if pos < len(text) && !utf8.RuneStart(text[pos]) {
			continue
		}
		if pos > start {
			spans = append(spans, Span{Start: start, End: pos})
			start = pos
		}
	}
	if start < len(text) {
		spans = append(spans, Span{Start: start, End: len(text)})
	}
	return spans
}

// NewTokenizer resolves a tokenizer by name: "word" (or empty) selects the
// word tokenizer, "bpe" the default BPE encoding, and any other name is
// loaded as a tiktoken encoding.
func NewTokenizer(name string) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "word":
		return NewWordTokenizer(), nil
	case "bpe":
		return NewBPETokenizer(DefaultEncoding)
	}
	return NewBPETokenizer(name)
}
