package chunker

import (
	"fmt"
	"strings"
)

// DefaultLookback is how many tokens before the hard limit are searched for a
// natural break.
const DefaultLookback = 128

// Chunk is a contiguous, token-bounded slice of normalized report text.
type Chunk struct {
	// Index is the position of the chunk in the sequence, starting at 0.
	Index int

	// Text is the normalized text of the chunk, equal to Normalized.Text[Start:End].
	Text string

	// Start and End are byte offsets into the normalized text.
	Start int
	End   int

	// OrigStart and OrigEnd are byte offsets into the original text.
	OrigStart int
	OrigEnd   int

	// TokenStart and TokenEnd index the tokens of the normalized text.
	TokenStart int
	TokenEnd   int

	// OverlapTokens is the number of leading tokens shared with the previous chunk.
	OverlapTokens int

	// OverlapEnd is the normalized byte offset where the shared prefix ends.
	// It equals Start when there is no overlap.
	OverlapEnd int
}

// Len returns the chunk size in tokens.
func (c Chunk) Len() int {
	return c.TokenEnd - c.TokenStart
}

// Splitter splits normalized text into overlapping chunks of bounded token
// length. It is safe for concurrent use when its tokenizer is.
type Splitter struct {
	tokenizer Tokenizer
	lookback  int
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithLookback sets how many tokens before the limit are searched for a
// paragraph or sentence break. Zero always breaks at the limit.
func WithLookback(tokens int) Option {
	return func(s *Splitter) error {
		if tokens < 0 {
			return fmt.Errorf("%w: lookback must be >= 0, got %d", ErrInvalidLimits, tokens)
		}
		s.lookback = tokens
		return nil
	}
}

// NewSplitter creates a Splitter. A nil tokenizer selects the word tokenizer.
func NewSplitter(tokenizer Tokenizer, opts ...Option) (*Splitter, error) {
	if tokenizer == nil {
		tokenizer = NewWordTokenizer()
	}
	s := &Splitter{
		tokenizer: tokenizer,
		lookback:  DefaultLookback,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ValidateLimits checks that maxTokens > 0 and 0 <= overlap < maxTokens.
func ValidateLimits(maxTokens, overlap int) error {
	if maxTokens <= 0 {
		return fmt.Errorf("%w: max chunk tokens must be > 0, got %d", ErrInvalidLimits, maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidLimits, maxTokens, overlap)
	}
	return nil
}

// NormalizeAndSplit normalizes raw and splits the result. Empty or
// whitespace-only input yields no chunks.
func (s *Splitter) NormalizeAndSplit(raw string, maxTokens, overlap int) (*Normalized, []Chunk, error) {
	if err := ValidateLimits(maxTokens, overlap); err != nil {
		return nil, nil, err
	}
	normalized := Normalize(raw)
	chunks, err := s.Split(normalized, maxTokens, overlap)
	if err != nil {
		return nil, nil, err
	}
	return normalized, chunks, nil
}

// Split packs the tokens of normalized text greedily into chunks of at most
// maxTokens tokens. Near the limit it prefers to end a chunk at a paragraph
// break, then at a sentence end or line break, and otherwise breaks at the
// limit. Each chunk after the first starts overlap tokens before the end of
// its predecessor.
func (s *Splitter) Split(normalized *Normalized, maxTokens, overlap int) ([]Chunk, error) {
	if err := ValidateLimits(maxTokens, overlap); err != nil {
		return nil, err
	}

	text := normalized.Text
	tokens := s.tokenizer.Tokenize(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	chunks := make([]Chunk, 0, len(tokens)/maxTokens+1)
	start, shared, prevEnd := 0, 0, 0
	for {
		end := s.breakAt(text, tokens, start, maxTokens, overlap)

		chunk := Chunk{
			Index:         len(chunks),
			Start:         tokens[start].Start,
			End:           tokens[end-1].End,
			TokenStart:    start,
			TokenEnd:      end,
			OverlapTokens: shared,
		}
		chunk.Text = text[chunk.Start:chunk.End]
		chunk.OverlapEnd = chunk.Start
		if shared > 0 {
			chunk.OverlapEnd = prevEnd
		}

		origStart, origEnd, err := normalized.OriginalSpan(chunk.Start, chunk.End)
		if err != nil {
			return nil, err
		}
		chunk.OrigStart, chunk.OrigEnd = origStart, origEnd
		chunks = append(chunks, chunk)

		if end >= len(tokens) {
			return chunks, nil
		}
		start, shared, prevEnd = end-overlap, overlap, chunk.End
	}
}

// breakAt returns the token index at which the chunk starting at start ends.
func (s *Splitter) breakAt(text string, tokens []Span, start, maxTokens, overlap int) int {
	end := start + maxTokens
	if end >= len(tokens) {
		return len(tokens)
	}

	// The next chunk starts at break-overlap and must make progress.
	lo := max(end-s.lookback, start+overlap+1)
	sentence := -1
	for t := end; t >= lo; t-- {
		switch breakRank(text, tokens[t].Start) {
		case rankParagraph:
			return t
		case rankSentence:
			if sentence < 0 {
				sentence = t
			}
		}
	}
	if sentence >= 0 {
		return sentence
	}
	return end
}

const (
	rankNone = iota
	rankSentence
	rankParagraph
)

// breakRank classifies the byte position pos by the whitespace around it.
func breakRank(text string, pos int) int {
	from := pos
	for from > 0 && isSpaceByte(text[from-1]) {
		from--
	}
	to := pos
	for to < len(text) && isSpaceByte(text[to]) {
		to++
	}
	if from == to {
		return rankNone
	}

	run := text[from:to]
	switch {
	case strings.Contains(run, "\n\n"):
		return rankParagraph
	case strings.Contains(run, "\n"):
		return rankSentence
	case from > 0 && strings.IndexByte(".!?;", text[from-1]) >= 0:
		return rankSentence
	}
	return rankNone
}

// Normalized text only holds ASCII whitespace.
func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n'
}
