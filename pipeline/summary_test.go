package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/reportlens/ai"
	"github.com/poiesic/reportlens/ai/mock"
	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/core"
	"github.com/poiesic/reportlens/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitBounds(t *testing.T) {
	bounds := ai.LengthBounds{Min: 20, Max: 120}

	tests := []struct {
		words int
		want  ai.LengthBounds
	}{
		{words: 1000, want: ai.LengthBounds{Min: 50, Max: 120}},
		{words: 200, want: ai.LengthBounds{Min: 50, Max: 100}},
		{words: 80, want: ai.LengthBounds{Min: 30, Max: 40}},
		{words: 16, want: ai.LengthBounds{Min: 8, Max: 8}},
		{words: 0, want: ai.LengthBounds{Min: 1, Max: 1}},
	}
	for _, tt := range tests {
		got := fitBounds(tt.words, bounds)
		assert.Equal(t, tt.want, got, "words=%d", tt.words)
		assert.LessOrEqual(t, got.Min, got.Max)
	}
}

func TestTruncateTokens(t *testing.T) {
	tok := chunker.NewWordTokenizer()

	assert.Equal(t, "one two three", truncateTokens(tok, "  one two three ", 5))
	assert.Equal(t, "one two", truncateTokens(tok, "one two three", 2))
	assert.Equal(t, "First sentence here.",
		truncateTokens(tok, "First sentence here. Second sentence follows on", 5))
	assert.Equal(t, "A. b c d e", truncateTokens(tok, "A. b c d e f g", 5),
		"a sentence end in the first half is not used")
}

func TestFreshText(t *testing.T) {
	chunk := chunker.Chunk{Text: "shared words then new words", Start: 10, End: 37, OverlapEnd: 22}
	assert.Equal(t, "then new words", freshText(chunk))

	chunk.OverlapEnd = chunk.Start
	assert.Equal(t, chunk.Text, freshText(chunk))
}

func newCombiner(t *testing.T, summarizer ai.Summarizer, cfg *Config) *combiner {
	t.Helper()
	reg, err := registry.New(mock.NewMockProvider())
	require.NoError(t, err)
	p, err := NewPipeline(reg, WithRetry(1, 0))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return &combiner{pipeline: p, summarizer: summarizer, cfg: cfg}
}

func TestCombine_SingleFragmentIsBounded(t *testing.T) {
	summarizer := mock.NewMockSummarizer()
	cfg := DefaultConfig()
	cfg.Summary = ai.LengthBounds{Min: 1, Max: 3}
	c := newCombiner(t, summarizer, cfg)

	out, failure := c.combine(context.Background(), []core.SummaryFragment{{Text: "one two three four five"}})
	assert.Nil(t, failure)
	assert.Equal(t, "one two three", out)
	assert.Equal(t, 0, summarizer.CallCount(), "a single fragment is not re-summarized")
}

func TestCombine_FinalPassOverConcatenation(t *testing.T) {
	summarizer := mock.NewMockSummarizer()
	cfg := DefaultConfig()
	cfg.ShortInputWords = 0
	c := newCombiner(t, summarizer, cfg)

	fragments := []core.SummaryFragment{
		{ChunkIndex: 0, Text: "Patient admitted with pneumonia."},
		{ChunkIndex: 1, Text: "Treated with antibiotics and discharged."},
	}
	out, failure := c.combine(context.Background(), fragments)
	assert.Nil(t, failure)
	assert.NotEmpty(t, out)
	require.Equal(t, 1, summarizer.CallCount())
	assert.Equal(t, "Patient admitted with pneumonia.\n\nTreated with antibiotics and discharged.",
		summarizer.Inputs()[0])
}

func TestCombine_ShortConcatenationStillSummarized(t *testing.T) {
	summarizer := mock.NewMockSummarizer()
	cfg := DefaultConfig()
	require.Greater(t, cfg.ShortInputWords, 10)
	c := newCombiner(t, summarizer, cfg)

	fragments := []core.SummaryFragment{
		{ChunkIndex: 0, Text: "Admitted with pneumonia."},
		{ChunkIndex: 1, Text: "Discharged on aspirin."},
	}
	out, failure := c.combine(context.Background(), fragments)
	assert.Nil(t, failure)
	assert.NotEmpty(t, out)
	require.Equal(t, 1, summarizer.CallCount(), "several fragments always get one final pass")
	assert.Equal(t, "Admitted with pneumonia.\n\nDischarged on aspirin.", summarizer.Inputs()[0])
}

func TestCombine_ReducesInGroups(t *testing.T) {
	summarizer := mock.NewMockSummarizer()
	cfg := DefaultConfig()
	cfg.MaxChunkTokens = 8
	cfg.OverlapTokens = 0
	cfg.ShortInputWords = 0
	cfg.Summary = ai.LengthBounds{Min: 1, Max: 4}
	c := newCombiner(t, summarizer, cfg)

	fragments := []core.SummaryFragment{
		{ChunkIndex: 0, Text: "a1 a2 a3 a4"},
		{ChunkIndex: 1, Text: "b1 b2 b3 b4"},
		{ChunkIndex: 2, Text: "c1 c2 c3 c4"},
		{ChunkIndex: 3, Text: "d1 d2 d3 d4"},
	}
	out, failure := c.combine(context.Background(), fragments)
	assert.Nil(t, failure)
	assert.NotEmpty(t, out)
	assert.Greater(t, summarizer.CallCount(), 1, "groups are reduced before the final pass")
	for _, input := range summarizer.Inputs() {
		assert.LessOrEqual(t, wordCount(input), cfg.MaxChunkTokens)
	}
	assert.LessOrEqual(t, wordCount(out), cfg.Summary.Max)
}

func TestCombine_FailureFallsBackToConcatenation(t *testing.T) {
	summarizer := mock.NewMockSummarizer().WithSummarizeFunc(
		func(context.Context, string, ai.LengthBounds) (string, error) {
			return "", errors.New("model crashed")
		})
	cfg := DefaultConfig()
	cfg.ShortInputWords = 0
	c := newCombiner(t, summarizer, cfg)

	fragments := []core.SummaryFragment{
		{ChunkIndex: 0, Text: "alpha beta."},
		{ChunkIndex: 1, Text: "gamma delta."},
	}
	out, failure := c.combine(context.Background(), fragments)
	require.NotNil(t, failure)
	assert.Equal(t, -1, failure.ChunkIndex)
	assert.Equal(t, core.StageCombine, failure.Stage)
	assert.Contains(t, failure.Err, "model crashed")
	assert.Equal(t, "alpha beta.\n\ngamma delta.", out)
}
