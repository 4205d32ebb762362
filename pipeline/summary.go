package pipeline

import (
	"context"
	"strings"

	"github.com/poiesic/reportlens/ai"
	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/core"
)

// maxReduceLevels caps how many times fragments are summarized in groups
// before the final pass.
const maxReduceLevels = 3

// fragmentSeparator joins fragments handed to the final pass.
const fragmentSeparator = "\n\n"

// fitBounds scales the requested bounds to the size of the input so that
// short inputs are not asked to produce summaries longer than themselves.
func fitBounds(words int, bounds ai.LengthBounds) ai.LengthBounds {
	hi := min(bounds.Max, words/2)
	if hi < 1 {
		hi = 1
	}
	lo := max(bounds.Min, min(50, hi-10))
	if lo > hi {
		lo = hi
	}
	if lo < 0 {
		lo = 0
	}
	return ai.LengthBounds{Min: lo, Max: hi}
}

// wordCount counts whitespace separated words.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

// freshText returns the part of a chunk that no earlier chunk covered.
func freshText(chunk chunker.Chunk) string {
	return strings.TrimSpace(chunk.Text[chunk.OverlapEnd-chunk.Start:])
}

// truncateTokens cuts text to at most limit tokens. It backs off to the last
// sentence end when one falls in the second half of the cut.
func truncateTokens(tok chunker.Tokenizer, text string, limit int) string {
	text = strings.TrimSpace(text)
	spans := tok.Tokenize(text)
	if limit < 1 || len(spans) <= limit {
		return text
	}
	head := text[:spans[limit-1].End]
	if i := strings.LastIndexAny(head, ".!?"); i >= len(head)/2 {
		head = head[:i+1]
	}
	return strings.TrimSpace(head)
}

// combiner reduces per-chunk fragments into one summary.
type combiner struct {
	pipeline   *Pipeline
	summarizer ai.Summarizer
	cfg        *Config
}

// combine returns the final summary. A failed model call is reported as a
// failure alongside a truncated concatenation of the fragments.
func (c *combiner) combine(ctx context.Context, fragments []core.SummaryFragment) (string, *core.ChunkFailure) {
	tok := c.pipeline.tokenizer
	switch len(fragments) {
	case 0:
		return "", nil
	case 1:
		return truncateTokens(tok, fragments[0].Text, c.cfg.Summary.Max), nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	for level := 0; level < maxReduceLevels; level++ {
		if len(tok.Tokenize(strings.Join(texts, fragmentSeparator))) <= c.cfg.MaxChunkTokens {
			break
		}
		groups := c.group(texts)
		if len(groups) == len(texts) {
			// Every fragment fills a window on its own; grouping cannot shrink it.
			break
		}
		reduced := make([]string, 0, len(groups))
		for _, g := range groups {
			joined := strings.Join(g, fragmentSeparator)
			out, err := c.summarize(ctx, joined)
			if err != nil {
				return c.fallback(texts), c.failure(err)
			}
			reduced = append(reduced, out)
		}
		c.pipeline.logger.Debug("reduced summary fragments", "level", level, "from", len(texts), "to", len(reduced))
		texts = reduced
	}

	joined := strings.Join(texts, fragmentSeparator)
	out, err := c.summarize(ctx, truncateTokens(tok, joined, c.cfg.MaxChunkTokens))
	if err != nil {
		return c.fallback(texts), c.failure(err)
	}
	return truncateTokens(tok, out, c.cfg.Summary.Max), nil
}

// group packs consecutive texts into groups that fit one model window.
func (c *combiner) group(texts []string) [][]string {
	tok := c.pipeline.tokenizer
	var groups [][]string
	var current []string
	size := 0
	for _, t := range texts {
		t = truncateTokens(tok, t, c.cfg.MaxChunkTokens)
		n := len(tok.Tokenize(t))
		if len(current) > 0 && size+n > c.cfg.MaxChunkTokens {
			groups = append(groups, current)
			current, size = nil, 0
		}
		current = append(current, t)
		size += n
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func (c *combiner) summarize(ctx context.Context, text string) (string, error) {
	bounds := fitBounds(wordCount(text), c.cfg.Summary)
	var out string
	err := c.pipeline.withRetry(ctx, func() error {
		var err error
		out, err = c.summarizer.Summarize(ctx, text, bounds)
		return err
	})
	return strings.TrimSpace(out), err
}

func (c *combiner) fallback(texts []string) string {
	return truncateTokens(c.pipeline.tokenizer, strings.Join(texts, fragmentSeparator), c.cfg.Summary.Max)
}

func (c *combiner) failure(err error) *core.ChunkFailure {
	return &core.ChunkFailure{ChunkIndex: -1, Stage: core.StageCombine, Err: err.Error()}
}
