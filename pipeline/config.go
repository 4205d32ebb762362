package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/reportlens/ai"
	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/core"
)

// Config holds the per-call processing parameters.
type Config struct {
	// MaxChunkTokens is the largest chunk handed to a model.
	// Default: 900
	MaxChunkTokens int

	// OverlapTokens is the context shared by consecutive chunks.
	// Must be smaller than MaxChunkTokens. Default: 64
	OverlapTokens int

	// LookbackTokens is how far before the chunk limit a paragraph or
	// sentence break is searched for. Default: 128
	LookbackTokens int

	// MaxTotalLength is the admission ceiling in characters.
	// Default: 100000
	MaxTotalLength int

	// Summary bounds the summary length in tokens.
	// Default: 20 to 120
	Summary ai.LengthBounds

	// ShortInputWords is the word count under which text is returned as its
	// own summary without a model call. Default: 50
	ShortInputWords int

	// Labels restricts the entity categories kept in the report.
	// Empty keeps every category.
	Labels []string

	// Disclaimer is attached to every report.
	Disclaimer string
}

// DefaultConfig returns a Config with the default limits.
func DefaultConfig() *Config {
	return &Config{
		MaxChunkTokens:  900,
		OverlapTokens:   64,
		LookbackTokens:  chunker.DefaultLookback,
		MaxTotalLength:  100_000,
		Summary:         ai.LengthBounds{Min: 20, Max: 120},
		ShortInputWords: 50,
		Labels:          slices.Clone(ai.DefaultLabels),
		Disclaimer:      core.DefaultDisclaimer,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := chunker.ValidateLimits(c.MaxChunkTokens, c.OverlapTokens); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.LookbackTokens < 0 {
		return fmt.Errorf("%w: LookbackTokens must be >= 0", ErrInvalidConfig)
	}
	if c.MaxTotalLength <= 0 {
		return fmt.Errorf("%w: MaxTotalLength must be positive", ErrInvalidConfig)
	}
	if c.Summary.Min < 0 || c.Summary.Max < 1 || c.Summary.Min > c.Summary.Max {
		return fmt.Errorf("%w: summary bounds must satisfy 0 <= min <= max and max >= 1, got %d..%d",
			ErrInvalidConfig, c.Summary.Min, c.Summary.Max)
	}
	if c.ShortInputWords < 0 {
		return fmt.Errorf("%w: ShortInputWords must be >= 0", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Disclaimer) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, core.ErrMissingDisclaimer)
	}
	return nil
}

// Fingerprint identifies the settings that affect a report's content.
// Two configurations with equal fingerprints produce the same report for the
// same input and models.
func (c *Config) Fingerprint() string {
	labels := make([]string, len(c.Labels))
	for i, l := range c.Labels {
		labels[i] = ai.NormalizeLabel(l)
	}
	slices.Sort(labels)
	return fmt.Sprintf("chunk=%d/%d/%d;len=%d;summary=%d-%d;short=%d;labels=%s;disclaimer=%s",
		c.MaxChunkTokens, c.OverlapTokens, c.LookbackTokens, c.MaxTotalLength,
		c.Summary.Min, c.Summary.Max, c.ShortInputWords,
		strings.Join(labels, ","), c.Disclaimer)
}

// labelFilter returns a predicate for the configured labels.
func (c *Config) labelFilter() func(string) bool {
	if len(c.Labels) == 0 {
		return func(string) bool { return true }
	}
	allowed := make(map[string]bool, len(c.Labels))
	for _, l := range c.Labels {
		allowed[ai.NormalizeLabel(l)] = true
	}
	return func(label string) bool { return allowed[label] }
}
