package ai

import "context"

// EntityExtractor finds labeled entity mentions in text.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// ExtractEntities returns the entities found in text. Offsets are byte
	// offsets into text; callers remap them to wider documents.
	// Returns an empty slice if no entities are found.
	ExtractEntities(ctx context.Context, text string) ([]ExtractedEntity, error)
}

// Summarizer condenses text into a short plain-language summary.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize returns a summary of text whose length in tokens should fall
	// within bounds. Bounds are a request to the model, not a guarantee.
	Summarize(ctx context.Context, text string, bounds LengthBounds) (string, error)
}

// ExtractedEntity is an entity mention found by an EntityExtractor.
type ExtractedEntity struct {
	// Text is the mention exactly as it appears in the input.
	Text string

	// Label is the entity category, e.g. "DRUG" or "DATE".
	Label string

	// Start and End are byte offsets of the mention in the input.
	Start int
	End   int
}

// LengthBounds bounds a summary length in tokens.
type LengthBounds struct {
	Min int
	Max int
}

// Provider loads model handles. Loading may be slow (weights, network
// warmup); callers are expected to cache the returned handles.
type Provider interface {
	// LoadExtractor initializes the entity extraction model.
	LoadExtractor(ctx context.Context) (EntityExtractor, error)

	// LoadSummarizer initializes the summarization model.
	LoadSummarizer(ctx context.Context) (Summarizer, error)

	// Close releases resources held by the provider.
	// Handles returned earlier should not be used afterwards.
	Close() error
}

// ExtractorLoader is the extraction half of a Provider.
type ExtractorLoader interface {
	LoadExtractor(ctx context.Context) (EntityExtractor, error)
}

// SummarizerLoader is the summarization half of a Provider.
type SummarizerLoader interface {
	LoadSummarizer(ctx context.Context) (Summarizer, error)
}

// Compose builds a Provider from separate extraction and summarization
// loaders. Close closes each loader that implements io.Closer.
func Compose(extractors ExtractorLoader, summarizers SummarizerLoader) Provider {
	return &composite{extractors: extractors, summarizers: summarizers}
}

type composite struct {
	extractors  ExtractorLoader
	summarizers SummarizerLoader
}

func (c *composite) LoadExtractor(ctx context.Context) (EntityExtractor, error) {
	return c.extractors.LoadExtractor(ctx)
}

func (c *composite) LoadSummarizer(ctx context.Context) (Summarizer, error) {
	return c.summarizers.LoadSummarizer(ctx)
}

func (c *composite) Close() error {
	var firstErr error
	for _, l := range []any{c.extractors, c.summarizers} {
		if closer, ok := l.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
