package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/reportlens/ai"
)

// MockExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractEntitiesFunc is called by ExtractEntities if set.
	// If nil, the configured terms are located in the text.
	ExtractEntitiesFunc func(ctx context.Context, text string) ([]ai.ExtractedEntity, error)

	terms     []ai.Mention
	callCount atomic.Int64
}

// NewMockExtractor creates a mock extractor that finds the given terms.
// Note: Returns concrete type to allow test assertions.
func NewMockExtractor(terms ...ai.Mention) *MockExtractor {
	return &MockExtractor{terms: terms}
}

// WithExtractEntitiesFunc sets custom behavior and returns the mock for chaining.
func (m *MockExtractor) WithExtractEntitiesFunc(fn func(ctx context.Context, text string) ([]ai.ExtractedEntity, error)) *MockExtractor {
	m.ExtractEntitiesFunc = fn
	return m
}

// ExtractEntities locates the configured terms as whole words.
// It is safe for concurrent use.
func (m *MockExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	m.callCount.Add(1)

	if m.ExtractEntitiesFunc != nil {
		return m.ExtractEntitiesFunc(ctx, text)
	}
	return ai.LocateMentions(text, m.terms), nil
}

// CallCount returns the number of ExtractEntities calls.
func (m *MockExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockExtractor) Reset() {
	m.callCount.Store(0)
	m.ExtractEntitiesFunc = nil
}
