package mock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/reportlens/ai"
)

// MockSummarizer is a test double for ai.Summarizer.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, the first bounds.Max words of the text are returned.
	SummarizeFunc func(ctx context.Context, text string, bounds ai.LengthBounds) (string, error)

	callCount atomic.Int64

	mu         sync.Mutex
	lastBounds ai.LengthBounds
	inputs     []string
}

// NewMockSummarizer creates a mock summarizer with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// WithSummarizeFunc sets custom behavior and returns the mock for chaining.
func (m *MockSummarizer) WithSummarizeFunc(fn func(ctx context.Context, text string, bounds ai.LengthBounds) (string, error)) *MockSummarizer {
	m.SummarizeFunc = fn
	return m
}

// Summarize returns a deterministic summary.
// It is safe for concurrent use.
func (m *MockSummarizer) Summarize(ctx context.Context, text string, bounds ai.LengthBounds) (string, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.lastBounds = bounds
	m.inputs = append(m.inputs, text)
	m.mu.Unlock()

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text, bounds)
	}

	words := strings.Fields(text)
	if bounds.Max > 0 && len(words) > bounds.Max {
		words = words[:bounds.Max]
	}
	return strings.Join(words, " "), nil
}

// CallCount returns the number of Summarize calls.
func (m *MockSummarizer) CallCount() int {
	return int(m.callCount.Load())
}

// LastBounds returns the bounds of the most recent call.
func (m *MockSummarizer) LastBounds() ai.LengthBounds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBounds
}

// Inputs returns the texts passed to Summarize, in call order.
func (m *MockSummarizer) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.inputs))
	copy(out, m.inputs)
	return out
}

// Reset clears recorded calls and custom functions.
func (m *MockSummarizer) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.lastBounds = ai.LengthBounds{}
	m.inputs = nil
	m.mu.Unlock()
	m.SummarizeFunc = nil
}
