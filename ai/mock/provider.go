// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/poiesic/reportlens/ai"
)

// MockProvider is a test double for ai.Provider.
// It hands out mock extractor and summarizer instances and counts loads.
type MockProvider struct {
	extractor  *MockExtractor
	summarizer *MockSummarizer

	// ExtractorErr and SummarizerErr, when set, fail the matching load.
	ExtractorErr  error
	SummarizerErr error

	// LoadDelay is slept inside every load, to widen race windows in tests.
	LoadDelay time.Duration

	extractorLoads  atomic.Int64
	summarizerLoads atomic.Int64
	closed          atomic.Bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns the concrete type so tests can read load counters.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithServices(NewMockExtractor(), NewMockSummarizer())
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(extractor *MockExtractor, summarizer *MockSummarizer) *MockProvider {
	return &MockProvider{
		extractor:  extractor,
		summarizer: summarizer,
	}
}

// LoadExtractor returns the mock extractor.
func (p *MockProvider) LoadExtractor(ctx context.Context) (ai.EntityExtractor, error) {
	p.extractorLoads.Add(1)
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.ExtractorErr != nil {
		return nil, p.ExtractorErr
	}
	return p.extractor, nil
}

// LoadSummarizer returns the mock summarizer.
func (p *MockProvider) LoadSummarizer(ctx context.Context) (ai.Summarizer, error) {
	p.summarizerLoads.Add(1)
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.SummarizerErr != nil {
		return nil, p.SummarizerErr
	}
	return p.summarizer, nil
}

func (p *MockProvider) wait(ctx context.Context) error {
	if p.LoadDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(p.LoadDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MockProvider) Close() error {
	p.closed.Store(true)
	return nil
}

// ExtractorLoads returns how many times LoadExtractor was called.
func (p *MockProvider) ExtractorLoads() int {
	return int(p.extractorLoads.Load())
}

// SummarizerLoads returns how many times LoadSummarizer was called.
func (p *MockProvider) SummarizerLoads() int {
	return int(p.summarizerLoads.Load())
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed.Load()
}

// GetMockExtractor returns the underlying mock extractor for test assertions.
func (p *MockProvider) GetMockExtractor() *MockExtractor {
	return p.extractor
}

// GetMockSummarizer returns the underlying mock summarizer for test assertions.
func (p *MockProvider) GetMockSummarizer() *MockSummarizer {
	return p.summarizer
}
