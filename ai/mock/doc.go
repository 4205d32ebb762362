// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.EntityExtractor,
// ai.Summarizer and ai.Provider for use in unit tests. The mocks allow tests
// to run without model servers and give controlled, deterministic behavior.
// All mocks are safe for concurrent use.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	extractor, err := provider.LoadExtractor(ctx)
//
//	// Custom behavior injection
//	extractor := mock.NewMockExtractor().
//	    WithExtractEntitiesFunc(func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
//	        return nil, errors.New("model crashed")
//	    })
//
//	// Check call counts
//	count := extractor.CallCount()
//	loads := provider.ExtractorLoads()
//
// # Default Behavior
//
//   - MockExtractor: Locates the terms it was created with as whole words
//   - MockSummarizer: Returns the first bounds.Max words of its input
//   - MockProvider: Hands out its extractor and summarizer and counts loads
package mock
