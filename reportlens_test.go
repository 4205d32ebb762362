package reportlens

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/reportlens/ai"
	"github.com/poiesic/reportlens/ai/mock"
	"github.com/poiesic/reportlens/core"
	"github.com/poiesic/reportlens/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTerms = []ai.Mention{
	{Text: "aspirin", Label: ai.LabelDrug},
	{Text: "pneumonia", Label: ai.LabelDisease},
}

const shortReport = "Admitted with pneumonia, given aspirin."

func newAnalyzer(t *testing.T, provider ai.Provider, opts ...AnalyzerOption) *Analyzer {
	t.Helper()
	opts = append([]AnalyzerOption{
		WithProvider(provider),
		WithPipelineOptions(pipeline.WithRetry(1, 0)),
	}, opts...)
	a, err := NewAnalyzer(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestAnalyzer_CachesReports(t *testing.T) {
	extractor := mock.NewMockExtractor(testTerms...)
	provider := mock.NewMockProviderWithServices(extractor, mock.NewMockSummarizer())
	a := newAnalyzer(t, provider, WithCache(time.Minute))
	ctx := context.Background()

	first, err := a.Analyze(ctx, core.NewRawReport(shortReport, "a.txt"))
	require.NoError(t, err)
	require.Len(t, first.Entities, 2)

	second, err := a.Analyze(ctx, core.NewRawReport(shortReport, "b.txt"))
	require.NoError(t, err)

	assert.Equal(t, 1, extractor.CallCount(), "second call served from cache")
	assert.Equal(t, "b.txt", second.Source)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Entities, second.Entities)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestAnalyzer_WithoutCache(t *testing.T) {
	extractor := mock.NewMockExtractor(testTerms...)
	provider := mock.NewMockProviderWithServices(extractor, mock.NewMockSummarizer())
	a := newAnalyzer(t, provider, WithoutCache())
	ctx := context.Background()

	for range 2 {
		_, err := a.Analyze(ctx, core.NewRawReport(shortReport, "a.txt"))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, extractor.CallCount())
}

func TestAnalyzer_ConfigChangesMissCache(t *testing.T) {
	extractor := mock.NewMockExtractor(testTerms...)
	provider := mock.NewMockProviderWithServices(extractor, mock.NewMockSummarizer())
	ctx := context.Background()

	a := newAnalyzer(t, provider)
	cfg := pipeline.DefaultConfig()
	cfg.Labels = []string{ai.LabelDrug}
	b := newAnalyzer(t, provider, WithPipelineConfig(cfg))

	assert.NotEqual(t, a.fingerprint, b.fingerprint)

	report, err := b.Analyze(ctx, core.NewRawReport(shortReport, "a.txt"))
	require.NoError(t, err)
	require.Len(t, report.Entities, 1)
	assert.Equal(t, ai.LabelDrug, report.Entities[0].Category)
}

func TestAnalyzer_PartialReportsNotCached(t *testing.T) {
	extractor := mock.NewMockExtractor().WithExtractEntitiesFunc(
		func(context.Context, string) ([]ai.ExtractedEntity, error) {
			return nil, errors.New("extractor crashed")
		})
	provider := mock.NewMockProviderWithServices(extractor, mock.NewMockSummarizer())
	a := newAnalyzer(t, provider)
	ctx := context.Background()

	for range 2 {
		report, err := a.Analyze(ctx, core.NewRawReport(shortReport, "a.txt"))
		require.NoError(t, err)
		assert.True(t, report.Partial())
	}
	assert.Equal(t, 2, extractor.CallCount())
}

func TestAnalyzer_InputTooLarge(t *testing.T) {
	provider := mock.NewMockProviderWithServices(mock.NewMockExtractor(testTerms...), mock.NewMockSummarizer())
	cfg := pipeline.DefaultConfig()
	cfg.MaxTotalLength = 10
	a := newAnalyzer(t, provider, WithPipelineConfig(cfg))

	_, err := a.Analyze(context.Background(), core.NewRawReport(strings.Repeat("word ", 10), "big.txt"))
	assert.ErrorIs(t, err, core.ErrInputTooLarge)
	assert.Equal(t, 0, provider.ExtractorLoads())
}

func TestAnalyzer_InvalidPipelineConfig(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	cfg.OverlapTokens = cfg.MaxChunkTokens

	_, err := NewAnalyzer(WithProvider(mock.NewMockProvider()), WithPipelineConfig(cfg))
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
}

func TestAnalyzer_Warmup(t *testing.T) {
	provider := mock.NewMockProvider()
	a := newAnalyzer(t, provider)

	require.NoError(t, a.Warmup(context.Background()))
	assert.Equal(t, 1, provider.ExtractorLoads())
	assert.Equal(t, 1, provider.SummarizerLoads())
	assert.Equal(t, 2, a.Registry().LoadCount())
}

func TestAnalyzer_CloseClosesProvider(t *testing.T) {
	provider := mock.NewMockProvider()
	a, err := NewAnalyzer(WithProvider(provider))
	require.NoError(t, err)

	require.NoError(t, a.Close())
	assert.True(t, provider.Closed())
}

func TestAnalyzer_ConfigIsCopy(t *testing.T) {
	a := newAnalyzer(t, mock.NewMockProvider())
	cfg := a.Config()
	cfg.Labels[0] = "CHANGED"
	assert.NotEqual(t, "CHANGED", a.Config().Labels[0])
}

func TestNewProvider_Lexicon(t *testing.T) {
	cfg := ai.NewConfig(ai.WithExtractorBackend(ai.BackendLexicon))
	a, err := NewAnalyzer(WithAIConfig(cfg), WithoutCache())
	require.NoError(t, err)
	defer a.Close()

	// Short input never loads the summarizer, so no model host is contacted.
	report, err := a.Analyze(context.Background(), core.NewRawReport(shortReport, "a.txt"))
	require.NoError(t, err)

	var texts []string
	for _, e := range report.Entities {
		texts = append(texts, e.Text)
	}
	assert.Contains(t, texts, "pneumonia")
	assert.Contains(t, texts, "aspirin")
	assert.Equal(t, shortReport, report.Summary)
}

func TestNewProvider_Errors(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewProvider(ai.NewConfig(ai.WithExtractorBackend("oracle")))
		assert.Error(t, err)
	})

	t.Run("missing summarizer model", func(t *testing.T) {
		_, err := NewProvider(ai.NewConfig(ai.WithSummarizerModel("")))
		assert.Error(t, err)
	})
}

func TestModelIdentity(t *testing.T) {
	llm := ai.DefaultConfig()
	lex := ai.NewConfig(ai.WithExtractorBackend(ai.BackendLexicon), ai.WithLexiconPath("terms.yaml"))
	assert.NotEqual(t, modelIdentity(llm), modelIdentity(lex))
	assert.Contains(t, modelIdentity(lex), "terms.yaml")
}
