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

// Package reportlens turns free-text medical reports into structured reports:
// labeled entities with offsets into the original text, a bounded summary and
// a disclaimer.
//
// Usage:
//
//	analyzer, err := reportlens.NewAnalyzer(
//	    reportlens.WithAIConfig(ai.NewConfig(ai.WithExtractorBackend(ai.BackendLexicon))),
//	)
//	if err != nil {
//	    return err
//	}
//	defer analyzer.Close()
//
//	report, err := analyzer.Analyze(ctx, core.NewRawReport(text, "discharge.txt"))
package reportlens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/reportlens/ai"
	"github.com/poiesic/reportlens/ai/lexicon"
	"github.com/poiesic/reportlens/ai/ner"
	"github.com/poiesic/reportlens/ai/openai"
	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/core"
	"github.com/poiesic/reportlens/pipeline"
	"github.com/poiesic/reportlens/registry"
	"github.com/poiesic/reportlens/storage"
	"github.com/poiesic/reportlens/storage/badger"
)

// Analyzer wires the model registry, the pipeline and the session cache
// together. It is safe for concurrent use.
type Analyzer struct {
	config      *pipeline.Config
	registry    *registry.Registry
	pipeline    *pipeline.Pipeline
	cache       storage.ReportCache
	fingerprint string
	logger      *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*analyzerOptions)

type analyzerOptions struct {
	aiConfig       *ai.Config
	pipelineConfig *pipeline.Config
	provider       ai.Provider
	pipelineOpts   []pipeline.Option
	tokenizer      chunker.Tokenizer
	cache          bool
	cacheTTL       time.Duration
	logger         *slog.Logger
}

// WithAIConfig sets the model backend configuration.
func WithAIConfig(cfg *ai.Config) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.aiConfig = cfg
	}
}

// WithPipelineConfig sets the per-call processing configuration.
func WithPipelineConfig(cfg *pipeline.Config) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.pipelineConfig = cfg
	}
}

// WithProvider supplies the model provider directly instead of building one
// from the AI configuration.
func WithProvider(provider ai.Provider) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.provider = provider
	}
}

// WithPipelineOptions passes options through to pipeline.NewPipeline.
func WithPipelineOptions(opts ...pipeline.Option) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithTokenizer sets the tokenizer used to measure chunks.
func WithTokenizer(tok chunker.Tokenizer) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.tokenizer = tok
	}
}

// WithCache enables the session report cache with the given TTL.
func WithCache(ttl time.Duration) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.cache = true
		o.cacheTTL = ttl
	}
}

// WithoutCache disables the session report cache.
func WithoutCache() AnalyzerOption {
	return func(o *analyzerOptions) {
		o.cache = false
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(o *analyzerOptions) {
		o.logger = logger
	}
}

// NewAnalyzer creates an Analyzer. Models are not loaded until the first
// report is analyzed or Warmup is called.
func NewAnalyzer(opts ...AnalyzerOption) (*Analyzer, error) {
	options := &analyzerOptions{
		aiConfig:       ai.DefaultConfig(),
		pipelineConfig: pipeline.DefaultConfig(),
		cache:          true,
		cacheTTL:       badger.DefaultTTL,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.pipelineConfig == nil {
		options.pipelineConfig = pipeline.DefaultConfig()
	}
	if err := options.pipelineConfig.Validate(); err != nil {
		return nil, err
	}

	identity := "custom"
	provider := options.provider
	if provider == nil {
		if options.aiConfig == nil {
			options.aiConfig = ai.DefaultConfig()
		}
		var err error
		provider, err = NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
		identity = modelIdentity(options.aiConfig)
	}

	reg, err := registry.New(provider, registry.WithLogger(options.logger.With("component", "registry")))
	if err != nil {
		provider.Close()
		return nil, err
	}

	pipelineOpts := append([]pipeline.Option{
		pipeline.WithLogger(options.logger),
		pipeline.WithTokenizer(options.tokenizer),
	}, options.pipelineOpts...)
	p, err := pipeline.NewPipeline(reg, pipelineOpts...)
	if err != nil {
		reg.Close()
		return nil, err
	}

	var cache storage.ReportCache
	if options.cache {
		cache, err = badger.NewMemoryReportCache(options.cacheTTL)
		if err != nil {
			p.Release()
			reg.Close()
			return nil, err
		}
	}

	return &Analyzer{
		config:      options.pipelineConfig,
		registry:    reg,
		pipeline:    p,
		cache:       cache,
		fingerprint: options.pipelineConfig.Fingerprint() + ";models=" + identity,
		logger:      options.logger.With("component", "analyzer"),
	}, nil
}

// extractorBackends builds the extraction half of a provider per backend.
var extractorBackends = map[string]func(cfg *ai.Config, llm ai.Provider) ai.ExtractorLoader{
	ai.BackendLLM: func(_ *ai.Config, llm ai.Provider) ai.ExtractorLoader {
		return llm
	},
	ai.BackendNER: func(cfg *ai.Config, _ ai.Provider) ai.ExtractorLoader {
		return ner.NewLoader(cfg)
	},
	ai.BackendLexicon: func(cfg *ai.Config, _ ai.Provider) ai.ExtractorLoader {
		return lexicon.NewLoader(cfg.LexiconPath)
	},
}

// NewProvider builds the model provider selected by cfg. Summaries always
// come from the OpenAI-compatible host; extraction comes from the configured
// backend.
func NewProvider(cfg *ai.Config) (ai.Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build, ok := extractorBackends[cfg.ExtractorBackend]
	if !ok {
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.ExtractorBackend)
	}
	llm, err := openai.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ExtractorBackend == ai.BackendLLM {
		return llm, nil
	}
	return ai.Compose(build(cfg, llm), llm), nil
}

func modelIdentity(cfg *ai.Config) string {
	extractor := cfg.ExtractorModel
	switch cfg.ExtractorBackend {
	case ai.BackendNER:
		extractor = cfg.NERHost
	case ai.BackendLexicon:
		extractor = cfg.LexiconPath
	}
	return fmt.Sprintf("%s/%s:%s/%s", cfg.Host, cfg.SummarizerModel, cfg.ExtractorBackend, extractor)
}

// Analyze processes one report.
func (a *Analyzer) Analyze(ctx context.Context, report core.RawReport) (*core.StructuredReport, error) {
	return a.AnalyzeWithMonitor(ctx, report, nil)
}

// AnalyzeWithMonitor processes one report and reports progress to monitor.
// A nil monitor uses the pipeline's monitor.
//
// A report already produced for the same text and configuration during this
// session is returned from the cache without running the models. Partial
// reports are never cached.
func (a *Analyzer) AnalyzeWithMonitor(ctx context.Context, report core.RawReport, monitor pipeline.Monitor) (*core.StructuredReport, error) {
	key := core.IDFromContent(a.fingerprint + "\x00" + report.Text)

	if a.cache != nil {
		cached, err := a.cache.Get(ctx, key)
		switch {
		case err == nil:
			a.logger.Debug("report cache hit", "id", cached.ID)
			cached.Source = report.Source
			if monitor != nil {
				monitor.Start(report)
				monitor.Finish(cached)
			}
			return cached, nil
		case !errors.Is(err, storage.ErrNotFound):
			a.logger.Warn("report cache lookup failed", "err", err)
		}
	}

	var (
		result *core.StructuredReport
		err    error
	)
	if monitor != nil {
		result, err = a.pipeline.ProcessWithMonitor(ctx, report, a.config, monitor)
	} else {
		result, err = a.pipeline.Process(ctx, report, a.config)
	}
	if err != nil {
		return nil, err
	}

	if a.cache != nil && !result.Partial() {
		if err := a.cache.Put(ctx, key, result); err != nil {
			a.logger.Warn("report cache store failed", "err", err)
		}
	}
	return result, nil
}

// Warmup loads both models so that the first report does not pay for it.
func (a *Analyzer) Warmup(ctx context.Context) error {
	return a.registry.Warmup(ctx)
}

// Registry returns the model registry.
func (a *Analyzer) Registry() *registry.Registry {
	return a.registry
}

// Config returns a copy of the processing configuration.
func (a *Analyzer) Config() pipeline.Config {
	cfg := *a.config
	cfg.Labels = append([]string(nil), a.config.Labels...)
	return cfg
}

// Close releases the worker pool, the models and the cache.
func (a *Analyzer) Close() error {
	a.pipeline.Release()

	var errs []error
	if err := a.registry.Close(); err != nil {
		a.logger.Error("error closing model registry", "err", err)
		errs = append(errs, err)
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("error closing report cache", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
