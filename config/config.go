// Package config loads reportlens settings from a YAML file.
//
// A file only needs the keys it changes; everything else keeps its default:
//
//	ai:
//	  host: http://localhost:11434
//	  summarizer_model: qwen2.5:7b
//	  extractor: lexicon
//	pipeline:
//	  max_chunk_tokens: 512
//	  labels: [DRUG, DISEASE]
//	cache:
//	  ttl: 10m
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/poiesic/reportlens/ai"
	"github.com/poiesic/reportlens/pipeline"
	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is returned when a configuration file cannot be decoded.
var ErrInvalidFile = errors.New("invalid configuration file")

// File is the on-disk configuration.
type File struct {
	AI       AI       `yaml:"ai"`
	Pipeline Pipeline `yaml:"pipeline"`
	Cache    Cache    `yaml:"cache"`
}

// AI configures the model backends.
type AI struct {
	Host            string        `yaml:"host"`
	APIKey          string        `yaml:"api_key"`
	SummarizerModel string        `yaml:"summarizer_model"`
	ExtractorModel  string        `yaml:"extractor_model"`
	Extractor       string        `yaml:"extractor"`
	NERHost         string        `yaml:"ner_host"`
	Lexicon         string        `yaml:"lexicon"`
	Warmup          bool          `yaml:"warmup"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Pipeline configures chunking, summarization and scheduling.
type Pipeline struct {
	MaxChunkTokens  int           `yaml:"max_chunk_tokens"`
	OverlapTokens   int           `yaml:"overlap_tokens"`
	LookbackTokens  int           `yaml:"lookback_tokens"`
	MaxTotalLength  int           `yaml:"max_total_length"`
	SummaryMin      int           `yaml:"summary_min"`
	SummaryMax      int           `yaml:"summary_max"`
	ShortInputWords int           `yaml:"short_input_words"`
	Labels          []string      `yaml:"labels"`
	Disclaimer      string        `yaml:"disclaimer"`
	Tokenizer       string        `yaml:"tokenizer"`
	PoolSize        int           `yaml:"pool_size"`
	RetryAttempts   uint          `yaml:"retry_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	Dedup           string        `yaml:"dedup"`
}

// Cache configures the session report cache.
type Cache struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	a := ai.DefaultConfig()
	p := pipeline.DefaultConfig()
	return &File{
		AI: AI{
			Host:            a.Host,
			APIKey:          a.APIKey,
			SummarizerModel: a.SummarizerModel,
			ExtractorModel:  a.ExtractorModel,
			Extractor:       a.ExtractorBackend,
			NERHost:         a.NERHost,
			Lexicon:         a.LexiconPath,
			Warmup:          a.Warmup,
			Timeout:         a.Timeout,
		},
		Pipeline: Pipeline{
			MaxChunkTokens:  p.MaxChunkTokens,
			OverlapTokens:   p.OverlapTokens,
			LookbackTokens:  p.LookbackTokens,
			MaxTotalLength:  p.MaxTotalLength,
			SummaryMin:      p.Summary.Min,
			SummaryMax:      p.Summary.Max,
			ShortInputWords: p.ShortInputWords,
			Labels:          p.Labels,
			Disclaimer:      p.Disclaimer,
			Tokenizer:       "word",
			RetryAttempts:   2,
			RetryDelay:      200 * time.Millisecond,
			Dedup:           pipeline.DedupPreferEarlier.String(),
		},
		Cache: Cache{
			Enabled: true,
			TTL:     30 * time.Minute,
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (*File, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks every section.
func (f *File) Validate() error {
	if err := f.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if err := f.PipelineConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if _, err := pipeline.ParseDedupPolicy(f.Pipeline.Dedup); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if f.Pipeline.RetryAttempts < 1 {
		return fmt.Errorf("%w: retry_attempts must be >= 1", ErrInvalidFile)
	}
	if f.Cache.Enabled && f.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive", ErrInvalidFile)
	}
	return nil
}

// AIConfig returns the model backend configuration.
func (f *File) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(f.AI.Host),
		ai.WithAPIKey(f.AI.APIKey),
		ai.WithSummarizerModel(f.AI.SummarizerModel),
		ai.WithExtractorModel(f.AI.ExtractorModel),
		ai.WithExtractorBackend(f.AI.Extractor),
		ai.WithNERHost(f.AI.NERHost),
		ai.WithLexiconPath(f.AI.Lexicon),
		ai.WithWarmup(f.AI.Warmup),
		ai.WithTimeout(f.AI.Timeout),
	)
}

// PipelineConfig returns the per-call processing configuration.
func (f *File) PipelineConfig() *pipeline.Config {
	p := f.Pipeline
	return &pipeline.Config{
		MaxChunkTokens:  p.MaxChunkTokens,
		OverlapTokens:   p.OverlapTokens,
		LookbackTokens:  p.LookbackTokens,
		MaxTotalLength:  p.MaxTotalLength,
		Summary:         ai.LengthBounds{Min: p.SummaryMin, Max: p.SummaryMax},
		ShortInputWords: p.ShortInputWords,
		Labels:          append([]string(nil), p.Labels...),
		Disclaimer:      p.Disclaimer,
	}
}

// PipelineOptions returns the scheduling options for pipeline.NewPipeline.
// The tokenizer is not included; it is resolved by the caller.
func (f *File) PipelineOptions() ([]pipeline.Option, error) {
	policy, err := pipeline.ParseDedupPolicy(f.Pipeline.Dedup)
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{
		pipeline.WithRetry(f.Pipeline.RetryAttempts, f.Pipeline.RetryDelay),
		pipeline.WithDedupPolicy(policy),
	}
	if f.Pipeline.PoolSize > 0 {
		opts = append(opts, pipeline.WithPoolSize(f.Pipeline.PoolSize))
	}
	return opts, nil
}
