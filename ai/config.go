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


package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Extractor backends.
const (
	BackendLLM     = "llm"
	BackendNER     = "ner"
	BackendLexicon = "lexicon"
)

// Config holds configuration for model providers.
type Config struct {
	// Host is the base URL of the OpenAI-compatible chat API used for
	// summarization and, with the llm backend, extraction.
	// Example: "http://localhost:11434/v1" for a local Ollama server
	Host string

	// APIKey is sent as a bearer token. Local servers usually need none.
	APIKey string

	// SummarizerModel is the model identifier used for summaries.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	SummarizerModel string

	// ExtractorModel is the model identifier used by the llm extraction backend.
	ExtractorModel string

	// ExtractorBackend selects the entity extractor: "llm", "ner" or "lexicon".
	// Default: "llm"
	ExtractorBackend string

	// NERHost is the base URL of the NER service used by the ner backend.
	// Example: "http://localhost:8000"
	NERHost string

	// LexiconPath is a YAML lexicon for the lexicon backend.
	// Empty selects the built-in lexicon.
	LexiconPath string

	// Warmup sends a probe request when a model is loaded so that an
	// unreachable host fails the load instead of the first chunk.
	Warmup bool

	// Timeout bounds a single model request.
	// Default: 60s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the chat API host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithSummarizerModel sets the summarization model identifier.
func WithSummarizerModel(model string) ConfigOption {
	return func(c *Config) {
		c.SummarizerModel = model
	}
}

// WithExtractorModel sets the extraction model identifier.
func WithExtractorModel(model string) ConfigOption {
	return func(c *Config) {
		c.ExtractorModel = model
	}
}

// WithModel sets both summarizer and extractor to the same model.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.SummarizerModel = model
		c.ExtractorModel = model
	}
}

// WithExtractorBackend selects the entity extraction backend.
func WithExtractorBackend(backend string) ConfigOption {
	return func(c *Config) {
		c.ExtractorBackend = backend
	}
}

// WithNERHost sets the NER service host URL.
func WithNERHost(host string) ConfigOption {
	return func(c *Config) {
		c.NERHost = host
	}
}

// WithLexiconPath sets the lexicon file used by the lexicon backend.
func WithLexiconPath(path string) ConfigOption {
	return func(c *Config) {
		c.LexiconPath = path
	}
}

// WithWarmup enables or disables the load-time probe request.
func WithWarmup(enabled bool) ConfigOption {
	return func(c *Config) {
		c.Warmup = enabled
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config with sensible defaults for a local OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Host:             "http://localhost:11434/v1",
		SummarizerModel:  "qwen2.5:3b",
		ExtractorModel:   "qwen2.5:3b",
		ExtractorBackend: BackendLLM,
		NERHost:          "http://localhost:8000",
		Timeout:          60 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithExtractorBackend(BackendNER),
//	    WithNERHost("http://localhost:8000"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to Host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
	c.NERHost = strings.TrimSuffix(c.NERHost, "/")
	c.ExtractorBackend = strings.ToLower(strings.TrimSpace(c.ExtractorBackend))
	if c.ExtractorBackend == "" {
		c.ExtractorBackend = BackendLLM
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.SummarizerModel == "" {
		return errors.New("ai config: SummarizerModel is required")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be positive")
	}

	switch c.ExtractorBackend {
	case BackendLLM:
		if c.ExtractorModel == "" {
			return errors.New("ai config: ExtractorModel is required for the llm backend")
		}
	case BackendNER:
		if c.NERHost == "" {
			return errors.New("ai config: NERHost is required for the ner backend")
		}
	case BackendLexicon:
	default:
		return fmt.Errorf("ai config: unknown ExtractorBackend %q", c.ExtractorBackend)
	}
	return nil
}
