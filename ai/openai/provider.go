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


package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/reportlens/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider implements ai.Provider using OpenAI-compatible chat models for
// both summarization and entity extraction.
type Provider struct {
	config *ai.Config
	logger *slog.Logger

	// newModel creates a chat client for a model name. Tests replace it.
	newModel func(model string) (llms.Model, error)
}

// NewProvider creates a new OpenAI-compatible provider with the given configuration.
// No connection is made until a model is loaded.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	return newProvider(config)
}

func newProvider(config *ai.Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "openai-provider"),
	}
	p.newModel = p.dial
	return p, nil
}

// dial creates a langchaingo client for model.
// Use "none" as token for local OpenAI-compatible services that don't require authentication.
func (p *Provider) dial(model string) (llms.Model, error) {
	token := p.config.APIKey
	if token == "" {
		token = "none"
	}
	return openai.New(
		openai.WithBaseURL(p.config.Host),
		openai.WithToken(token),
		openai.WithModel(model),
	)
}

// LoadExtractor creates the LLM entity extractor.
func (p *Provider) LoadExtractor(ctx context.Context) (ai.EntityExtractor, error) {
	client, err := p.load(ctx, p.config.ExtractorModel)
	if err != nil {
		return nil, err
	}
	return newExtractor(client, p.config), nil
}

// LoadSummarizer creates the summarizer.
func (p *Provider) LoadSummarizer(ctx context.Context) (ai.Summarizer, error) {
	client, err := p.load(ctx, p.config.SummarizerModel)
	if err != nil {
		return nil, err
	}
	return newSummarizer(client, p.config), nil
}

func (p *Provider) load(ctx context.Context, model string) (llms.Model, error) {
	client, err := p.newModel(model)
	if err != nil {
		return nil, fmt.Errorf("creating client for %s: %w", model, err)
	}
	if p.config.Warmup {
		if err := p.warmup(ctx, client, model); err != nil {
			return nil, err
		}
	}
	p.logger.Debug("model loaded", "model", model, "host", p.config.Host)
	return client, nil
}

// warmup sends a one-token request so that a missing model or unreachable
// host is reported at load time.
func (p *Provider) warmup(ctx context.Context, client llms.Model, model string) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if _, err := llms.GenerateFromSinglePrompt(ctx, client, "ping", llms.WithMaxTokens(1)); err != nil {
		p.logger.Error("warmup failed", "model", model, "err", err)
		return fmt.Errorf("warming up %s: %w", model, err)
	}
	return nil
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
