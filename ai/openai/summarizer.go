package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/reportlens/ai"
	"github.com/tmc/langchaingo/llms"
)

// ErrEmptySummary is returned when the model answers with no text.
var ErrEmptySummary = errors.New("model returned an empty summary")

// Summarizer implements ai.Summarizer with a chat model.
type Summarizer struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

func newSummarizer(client llms.Model, config *ai.Config) *Summarizer {
	return &Summarizer{
		client:  client,
		timeout: config.Timeout,
		logger:  slog.Default().With("component", "openai-summarizer"),
	}
}

// Summarize asks the model for a plain-language summary within bounds.
func (s *Summarizer) Summarize(ctx context.Context, text string, bounds ai.LengthBounds) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, buildSummaryPrompt(bounds)),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	// Model tokens are shorter than words; leave room before the hard cut.
	response, err := s.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.0),
		llms.WithMaxTokens(bounds.Max*2),
	)
	if err != nil {
		s.logger.Error("failed to generate summary", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrEmptySummary
	}

	summary := strings.TrimSpace(response.Choices[0].Content)
	if summary == "" {
		return "", ErrEmptySummary
	}
	s.logger.Debug("summarized", "input_bytes", len(text), "summary_bytes", len(summary))
	return summary, nil
}
