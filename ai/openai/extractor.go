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
	"encoding/json"
	"log/slog"
	"time"

	"github.com/poiesic/reportlens/ai"
	"github.com/tmc/langchaingo/llms"
)

// parseAttempts bounds how often a malformed response is regenerated.
const parseAttempts = 3

// Extractor implements ai.EntityExtractor with a chat model in JSON mode.
// The model names the mentions; offsets are found by scanning the text, so a
// mention the model invented is dropped.
type Extractor struct {
	client  llms.Model
	timeout time.Duration
	prompt  string
	logger  *slog.Logger
}

func newExtractor(client llms.Model, config *ai.Config) *Extractor {
	return &Extractor{
		client:  client,
		timeout: config.Timeout,
		prompt:  buildExtractionPrompt(),
		logger:  slog.Default().With("component", "openai-extractor"),
	}
}

// ExtractEntities returns the entity mentions in text with byte offsets.
func (e *Extractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, e.prompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < parseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []ai.ExtractedEntity{}, nil
		}

		responseText := cleanResponse(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, lastErr
	}

	mentions := make([]ai.Mention, 0, len(result.Entities))
	for _, m := range result.Entities {
		mentions = append(mentions, ai.Mention{Text: m.Text, Label: ai.NormalizeLabel(m.Label)})
	}
	found := ai.LocateMentions(text, mentions)

	e.logger.Debug("extracted entities",
		"mentions", len(result.Entities),
		"located", len(found))
	return found, nil
}
