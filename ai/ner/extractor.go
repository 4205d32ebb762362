package ner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/poiesic/reportlens/ai"
)

// ErrServiceStatus indicates the NER service answered with a non-2xx status.
var ErrServiceStatus = errors.New("ner service error")

type request struct {
	Text string `json:"text"`
}

type response struct {
	Entities []span `json:"entities"`
}

// span offsets are character offsets, as spaCy reports them.
type span struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Extractor implements ai.EntityExtractor against an HTTP NER service that
// accepts POST /ner {"text": ...} and answers
// {"entities": [{"text", "label", "start", "end"}]}.
type Extractor struct {
	client *resty.Client
	logger *slog.Logger
}

// NewExtractor creates an extractor for the service at config.NERHost.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	return newExtractor(config)
}

func newExtractor(config *ai.Config) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client := resty.New().
		SetBaseURL(config.NERHost).
		SetTimeout(config.Timeout).
		SetHeader("Accept", "application/json")
	return &Extractor{
		client: client,
		logger: slog.Default().With("component", "ner-extractor"),
	}, nil
}

// ExtractEntities posts text to the service and converts the returned
// character offsets to byte offsets.
func (e *Extractor) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	var out response
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(request{Text: text}).
		SetResult(&out).
		Post("/ner")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %d: %s", ErrServiceStatus, resp.StatusCode(), resp.String())
	}

	offsets := byteOffsets(text)
	found := make([]ai.ExtractedEntity, 0, len(out.Entities))
	for _, s := range out.Entities {
		if s.Start < 0 || s.End > len(offsets)-1 || s.Start >= s.End {
			e.logger.Warn("dropping entity with invalid span", "text", s.Text, "start", s.Start, "end", s.End)
			continue
		}
		start, end := offsets[s.Start], offsets[s.End]
		if s.Text != "" && text[start:end] != s.Text {
			e.logger.Warn("dropping entity that does not match its span", "text", s.Text, "start", s.Start)
			continue
		}
		found = append(found, ai.ExtractedEntity{
			Text:  text[start:end],
			Label: ai.NormalizeLabel(s.Label),
			Start: start,
			End:   end,
		})
	}

	e.logger.Debug("extracted entities", "returned", len(out.Entities), "kept", len(found))
	return ai.ResolveOverlaps(found), nil
}

// Health checks GET /health.
func (e *Extractor) Health(ctx context.Context) error {
	resp, err := e.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%w: %d: %s", ErrServiceStatus, resp.StatusCode(), resp.String())
	}
	return nil
}

// byteOffsets maps each character index of text, plus the end, to a byte offset.
func byteOffsets(text string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}

// Loader implements ai.ExtractorLoader for the NER service.
type Loader struct {
	config *ai.Config
}

// NewLoader creates a loader that probes the service health before handing
// out an extractor.
func NewLoader(config *ai.Config) ai.ExtractorLoader {
	return &Loader{config: config}
}

// LoadExtractor creates the extractor and checks that the service is up.
func (l *Loader) LoadExtractor(ctx context.Context) (ai.EntityExtractor, error) {
	extractor, err := newExtractor(l.config)
	if err != nil {
		return nil, err
	}
	if err := extractor.Health(ctx); err != nil {
		return nil, fmt.Errorf("ner service at %s: %w", l.config.NERHost, err)
	}
	return extractor, nil
}
