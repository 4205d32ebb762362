package core

import (
	"encoding/binary"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier used for cache keys.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DefaultDisclaimer is attached to every report, partial or complete.
const DefaultDisclaimer = "This summary is for informational purposes only and does not " +
	"constitute medical advice or diagnosis."

// NoContentNotice is set on reports produced from empty input.
const NoContentNotice = "no content: the report is empty, nothing was analyzed"

// RawReport is the immutable input of a single processing call.
type RawReport struct {
	Text   string // Free text as submitted
	Source string // Optional origin, e.g. an uploaded filename
	Length int    // Length of Text in characters
}

// NewRawReport creates a RawReport and records its length in characters.
func NewRawReport(text, source string) RawReport {
	return RawReport{
		Text:   text,
		Source: source,
		Length: utf8.RuneCountInString(text),
	}
}

// Entity is a labeled span of the original report text.
// Start and End are byte offsets into RawReport.Text, never into a chunk.
type Entity struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// SummaryFragment is the summarizer output for one chunk.
type SummaryFragment struct {
	ChunkIndex int
	Text       string
}

// FailureStage names the step at which a model call failed.
type FailureStage string

const (
	StageExtract   FailureStage = "extract"
	StageSummarize FailureStage = "summarize"
	StageCombine   FailureStage = "combine"
)

// ChunkFailure marks a skipped contribution in a partial report.
// ChunkIndex is -1 for failures that are not tied to a chunk.
type ChunkFailure struct {
	ChunkIndex int          `json:"chunk"`
	Stage      FailureStage `json:"stage"`
	Err        string       `json:"error"`
}

// StructuredReport is the combined result of one processing call.
// It is immutable once returned.
type StructuredReport struct {
	ID         string
	Source     string
	Entities   []Entity
	Summary    string
	Disclaimer string
	Notice     string
	ChunkCount int
	Failures   []ChunkFailure
	CreatedAt  time.Time
}

// Partial reports whether any chunk contribution was skipped.
func (r *StructuredReport) Partial() bool {
	return len(r.Failures) > 0
}

// Categories returns the entity categories present in the report, sorted.
func (r *StructuredReport) Categories() []string {
	seen := make(map[string]bool)
	categories := make([]string, 0)
	for _, e := range r.Entities {
		if !seen[e.Category] {
			seen[e.Category] = true
			categories = append(categories, e.Category)
		}
	}
	sort.Strings(categories)
	return categories
}

// EntitiesByCategory groups entity texts by category.
// Texts within a category are unique and sorted.
func (r *StructuredReport) EntitiesByCategory() map[string][]string {
	sets := make(map[string]map[string]bool)
	for _, e := range r.Entities {
		if sets[e.Category] == nil {
			sets[e.Category] = make(map[string]bool)
		}
		sets[e.Category][e.Text] = true
	}

	grouped := make(map[string][]string, len(sets))
	for category, texts := range sets {
		items := make([]string, 0, len(texts))
		for text := range texts {
			items = append(items, text)
		}
		sort.Strings(items)
		grouped[category] = items
	}
	return grouped
}

// Map exposes the report as a plain mapping from field name to value so that
// rendering layers don't couple to this type.
func (r *StructuredReport) Map() map[string]any {
	entities := make([]map[string]any, len(r.Entities))
	for i, e := range r.Entities {
		entities[i] = map[string]any{
			"text":     e.Text,
			"category": e.Category,
			"start":    e.Start,
			"end":      e.End,
		}
	}
	failures := make([]map[string]any, len(r.Failures))
	for i, f := range r.Failures {
		failures[i] = map[string]any{
			"chunk": f.ChunkIndex,
			"stage": string(f.Stage),
			"error": f.Err,
		}
	}
	return map[string]any{
		"id":         r.ID,
		"source":     r.Source,
		"entities":   entities,
		"summary":    r.Summary,
		"disclaimer": r.Disclaimer,
		"notice":     r.Notice,
		"chunks":     r.ChunkCount,
		"partial":    r.Partial(),
		"failures":   failures,
		"created_at": r.CreatedAt.Format(time.RFC3339),
	}
}
