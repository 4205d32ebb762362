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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/reportlens/ai"
	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/core"
)

// Models hands out shared model handles. *registry.Registry implements it.
type Models interface {
	Extractor(ctx context.Context) (ai.EntityExtractor, error)
	Summarizer(ctx context.Context) (ai.Summarizer, error)
}

// Pipeline turns raw report text into a StructuredReport.
// Chunks are processed concurrently on a worker pool; results are merged in
// chunk order, so the output does not depend on completion order.
// A Pipeline is safe for concurrent use.
type Pipeline struct {
	models    Models
	pool      *ants.Pool
	tokenizer chunker.Tokenizer
	attempts  uint
	delay     time.Duration
	dedup     DedupPolicy
	monitor   Monitor
	logger    *slog.Logger
	ids       *core.ReportIDs
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent chunk processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithTokenizer sets the tokenizer used to measure chunks and summaries.
// Default is the whitespace word tokenizer.
func WithTokenizer(tok chunker.Tokenizer) Option {
	return func(p *Pipeline) error {
		if tok == nil {
			tok = chunker.NewWordTokenizer()
		}
		p.tokenizer = tok
		return nil
	}
}

// WithRetry sets how many times a failing model call is attempted for one
// chunk, and the initial delay between attempts. Delays grow exponentially.
// Default is 2 attempts with a 200ms delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts < 1 {
			return fmt.Errorf("retry attempts must be >= 1, got %d", attempts)
		}
		p.attempts = attempts
		p.delay = delay
		return nil
	}
}

// WithDedupPolicy sets how entities repeated across chunk overlaps are merged.
// Default is DedupPreferEarlier.
func WithDedupPolicy(policy DedupPolicy) Option {
	return func(p *Pipeline) error {
		if policy != DedupPreferEarlier && policy != DedupWidestContext {
			return fmt.Errorf("%w: %s", ErrUnknownDedupPolicy, policy)
		}
		p.dedup = policy
		return nil
	}
}

// WithMonitor sets the monitor used by Process.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		p.monitor = monitor
		return nil
	}
}

// NewPipeline creates a pipeline that obtains its models from models.
func NewPipeline(models Models, opts ...Option) (*Pipeline, error) {
	if models == nil {
		return nil, ErrModelsRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		models:    models,
		pool:      pool,
		tokenizer: chunker.NewWordTokenizer(),
		attempts:  2,
		delay:     200 * time.Millisecond,
		dedup:     DedupPreferEarlier,
		monitor:   &noopMonitor{},
		logger:    slog.Default(),
		ids:       core.NewReportIDs(),
		now:       func() time.Time { return time.Now().UTC() },
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	if p.monitor == nil {
		p.monitor = &noopMonitor{}
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Process analyzes a report with the pipeline's monitor.
// A nil cfg selects DefaultConfig().
func (p *Pipeline) Process(ctx context.Context, report core.RawReport, cfg *Config) (*core.StructuredReport, error) {
	return p.ProcessWithMonitor(ctx, report, cfg, p.monitor)
}

// ProcessWithMonitor analyzes a report and reports progress to monitor.
//
// Input longer than cfg.MaxTotalLength characters is rejected with
// core.ErrInputTooLarge before any model is touched. Empty input yields a
// report carrying core.NoContentNotice without invoking a model. A model that
// cannot be loaded fails the call with core.ErrModelUnavailable. A model call
// that fails for one chunk only skips that chunk's contribution; the report
// lists the failure and is marked partial.
func (p *Pipeline) ProcessWithMonitor(ctx context.Context, report core.RawReport, cfg *Config, monitor Monitor) (*core.StructuredReport, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(report)

	length := utf8.RuneCountInString(report.Text)
	if length > cfg.MaxTotalLength {
		return nil, fmt.Errorf("%w: %d characters exceeds the limit of %d",
			core.ErrInputTooLarge, length, cfg.MaxTotalLength)
	}

	splitter, err := chunker.NewSplitter(p.tokenizer, chunker.WithLookback(cfg.LookbackTokens))
	if err != nil {
		return nil, err
	}
	normalized, chunks, err := splitter.NormalizeAndSplit(report.Text, cfg.MaxChunkTokens, cfg.OverlapTokens)
	if err != nil {
		return nil, err
	}
	monitor.AfterSplit(chunks)

	result := &core.StructuredReport{
		ID:         p.ids.Next(),
		Source:     report.Source,
		Entities:   []core.Entity{},
		Disclaimer: cfg.Disclaimer,
		ChunkCount: len(chunks),
		Failures:   []core.ChunkFailure{},
		CreatedAt:  p.now(),
	}
	if len(chunks) == 0 {
		result.Notice = core.NoContentNotice
		if err := core.ValidateReport(result, report.Text); err != nil {
			return nil, err
		}
		monitor.Finish(result)
		return result, nil
	}

	extractor, err := p.models.Extractor(ctx)
	if err != nil {
		return nil, unavailable(err)
	}

	// Text too short to condense is its own summary.
	var summarizer ai.Summarizer
	if wordCount(normalized.Text) >= cfg.ShortInputWords {
		summarizer, err = p.models.Summarizer(ctx)
		if err != nil {
			return nil, unavailable(err)
		}
	}

	results := make([]chunkResult, len(chunks))
	run := &chunkRun{
		pipeline:   p,
		cfg:        cfg,
		report:     report,
		normalized: normalized,
		chunks:     chunks,
		extractor:  extractor,
		summarizer: summarizer,
		allow:      cfg.labelFilter(),
		monitor:    monitor,
	}

	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = run.process(ctx, i)
		}
		if submitErr := p.pool.Submit(task); submitErr != nil {
			p.logger.Warn("worker pool rejected chunk, running inline", "chunk", i, "err", submitErr)
			task()
		}
	}
	wg.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var candidates []candidate
	var fragments []core.SummaryFragment
	for _, r := range results {
		candidates = append(candidates, r.candidates...)
		if r.fragment != nil {
			fragments = append(fragments, *r.fragment)
		}
		result.Failures = append(result.Failures, r.failures...)
	}
	result.Entities = mergeEntities(candidates, p.dedup)

	if summarizer == nil {
		result.Summary = truncateTokens(p.tokenizer, normalized.Text, cfg.Summary.Max)
	} else {
		c := &combiner{pipeline: p, summarizer: summarizer, cfg: cfg}
		summary, failure := c.combine(ctx, fragments)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if failure != nil {
			monitor.ChunkFailed(*failure)
			result.Failures = append(result.Failures, *failure)
		}
		result.Summary = summary
	}

	if result.Partial() {
		p.logger.Warn("report is partial", "id", result.ID, "failures", len(result.Failures))
	}
	p.logger.Debug("processed report", "id", result.ID, "chunks", len(chunks),
		"entities", len(result.Entities), "candidates", len(candidates))

	if err := core.ValidateReport(result, report.Text); err != nil {
		return nil, err
	}
	monitor.Finish(result)
	return result, nil
}

// withRetry runs a model call, retrying transient failures with exponential
// backoff until the attempts run out or ctx is done.
func (p *Pipeline) withRetry(ctx context.Context, call func() error) error {
	return retry.Do(
		call,
		retry.Attempts(p.attempts),
		retry.Delay(p.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
	)
}

func unavailable(err error) error {
	if errors.Is(err, core.ErrModelUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
}

// chunkResult is the contribution of one chunk.
type chunkResult struct {
	candidates []candidate
	fragment   *core.SummaryFragment
	failures   []core.ChunkFailure
}

// chunkRun holds the state shared by the chunk tasks of one Process call.
type chunkRun struct {
	pipeline   *Pipeline
	cfg        *Config
	report     core.RawReport
	normalized *chunker.Normalized
	chunks     []chunker.Chunk
	extractor  ai.EntityExtractor
	summarizer ai.Summarizer
	allow      func(string) bool
	monitor    Monitor
}

func (r *chunkRun) process(ctx context.Context, index int) chunkResult {
	var result chunkResult
	chunk := r.chunks[index]
	logger := r.pipeline.logger

	if ctx.Err() != nil {
		return result
	}

	var extracted []ai.ExtractedEntity
	err := r.pipeline.withRetry(ctx, func() error {
		var err error
		extracted, err = r.extractor.ExtractEntities(ctx, chunk.Text)
		return err
	})
	if err != nil {
		result.failures = append(result.failures, r.fail(index, core.StageExtract, err))
	} else {
		for _, e := range extracted {
			c, ok := r.remap(chunk, e)
			if !ok {
				logger.Debug("dropping entity with unusable span", "chunk", index,
					"label", e.Label, "start", e.Start, "end", e.End)
				continue
			}
			result.candidates = append(result.candidates, c)
		}
	}

	if r.summarizer != nil {
		if fragment, err := r.summarize(ctx, chunk); err != nil {
			result.failures = append(result.failures, r.fail(index, core.StageSummarize, err))
		} else if fragment != "" {
			result.fragment = &core.SummaryFragment{ChunkIndex: index, Text: fragment}
		}
	}

	if len(result.failures) == 0 {
		r.monitor.ChunkDone(index, len(result.candidates))
	}
	return result
}

// summarize condenses the part of a chunk not already seen by the previous one.
func (r *chunkRun) summarize(ctx context.Context, chunk chunker.Chunk) (string, error) {
	text := freshText(chunk)
	words := wordCount(text)
	if words == 0 {
		return "", nil
	}
	if words < r.cfg.ShortInputWords {
		return text, nil
	}

	bounds := fitBounds(words, r.cfg.Summary)
	var out string
	err := r.pipeline.withRetry(ctx, func() error {
		var err error
		out, err = r.summarizer.Summarize(ctx, text, bounds)
		return err
	})
	if err != nil {
		return "", err
	}
	return truncateTokens(r.pipeline.tokenizer, out, r.cfg.MaxChunkTokens), nil
}

func (r *chunkRun) fail(index int, stage core.FailureStage, err error) core.ChunkFailure {
	failure := core.ChunkFailure{
		ChunkIndex: index,
		Stage:      stage,
		Err:        fmt.Errorf("%w: %w", core.ErrInferenceFailure, err).Error(),
	}
	r.pipeline.logger.Warn("model call failed, skipping chunk contribution",
		"chunk", index, "stage", stage, "err", err)
	r.monitor.ChunkFailed(failure)
	return failure
}

// remap converts an entity found in a chunk into a candidate with offsets in
// the original report text.
func (r *chunkRun) remap(chunk chunker.Chunk, e ai.ExtractedEntity) (candidate, bool) {
	label := ai.NormalizeLabel(e.Label)
	if label == "" || !r.allow(label) {
		return candidate{}, false
	}
	if e.Start < 0 || e.End > len(chunk.Text) || e.Start >= e.End {
		return candidate{}, false
	}
	if !core.IsBoundary(chunk.Text, e.Start) || !core.IsBoundary(chunk.Text, e.End) {
		return candidate{}, false
	}
	if e.Text != "" && chunk.Text[e.Start:e.End] != e.Text {
		return candidate{}, false
	}

	start, end := chunk.Start+e.Start, chunk.Start+e.End
	origStart, origEnd, err := r.normalized.OriginalSpan(start, end)
	if err != nil {
		return candidate{}, false
	}
	entity := core.Entity{
		Text:     r.report.Text[origStart:origEnd],
		Category: label,
		Start:    origStart,
		End:      origEnd,
	}
	if err := core.ValidateEntity(entity, r.report.Text); err != nil {
		return candidate{}, false
	}

	left, right := math.MaxInt, math.MaxInt
	if chunk.Index > 0 {
		left = start - chunk.Start
	}
	if chunk.Index < len(r.chunks)-1 {
		right = chunk.End - end
	}
	return candidate{entity: entity, chunk: chunk.Index, margin: min(left, right)}, true
}
