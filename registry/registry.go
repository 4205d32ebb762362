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


package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/reportlens/ai"
	"github.com/poiesic/reportlens/core"
)

// ErrProviderRequired is returned when New is called without a provider.
var ErrProviderRequired = errors.New("model provider is required")

// slot holds one lazily loaded model handle.
type slot[T any] struct {
	once   sync.Once
	handle T
	err    error
}

func (s *slot[T]) get(load func() (T, error)) (T, error) {
	s.once.Do(func() {
		s.handle, s.err = load()
	})
	return s.handle, s.err
}

// Registry loads each model at most once and hands out the cached handle to
// every caller. Handles are shared read-only. A failed load is remembered and
// reported to later callers without retrying.
type Registry struct {
	provider ai.Provider
	logger   *slog.Logger

	extractor  slot[ai.EntityExtractor]
	summarizer slot[ai.Summarizer]

	loads  atomic.Int64
	closed atomic.Bool
}

// Option configures a Registry.
type Option func(*Registry) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// New creates a registry that loads models through provider.
func New(provider ai.Provider, opts ...Option) (*Registry, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	r := &Registry{
		provider: provider,
		logger:   slog.Default().With("component", "registry"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Extractor returns the entity extractor, loading it on first use.
// Concurrent first calls share a single load.
func (r *Registry) Extractor(ctx context.Context) (ai.EntityExtractor, error) {
	return r.extractor.get(func() (ai.EntityExtractor, error) {
		return load(ctx, r, "extractor", r.provider.LoadExtractor)
	})
}

// Summarizer returns the summarizer, loading it on first use.
// Concurrent first calls share a single load.
func (r *Registry) Summarizer(ctx context.Context) (ai.Summarizer, error) {
	return r.summarizer.get(func() (ai.Summarizer, error) {
		return load(ctx, r, "summarizer", r.provider.LoadSummarizer)
	})
}

// load runs one provider load. The load is detached from the caller's
// cancellation because its result is shared with every later caller.
func load[T any](ctx context.Context, r *Registry, kind string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if r.closed.Load() {
		return zero, fmt.Errorf("%w: %s: registry closed", core.ErrModelUnavailable, kind)
	}

	r.loads.Add(1)
	start := time.Now()
	handle, err := fn(context.WithoutCancel(ctx))
	if err != nil {
		r.logger.Error("model load failed", "model", kind, "err", err)
		return zero, fmt.Errorf("%w: %s: %w", core.ErrModelUnavailable, kind, err)
	}
	r.logger.Info("model loaded", "model", kind, "elapsed", time.Since(start))
	return handle, nil
}

// LoadCount returns the number of load attempts made so far.
func (r *Registry) LoadCount() int {
	return int(r.loads.Load())
}

// Warmup loads both models, returning the first failure.
func (r *Registry) Warmup(ctx context.Context) error {
	if _, err := r.Extractor(ctx); err != nil {
		return err
	}
	_, err := r.Summarizer(ctx)
	return err
}

// Close closes loaded handles that hold resources, then the provider.
// Models can no longer be loaded afterwards.
func (r *Registry) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	// Mark unloaded slots as done so they never load after Close.
	r.extractor.once.Do(func() { r.extractor.err = fmt.Errorf("%w: registry closed", core.ErrModelUnavailable) })
	r.summarizer.once.Do(func() { r.summarizer.err = fmt.Errorf("%w: registry closed", core.ErrModelUnavailable) })

	var errs []error
	for _, handle := range []any{r.extractor.handle, r.summarizer.handle} {
		if closer, ok := handle.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	errs = append(errs, r.provider.Close())
	return errors.Join(errs...)
}
