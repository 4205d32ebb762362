package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/core"
)

// progressMonitor reports chunk progress for one report. It implements
// pipeline.Monitor.
type progressMonitor struct {
	writer    io.Writer
	source    string
	total     int
	finished  map[int]bool
	failed    int
	startTime time.Time
	mu        sync.Mutex
}

func newProgressMonitor(writer io.Writer) *progressMonitor {
	return &progressMonitor{
		writer:   writer,
		finished: make(map[int]bool),
	}
}

func (p *progressMonitor) Start(report core.RawReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.source = report.Source
	p.startTime = time.Now()
	p.total = 0
	p.failed = 0
	clear(p.finished)
}

func (p *progressMonitor) AfterSplit(chunks []chunker.Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = len(chunks)
	p.report()
}

func (p *progressMonitor) ChunkDone(index, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance(index)
}

func (p *progressMonitor) ChunkFailed(f core.ChunkFailure) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failed++
	if f.ChunkIndex >= 0 {
		p.advance(f.ChunkIndex)
	}
}

// Finish prints the final line. Cached reports never split, so nothing
// was printed for them.
func (p *progressMonitor) Finish(*core.StructuredReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total == 0 {
		return
	}
	p.report()
	fmt.Fprintln(p.writer)
}

// advance counts a chunk once, however many of its stages failed.
// Must be called with lock held.
func (p *progressMonitor) advance(index int) {
	if p.finished[index] {
		return
	}
	p.finished[index] = true
	p.report()
}

// report prints the current progress. Must be called with lock held.
func (p *progressMonitor) report() {
	if p.total == 0 {
		return
	}
	current := min(len(p.finished), p.total)
	elapsed := time.Since(p.startTime)
	rate := float64(current) / max(elapsed.Seconds(), 1e-9)
	percentage := float64(current) / float64(p.total) * 100.0

	fmt.Fprintf(p.writer, "\r%s: %d/%d chunks (%.1f%%) - %.1f chunks/s",
		p.source, current, p.total, percentage, rate)
	if p.failed > 0 {
		fmt.Fprintf(p.writer, " - %d failed", p.failed)
	}
}
