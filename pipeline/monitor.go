package pipeline

import (
	"github.com/poiesic/reportlens/chunker"
	"github.com/poiesic/reportlens/core"
)

// Monitor provides hooks to observe report processing.
// ChunkDone and ChunkFailed are called from worker goroutines and must be
// safe for concurrent use.
type Monitor interface {
	Start(report core.RawReport)
	AfterSplit(chunks []chunker.Chunk)
	ChunkDone(index int, entities int)
	ChunkFailed(failure core.ChunkFailure)
	Finish(report *core.StructuredReport)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.RawReport)          {}
func (n *noopMonitor) AfterSplit(_ []chunker.Chunk)    {}
func (n *noopMonitor) ChunkDone(_ int, _ int)          {}
func (n *noopMonitor) ChunkFailed(_ core.ChunkFailure) {}
func (n *noopMonitor) Finish(_ *core.StructuredReport) {}
