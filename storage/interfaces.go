package storage

import (
	"context"

	"github.com/poiesic/reportlens/core"
)

// ReportCache holds finished reports for the lifetime of a session so that
// resubmitting the same text skips inference. Entries expire on their own;
// nothing outlives the process.
// Implementations must be thread-safe and support concurrent access.
type ReportCache interface {
	// Get returns the report stored under key.
	// Returns ErrNotFound if the key is absent or expired.
	Get(ctx context.Context, key core.ID) (*core.StructuredReport, error)

	// Put stores a report under key, replacing any previous entry.
	Put(ctx context.Context, key core.ID, report *core.StructuredReport) error

	// Delete removes the entry for key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key core.ID) error

	// Close releases resources and drops every entry.
	Close() error
}
