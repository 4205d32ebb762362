package core

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

// ReportIDs issues lexically sortable report identifiers.
// It is safe for concurrent use.
type ReportIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewReportIDs creates a new ID source backed by monotonic entropy.
func NewReportIDs() *ReportIDs {
	return &ReportIDs{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns a new ULID string.
func (r *ReportIDs) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Now(), r.entropy).String()
}
