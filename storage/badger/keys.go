package badger

import (
	"github.com/poiesic/reportlens/core"
	"github.com/poiesic/reportlens/storage"
)

// Key prefixes for different data types
const (
	reportPrefix = "report:"
)

// makeReportKey generates a key for a cached report: the prefix followed by
// the serialized ID.
func makeReportKey(key core.ID) []byte {
	return append([]byte(reportPrefix), storage.MarshalID(key)...)
}
