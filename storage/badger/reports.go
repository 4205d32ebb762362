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

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/reportlens/core"
	"github.com/poiesic/reportlens/storage"
)

// DefaultTTL is how long a cached report lives when no TTL is given.
const DefaultTTL = 30 * time.Minute

// ReportCache implements storage.ReportCache on an in-memory Badger backend.
type ReportCache struct {
	backend *Backend
	ttl     time.Duration
	owned   bool
	logger  *slog.Logger
}

var _ storage.ReportCache = (*ReportCache)(nil)

// NewReportCache creates a report cache on an existing backend.
// The caller keeps ownership of the backend. A ttl <= 0 selects DefaultTTL.
func NewReportCache(backend *Backend, ttl time.Duration) (storage.ReportCache, error) {
	return newReportCache(backend, ttl, false)
}

// NewMemoryReportCache opens a private in-memory backend and returns a cache
// that closes it on Close. A ttl <= 0 selects DefaultTTL.
func NewMemoryReportCache(ttl time.Duration) (storage.ReportCache, error) {
	backend, err := OpenBackend(nil)
	if err != nil {
		return nil, err
	}
	cache, err := newReportCache(backend, ttl, true)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return cache, nil
}

func newReportCache(backend *Backend, ttl time.Duration, owned bool) (*ReportCache, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReportCache{
		backend: backend,
		ttl:     ttl,
		owned:   owned,
		logger:  backend.logger,
	}, nil
}

// TTL returns how long entries live.
func (c *ReportCache) TTL() time.Duration {
	return c.ttl
}

// Get retrieves a cached report.
func (c *ReportCache) Get(ctx context.Context, key core.ID) (*core.StructuredReport, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	var report *core.StructuredReport
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeReportKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			report, unmarshalErr = storage.UnmarshalReport(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Put stores a report with the cache TTL.
func (c *ReportCache) Put(ctx context.Context, key core.ID, report *core.StructuredReport) error {
	if report == nil {
		return fmt.Errorf("%w: report is nil", storage.ErrSerializationFailed)
	}
	if err := c.check(ctx); err != nil {
		return err
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeReportKey(key), storage.MarshalReport(report)).WithTTL(c.ttl)
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes a cached report.
func (c *ReportCache) Delete(ctx context.Context, key core.ID) error {
	if err := c.check(ctx); err != nil {
		return err
	}

	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeReportKey(key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close closes the backend if the cache owns it.
func (c *ReportCache) Close() error {
	if !c.owned || c.backend.IsClosed() {
		return nil
	}
	return c.backend.Close()
}

func (c *ReportCache) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}
