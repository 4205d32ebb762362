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

// Package storage provides the session report cache abstraction.
//
// # Constructor Return Type Pattern
//
// Public constructors return the ReportCache interface rather than a concrete
// type:
//
//	cache, err := badger.NewMemoryReportCache(10 * time.Minute) // returns storage.ReportCache
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Serialization
//
// Reports are stored in the compact MUS binary format. MarshalReport and
// UnmarshalReport are the only entry points; backends never see the
// encoding.
//
// # Lifetime
//
// Cached reports live in memory only and expire after a TTL. Closing the
// cache drops every entry, so no report text survives the process.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
package storage
