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


// Package cache provides the bounded in-memory caches behind the retrieval
// pipeline.
//
// Two primitives cover the four cache roles:
//
//   - TTLCache: a sharded keyed cache with per-entry TTL, LRU capacity
//     bounds, lazy expiry on read, and opportunistic plus explicit sweeps.
//     It backs the query-result cache and the conversation memory store.
//   - Snapshot: a single-value copy-on-write cache published by atomic
//     pointer swap. It backs the entity snapshot.
//
// Both take an injectable clock so TTL behavior is testable without
// sleeping. Caches are created explicitly and injected; nothing here is a
// module-level global.
package cache
