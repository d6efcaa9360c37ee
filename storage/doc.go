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


// Package storage defines the entity-store boundary of the retrieval core.
//
// The query pipeline only reads entities; writes happen on the ingest path.
// EntityRepository is the interface consumed everywhere; storage/badger
// provides the BadgerDB implementation, and SnapshotRepository decorates any
// implementation with a copy-on-write in-memory snapshot so the hot read
// path never touches the backing store.
//
// Serialization uses the MUS binary format via hand-written serializers in
// the core package.
package storage
