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


// Package rank scores and orders candidate points of interest.
//
// Three pieces combine into the hybrid ranking:
//
//   - Keyword: binary textual match between query/category keywords and a
//     candidate's text fields
//   - Semantic: cosine similarity between query and candidate embeddings,
//     normalized to [0,1], degrading silently to 0.0 on malformed vectors
//   - Ranker: weighted merge (semantic*(1-w) + keyword*w), descending sort,
//     exact name-match override, stable first-seen tie-break
//
// Everything here is pure: for a fixed query, candidate set, and embeddings
// the output is identical across calls, which makes results cacheable.
package rank
